package auth

import (
	"context"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
)

const PathCart = "/cart"

type CartItem struct {
	ID        string   `json:"_id"`
	ProductID string   `json:"productId,omitempty"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	ImageURL  string   `json:"imageUrl"`
	Size      []string `json:"size,omitempty"`
	Stock     int      `json:"stock,omitempty"`
}

type AddToCartPayload struct {
	UserID    string   `json:"userId"`
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	ImageURL  string   `json:"imageUrl"`
	Size      []string `json:"size,omitempty"`
}

func (p AddToCartPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.ProductID, validation.Required),
		validation.Field(&p.Quantity, validation.Required, validation.Min(1)),
	)
}

// CartService wraps the cart endpoints. Totals are the caller's concern.
type CartService struct {
	api *Client
}

func NewCartService(api *Client) *CartService {
	return &CartService{api: api}
}

func (s *CartService) Add(ctx context.Context, p AddToCartPayload) error {
	if err := p.Validate(); err != nil {
		return newValidationError(err, "cart item")
	}
	_, err := s.api.Post(ctx, PathCart+"/add", p)
	return err
}

func (s *CartService) Get(ctx context.Context, userID string) ([]CartItem, error) {
	if userID == "" {
		return nil, missingID("user")
	}
	res, err := s.api.Get(ctx, PathCart+"/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	out := []CartItem{}
	if err := decodeEnvelope(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update sets the quantity of a cart line, quantities below one are rejected
func (s *CartService) Update(ctx context.Context, id, userID string, quantity int) error {
	if id == "" {
		return missingID("cart item")
	}
	if err := validation.Validate(quantity, validation.Required, validation.Min(1)); err != nil {
		return newValidationError(err, "cart quantity")
	}
	_, err := s.api.Patch(ctx, PathCart+"/"+url.PathEscape(id), map[string]any{
		"userId":   userID,
		"quantity": quantity,
	})
	return err
}

func (s *CartService) Remove(ctx context.Context, id, userID string) error {
	if id == "" {
		return missingID("cart item")
	}
	_, err := s.api.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   PathCart + "/" + url.PathEscape(id),
		Body:   map[string]string{"userId": userID},
	})
	return err
}
