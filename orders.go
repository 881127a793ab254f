package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const PathOrders = "/orders"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderCompleted  OrderStatus = "completed"
	OrderCanceled   OrderStatus = "canceled"
)

// OrderStatuses returns the statuses a seller can move an order to
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderCompleted, OrderCanceled}
}

func (s OrderStatus) IsValid() bool {
	for _, v := range OrderStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Size      []string `json:"size,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Quantity  int      `json:"quantity"`
	Price     float64  `json:"price"`
}

type Order struct {
	ID        string      `json:"_id"`
	UserID    string      `json:"userId"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

type CreateOrderPayload struct {
	UserID string      `json:"userId"`
	Items  []OrderItem `json:"items"`
}

func (p CreateOrderPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.Items, validation.Required),
	)
}

// OrderService wraps the order endpoints, whose responses come in a
// `data` envelope
type OrderService struct {
	api *Client
}

func NewOrderService(api *Client) *OrderService {
	return &OrderService{api: api}
}

func (s *OrderService) Create(ctx context.Context, p CreateOrderPayload) (*Order, error) {
	if err := p.Validate(); err != nil {
		return nil, newValidationError(err, "order")
	}
	res, err := s.api.Post(ctx, PathOrders, p)
	if err != nil {
		return nil, err
	}
	out := &Order{}
	return out, decodeEnvelope(res, out)
}

func (s *OrderService) ForUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, missingID("user")
	}
	return s.list(ctx, PathOrders+"/user/"+url.PathEscape(userID))
}

func (s *OrderService) ForSeller(ctx context.Context, sellerID string) ([]Order, error) {
	if sellerID == "" {
		return nil, missingID("seller")
	}
	return s.list(ctx, PathOrders+"/seller/"+url.PathEscape(sellerID))
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	if id == "" {
		return missingID("order")
	}
	if !status.IsValid() {
		return newValidationError(errors.New("must be a known order status"), "order status")
	}
	_, err := s.api.Patch(ctx, PathOrders+"/"+url.PathEscape(id)+"/status", map[string]any{
		"status": status,
	})
	return err
}

func (s *OrderService) list(ctx context.Context, path string) ([]Order, error) {
	res, err := s.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	if err := decodeEnvelope(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}
