package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	PathProducts        = "/products"
	PathMyProducts      = "/products/my-products"
	PathDeletedProducts = "/products/my-products/deleted"

	defaultProductPage  = 1
	defaultProductLimit = 20
)

type Product struct {
	ID          string     `json:"_id"`
	Seller      string     `json:"seller"`
	SellerEmail string     `json:"sellerEmail,omitempty"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	OldPrice    *float64   `json:"oldPrice,omitempty"`
	Image       string     `json:"image"`
	Label       *string    `json:"label,omitempty"`
	Colors      []string   `json:"colors"`
	Rating      float64    `json:"rating"`
	Reviews     int        `json:"reviews"`
	Stock       int        `json:"stock"`
	Brand       string     `json:"brand"`
	Size        []string   `json:"size"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Category, validation.Required),
		validation.Field(&p.Price, validation.Required, validation.Min(0.0)),
		validation.Field(&p.Image, validation.Required),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

type Pagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Limit   int  `json:"limit"`
	HasPrev bool `json:"hasPrev"`
	HasNext bool `json:"hasNext"`
}

type ProductPage struct {
	Products   []Product   `json:"data"`
	Pagination *Pagination `json:"pagination"`
}

// ProductQuery filters the public catalog listing
type ProductQuery struct {
	Category []string
	Brand    []string
	Size     []string
	Color    []string
	MinPrice float64
	MaxPrice *float64
	Sort     string
	Page     int
	Limit    int
	Q        string
}

// Values encodes the query the way the catalog endpoint expects: lists are
// comma joined, color hashes are stripped, min price, page and limit
// always present
func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	appendList := func(key string, items []string) {
		if len(items) > 0 {
			v.Set(key, strings.Join(items, ","))
		}
	}

	appendList("category", q.Category)
	appendList("brand", q.Brand)
	appendList("size", q.Size)

	colors := make([]string, 0, len(q.Color))
	for _, c := range q.Color {
		colors = append(colors, strings.TrimPrefix(c, "#"))
	}
	appendList("color", colors)

	v.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	if q.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}

	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}

	page := q.Page
	if page <= 0 {
		page = defaultProductPage
	}
	v.Set("page", strconv.Itoa(page))

	limit := q.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}
	v.Set("limit", strconv.Itoa(limit))

	if q.Q != "" {
		v.Set("q", q.Q)
	}
	return v
}

// ProductService wraps the catalog and seller product endpoints
type ProductService struct {
	api    *Client
	public *Client
}

func NewProductService(api *Client) *ProductService {
	return &ProductService{api: api, public: api.Public()}
}

// List reads a catalog page, no session needed
func (s *ProductService) List(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	res, err := s.public.Get(ctx, PathProducts, q.Values())
	if err != nil {
		return nil, err
	}
	out := &ProductPage{}
	if err := res.Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, missingID("product")
	}
	res, err := s.public.Get(ctx, PathProducts+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	out := &Product{}
	return out, decodeEnvelope(res, out)
}

// Create lists a new product for the current seller
func (s *ProductService) Create(ctx context.Context, p Product) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, newValidationError(err, "product")
	}
	res, err := s.api.Post(ctx, PathProducts, p)
	if err != nil {
		return nil, err
	}
	out := &Product{}
	return out, decodeEnvelope(res, out)
}

func (s *ProductService) Mine(ctx context.Context) ([]Product, error) {
	return s.listPrivate(ctx, PathMyProducts)
}

func (s *ProductService) Deleted(ctx context.Context) ([]Product, error) {
	return s.listPrivate(ctx, PathDeletedProducts)
}

func (s *ProductService) Update(ctx context.Context, id string, p Product) (*Product, error) {
	if id == "" {
		return nil, missingID("product")
	}
	res, err := s.api.Put(ctx, PathProducts+"/"+url.PathEscape(id), p)
	if err != nil {
		return nil, err
	}
	out := &Product{}
	return out, decodeEnvelope(res, out)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return missingID("product")
	}
	_, err := s.api.Delete(ctx, PathProducts+"/"+url.PathEscape(id))
	return err
}

func (s *ProductService) Restore(ctx context.Context, id string) error {
	if id == "" {
		return missingID("product")
	}
	_, err := s.api.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   PathProducts + "/" + url.PathEscape(id) + "/restore",
	})
	return err
}

func (s *ProductService) listPrivate(ctx context.Context, path string) ([]Product, error) {
	res, err := s.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	out := []Product{}
	if err := decodeEnvelope(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeEnvelope accepts both `{"data": X}` and a bare X
func decodeEnvelope(res *Response, out any) error {
	if res == nil || len(res.Body) == 0 {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(res.Body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return (&Response{Status: res.Status, Body: env.Data}).Decode(out)
	}
	return res.Decode(out)
}

func missingID(resource string) error {
	return goerrors.New(resource+" id is required", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
}
