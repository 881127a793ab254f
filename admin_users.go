package auth

import (
	"context"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	PathAdminUsers = "/admin/users"
	PathAdminUser  = "/admin/user"
)

// ManagedUser is a user as listed by the admin endpoints
type ManagedUser struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

type AdminUpdateUserPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (p AdminUpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Role, validation.Required, validation.By(validRole)),
	)
}

// AdminService wraps user management. The API decides who may call it.
type AdminService struct {
	api *Client
}

func NewAdminService(api *Client) *AdminService {
	return &AdminService{api: api}
}

func (s *AdminService) List(ctx context.Context) ([]ManagedUser, error) {
	res, err := s.api.Get(ctx, PathAdminUsers, nil)
	if err != nil {
		return nil, err
	}

	var out []ManagedUser
	var env struct {
		Users []ManagedUser `json:"users"`
	}
	if err := res.Decode(&env); err == nil && env.Users != nil {
		return env.Users, nil
	}
	if err := decodeEnvelope(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdminService) Update(ctx context.Context, id string, p AdminUpdateUserPayload) error {
	if id == "" {
		return missingID("user")
	}
	if err := p.Validate(); err != nil {
		return newValidationError(err, "user")
	}
	_, err := s.api.Put(ctx, PathAdminUser+"/"+url.PathEscape(id), p)
	return err
}

func (s *AdminService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return missingID("user")
	}
	_, err := s.api.Delete(ctx, PathAdminUser+"/"+url.PathEscape(id))
	return err
}

func (s *AdminService) Restore(ctx context.Context, id string) error {
	if id == "" {
		return missingID("user")
	}
	_, err := s.api.Put(ctx, PathAdminUser+"/"+url.PathEscape(id)+"/restore", nil)
	return err
}
