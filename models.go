package auth

import (
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// User is the identity returned by the storefront API
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// UnmarshalJSON accepts both `id` and the document store `_id`
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// Clone returns a detached copy, nil safe
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// AuthResponse is returned by login, register and create-user
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"accessToken"`
	Message     string `json:"message,omitempty"`
}

// ProfileResponse is returned by GET /auth/me and PUT /auth/update-profile
type ProfileResponse struct {
	User    *User  `json:"user"`
	Message string `json:"message,omitempty"`
}

// RefreshResponse is returned by GET /auth/refresh-token
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// MessageResponse is the generic acknowledgement envelope
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Success bool   `json:"success,omitempty"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p RegisterPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, validation.Required, validation.Length(3, 200), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 200)),
	)
}

type CreateUserPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (p CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, validation.Required, validation.Length(3, 200), is.Email),
		validation.Field(&p.Role, validation.Required, validation.By(validRole)),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 200)),
	)
}

type UpdateProfilePayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (p UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

type ChangePasswordPayload struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (p ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.By(differs(p.OldPassword))),
	)
}

type ResetPasswordPayload struct {
	NewPassword string `json:"newPassword"`
}

func (p ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.NewPassword, validation.Required),
	)
}

func validRole(value interface{}) error {
	r, _ := value.(Role)
	if !r.IsValid() {
		return errors.New("must be one of customer, seller, admin, superAdmin")
	}
	return nil
}

func differs(other string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && s == other {
			return errors.New("must differ from the current password")
		}
		return nil
	}
}
