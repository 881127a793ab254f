package auth

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedRoleHint is the role read from an access token payload without
// checking its signature. It is a routing hint for pre-render redirects and
// must never be used to authorize anything: the API checks every call.
type UnverifiedRoleHint struct {
	Role    Role
	Subject string
	Claims  jwt.MapClaims
}

// Known reports whether the hinted role is one of the storefront roles
func (h UnverifiedRoleHint) Known() bool {
	return h.Role.IsValid()
}

// RoleName returns the hinted role as a string
func (h UnverifiedRoleHint) RoleName() string {
	return string(h.Role)
}

// DecodeUnverifiedRoleHint reads the `role` claim from the second segment
// of a three segment token. The payload must be base64url JSON carrying a
// string role; nothing else is checked.
func DecodeUnverifiedRoleHint(token string) (UnverifiedRoleHint, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return UnverifiedRoleHint{}, withMetadata(ErrTokenMalformed, nil, map[string]any{
			"segments": len(parts),
		})
	}

	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return UnverifiedRoleHint{}, withMetadata(ErrTokenMalformed, err, nil)
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return UnverifiedRoleHint{}, withMetadata(ErrTokenMalformed, err, nil)
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return UnverifiedRoleHint{}, withMetadata(ErrTokenMalformed, nil, map[string]any{
			"claim": "role",
		})
	}

	hint := UnverifiedRoleHint{
		Role:   Role(role),
		Claims: claims,
	}
	if sub, err := claims.GetSubject(); err == nil {
		hint.Subject = sub
	}
	if hint.Subject == "" {
		for _, key := range []string{"id", "_id", "userId"} {
			if v, ok := claims[key].(string); ok && v != "" {
				hint.Subject = v
				break
			}
		}
	}

	return hint, nil
}
