package auth

import "fmt"

// SessionStatus is the rest state a Session is in, ignoring Loading
type SessionStatus string

const (
	SessionUnknown       SessionStatus = "unknown"
	SessionAnonymous     SessionStatus = "anonymous"
	SessionAuthenticated SessionStatus = "authenticated"
)

// Session is a value snapshot of the current browser/process identity.
// IsAuthenticated is true iff User is not nil.
type Session struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"-"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"loading"`
	Initialized     bool   `json:"initialized"`
}

// Status derives the rest state
func (s Session) Status() SessionStatus {
	switch {
	case s.User != nil:
		return SessionAuthenticated
	case s.Initialized:
		return SessionAnonymous
	default:
		return SessionUnknown
	}
}

// Role returns the user role, empty when anonymous
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}

func (s Session) String() string {
	user := "<nil>"
	if s.User != nil {
		user = fmt.Sprintf("%s(%s)", s.User.ID, s.User.Role)
	}
	return fmt.Sprintf("Session{status=%s user=%s loading=%t}", s.Status(), user, s.Loading)
}
