package auth

import (
	"context"
	"slices"
)

// GateAction is what a protected view should do with the current session
type GateAction string

const (
	GateLoading   GateAction = "loading"
	GateRedirect  GateAction = "redirect"
	GateForbidden GateAction = "forbidden"
	GateRender    GateAction = "render"
)

// GateDecision is the outcome of ViewGate.Decide
type GateDecision struct {
	Action GateAction
	Target string
}

// ViewGate is the in-process counterpart of the edge guard. It only acts
// once the session is initialized, so it can be evaluated before the
// bootstrapper has finished.
type ViewGate struct {
	LoginPath        string
	UnauthorizedPath string
	// Roles restricts rendering to these roles, empty allows any user
	Roles []Role
}

// NewViewGate builds a gate using the paths in cfg
func NewViewGate(cfg Config, roles ...Role) ViewGate {
	return ViewGate{
		LoginPath:        cfg.GetLoginPath(),
		UnauthorizedPath: cfg.GetUnauthorizedPath(),
		Roles:            roles,
	}
}

// Decide maps a session snapshot to a gate decision
func (g ViewGate) Decide(s Session) GateDecision {
	if !s.Initialized {
		return GateDecision{Action: GateLoading}
	}

	if s.User == nil {
		return GateDecision{Action: GateRedirect, Target: g.loginPath()}
	}

	if len(g.Roles) > 0 && !slices.Contains(g.Roles, s.User.Role) {
		return GateDecision{Action: GateForbidden, Target: g.unauthorizedPath()}
	}

	return GateDecision{Action: GateRender}
}

// Await blocks until the session is initialized and returns the decision
// for that snapshot
func (g ViewGate) Await(ctx context.Context, sessions SessionReader) (GateDecision, error) {
	ready := make(chan Session, 1)
	unsubscribe := sessions.Subscribe(func(s Session) {
		if !s.Initialized {
			return
		}
		select {
		case ready <- s:
		default:
		}
	})
	defer unsubscribe()

	if s := sessions.State(); s.Initialized {
		return g.Decide(s), nil
	}

	select {
	case s := <-ready:
		return g.Decide(s), nil
	case <-ctx.Done():
		return GateDecision{Action: GateLoading}, ctx.Err()
	}
}

func (g ViewGate) loginPath() string {
	if g.LoginPath == "" {
		return DefaultOptions().LoginPath
	}
	return g.LoginPath
}

func (g ViewGate) unauthorizedPath() string {
	if g.UnauthorizedPath == "" {
		return DefaultOptions().UnauthorizedPath
	}
	return g.UnauthorizedPath
}
