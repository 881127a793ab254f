package auth

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Bootstrapper hydrates a SessionStore from the persisted token once per
// process
type Bootstrapper struct {
	once    sync.Once
	done    chan struct{}
	session *SessionStore
	logger  Logger
}

// NewBootstrapper binds a bootstrapper to session
func NewBootstrapper(session *SessionStore, logger Logger) *Bootstrapper {
	if logger == nil {
		logger = defLogger{}
	}
	return &Bootstrapper{
		done:    make(chan struct{}),
		session: session,
		logger:  logger,
	}
}

// Run hydrates the session. With a stored token it loads the profile,
// otherwise it marks the session initialized without any request. Only
// the first call does work; errors are logged, never returned.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.once.Do(func() {
		defer close(b.done)
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("session bootstrap panicked: %v", r)
				b.session.MarkInitialized()
			}
		}()
		b.run(ctx)
	})
}

// Start runs the bootstrap in the background. The returned channel closes
// when the session is initialized.
func (b *Bootstrapper) Start(ctx context.Context) <-chan struct{} {
	go b.Run(ctx)
	return b.done
}

// Done closes once the bootstrap finished
func (b *Bootstrapper) Done() <-chan struct{} {
	return b.done
}

func (b *Bootstrapper) run(ctx context.Context) {
	token, err := b.session.Tokens().Get(ctx)
	if err != nil {
		b.logger.Error("session bootstrap could not read token: %s", err)
	}

	if token == "" {
		b.session.MarkInitialized()
		return
	}

	if _, err := b.session.GetProfile(ctx); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			b.logger.Info("session bootstrap resolved anonymous: %s %s", richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
			return
		}
		b.logger.Info("session bootstrap resolved anonymous: %s", err)
	}
}
