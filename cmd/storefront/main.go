// storefront is a command line client for the storefront API. It keeps
// the access token and cookies in a local sqlite file, so a session
// started with `storefront login` is picked up by later invocations.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-storefront-auth"
	"github.com/goliatone/go-storefront-auth/activitymap"
	"github.com/goliatone/go-storefront-auth/internal/config"
	"github.com/goliatone/go-storefront-auth/internal/logging"
	"github.com/goliatone/go-storefront-auth/storage/bunstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// App bundles the session stack for one invocation
type App struct {
	cfg      *config.Config
	logger   *logging.Zap
	db       *bun.DB
	tokens   *auth.TokenStore
	client   *auth.Client
	session  *auth.SessionStore
	boot     *auth.Bootstrapper
	products *auth.ProductService
	cart     *auth.CartService
	orders   *auth.OrderService
	admin    *auth.AdminService
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	config.Flags(flagSet)
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.Load(flagSet)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	cmd, ok := commands[flagSet.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q", flagSet.Arg(0))
	}

	// every command starts from a hydrated session
	app.boot.Run(ctx)

	return cmd.run(ctx, app, flagSet.Args()[1:])
}

// NewApp wires storage, cookies, client and session from cfg
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	db, err := bunstore.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if err := bunstore.Migrate(ctx, db); err != nil {
		return nil, err
	}

	jar, err := bunstore.NewCookieJar(ctx, db, logger.Named("cookies"))
	if err != nil {
		return nil, err
	}

	cookies, err := auth.NewJarCookieStore(jar, cfg.Auth.SiteURL)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenStoreFromConfig(cfg.Auth, bunstore.NewStore(db), cookies)
	sink := activitymap.LogSink(logger.Named("activity"), activitymap.WithDefaultChannel("cli"))

	client := auth.NewClientFromConfig(cfg.Auth, tokens,
		auth.WithHTTPClient(&http.Client{Jar: jar, Timeout: 30 * time.Second}),
		auth.WithClientLogger(logger.Named("client")),
		auth.WithClientActivitySink(sink),
	)

	session := auth.NewSessionStore(client,
		auth.WithSessionLogger(logger.Named("session")),
		auth.WithSessionActivitySink(sink),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		tokens:   tokens,
		client:   client,
		session:  session,
		boot:     auth.NewBootstrapper(session, logger.Named("bootstrap")),
		products: auth.NewProductService(client),
		cart:     auth.NewCartService(client),
		orders:   auth.NewOrderService(client),
		admin:    auth.NewAdminService(client),
	}, nil
}

func (a *App) Close() {
	_ = a.logger.Sync()
	_ = a.db.Close()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `storefront: command line storefront client.

Usage:
  storefront [flags] <command> [command flags]

Commands:
`)
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
