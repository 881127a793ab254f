// storefront-edge serves the storefront page routes behind the edge route
// guard. It reads only the access token cookie and never calls the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-storefront-auth"
	"github.com/goliatone/go-storefront-auth/internal/config"
	"github.com/goliatone/go-storefront-auth/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("storefront-edge", pflag.ContinueOnError)
	config.Flags(flagSet)
	flagSet.String("addr", "", "listen address")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flagSet)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv := auth.NewEdgeServer(cfg.Auth, cfg.Log.Development, auth.WithEdgeLogger(logger.Named("edge")))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(cfg.Server.Addr)
	}()
	logger.Info("storefront edge starting on %s", cfg.Server.Addr)

	select {
	case err := <-serveErr:
		logger.Error("storefront edge failed to serve on %s: %s", cfg.Server.Addr, err)
		return fmt.Errorf("serve %s: %w", cfg.Server.Addr, err)
	case sig := <-WaitExitSignal():
		logger.Info("storefront edge stopping: %s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}
