package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vsinha/agrostock/pkg/interfaces/httpapi"
)

const shutdownTimeout = 10 * time.Second

// runServe blocks until ctx is cancelled, then shuts the server down
func runServe(ctx context.Context, a *App, args []string) error {
	var (
		opts options
		addr string
	)
	fs := newFlagSet("serve", &opts)
	fs.StringVar(&addr, "addr", a.config.HTTPAddr, "listen address")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	e := httpapi.New(s.svc, a.log)
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info().Msg("http server stopped")
	return nil
}
