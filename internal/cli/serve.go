package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/flatten/observe"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Proxy the upstream site through the page cache and serve the admin API",
		Long: `Proxy the upstream site through the page cache and serve the admin API.

Pages are cached only once cache.only or cache.ignore is set. With both
empty every request goes to the upstream. By default (cache.rule_mode:
union) a non-empty cache.only with an empty cache.ignore caches every page.
Set cache.rule_mode: allowlist to cache just the pages cache.only matches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the site and admin servers until ctx is done, then shuts both
// down within the configured timeout.
func (a *app) serve(ctx context.Context) error {
	logger := a.obs.Logger()
	servers := []*http.Server{{
		Addr:              a.cfg.Proxy.Addr,
		Handler:           a.site,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if a.admin != nil {
		servers = append(servers, &http.Server{
			Addr:              a.cfg.Admin.Addr,
			Handler:           a.admin,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info(gctx, "listening", observe.Field{Key: "addr", Value: srv.Addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Proxy.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		errs = append(errs, a.close(shutdownCtx))
		logger.Info(shutdownCtx, "stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}
