package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/flatten/admin"
	"github.com/jonwraymond/flatten/auth"
	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/config"
	"github.com/jonwraymond/flatten/flatten"
	"github.com/jonwraymond/flatten/health"
	"github.com/jonwraymond/flatten/observe"
	"github.com/jonwraymond/flatten/resilience"
	"github.com/jonwraymond/flatten/routes"
)

// upstreamRoute names the catch-all route of the proxied site.
const upstreamRoute = "upstream"

// app holds everything the serve command runs.
type app struct {
	cfg       *config.Config
	obs       observe.Observer
	store     cache.Store
	flattener *flatten.Flattener
	site      http.Handler
	admin     *admin.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observer())
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a := &app{cfg: cfg, obs: obs}

	a.store, err = openStore(ctx, cfg, obs.Logger())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	a.flattener, err = flatten.New(a.store, cfg.Flatten(), flatten.WithObserver(obs))
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	upstream, err := url.Parse(cfg.Proxy.Upstream)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		_ = a.close(ctx)
		return nil, fmt.Errorf("proxy: invalid upstream %q", cfg.Proxy.Upstream)
	}
	resolver, err := siteRoutes(cfg, newProxy(upstream))
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.site = a.flattener.Handler(resolver.Router())

	if cfg.Admin.Enabled {
		a.admin, err = newAdmin(cfg, a.flattener, a.store, resolver, obs.Logger())
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// openStore builds the configured store and logs breaker transitions.
func openStore(ctx context.Context, cfg *config.Config, logger observe.Logger) (cache.Store, error) {
	opts := cfg.StoreOptions()
	opts.Resilience.OnStateChange = func(from, to resilience.State) {
		logger.Warn(context.Background(), "store breaker state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()})
	}
	store, err := cache.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return store, nil
}

// siteRoutes registers the configured named routes and a catch-all, all
// served by proxy.
func siteRoutes(cfg *config.Config, proxy http.Handler) (*routes.Resolver, error) {
	resolver, err := routes.NewResolver(mux.NewRouter(), cfg.Admin.BaseURL)
	if err != nil {
		return nil, err
	}
	for _, rt := range cfg.Proxy.Routes {
		if rt.Action {
			resolver.HandleAction(rt.Path, rt.Name, proxy)
			continue
		}
		resolver.Router().Handle(rt.Path, proxy).Name(rt.Name)
	}
	resolver.Router().PathPrefix("/").Handler(proxy).Name(upstreamRoute)
	return resolver, nil
}

// newProxy returns a reverse proxy to upstream. Accept-Encoding is dropped so
// captured bodies are never compressed.
func newProxy(upstream *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(upstream)
			r.SetXForwarded()
			r.Out.Header.Del("Accept-Encoding")
		},
	}
}

func newAdmin(cfg *config.Config, f *flatten.Flattener, store cache.Store, resolver *routes.Resolver, logger observe.Logger) (*admin.Server, error) {
	inv, err := flatten.NewInvalidator(f.Flusher(), resolver)
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(store))
	switch s := store.(type) {
	case *cache.TieredStore:
		agg.Register("footprint", health.NewFootprintChecker(s, health.FootprintConfig{}))
	default:
		if mem, ok := unwrapStore(store).(*cache.MemoryStore); ok {
			agg.Register("footprint", health.NewFootprintChecker(mem, health.FootprintConfig{}))
		}
	}

	authn, err := newAuthenticator(cfg.Admin)
	if err != nil {
		return nil, err
	}

	return admin.NewServer(admin.Config{
		Flusher:       f.Flusher(),
		Invalidator:   inv,
		Health:        agg,
		Authenticator: authn,
		FlushRate:     cfg.Admin.FlushRate,
		FlushBurst:    cfg.Admin.FlushBurst,
		Logger:        logger,
	})
}

// newAuthenticator combines the JWT and API key authenticators that the
// configuration enables. With neither, it returns an error.
func newAuthenticator(cfg config.AdminConfig) (auth.Authenticator, error) {
	var auths []auth.Authenticator
	if cfg.JWTSecret != "" {
		j, err := newJWT(cfg)
		if err != nil {
			return nil, err
		}
		auths = append(auths, j)
	}
	if len(cfg.APIKeys) > 0 {
		keys := auth.NewMemoryAPIKeyStore()
		for _, k := range cfg.APIKeys {
			roles := k.Roles
			if len(roles) == 0 {
				roles = []string{admin.FlushRole}
			}
			keys.Add(&auth.APIKey{ID: k.ID, KeyHash: auth.HashAPIKey(k.Key), Principal: k.Principal, Roles: roles})
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator(keys))
	}
	if len(auths) == 0 {
		return nil, errors.New("admin: set admin.jwt_secret or admin.api_keys, or disable the admin API")
	}
	return auth.NewCompositeAuthenticator(auths...), nil
}

func newJWT(cfg config.AdminConfig) (*auth.JWTAuthenticator, error) {
	return auth.NewJWTAuthenticator(auth.JWTConfig{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer})
}

func unwrapStore(s cache.Store) cache.Store {
	for {
		u, ok := s.(interface{ Unwrap() cache.Store })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if c, ok := unwrapStore(a.store).(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
