package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/flatten/admin"
	"github.com/jonwraymond/flatten/auth"
	"github.com/jonwraymond/flatten/flatten"
	"github.com/jonwraymond/flatten/observe"
)

type flushOptions struct {
	remote string
	token  string
	apiKey string
	route  string
	action string
	params []string
}

func newFlushCommand(root *rootOptions) *cobra.Command {
	opts := &flushOptions{}
	cmd := &cobra.Command{
		Use:   "flush [pattern]",
		Short: "Remove cached pages",
		Long: `Remove cached pages whose key contains pattern ("/" matches "_").
Without a pattern, route or action every page of the cache folder is removed.

With --remote the flush is sent to a running admin API; otherwise the
configured store is opened directly (file and redis drivers).`,
		Example: `  flatten flush blog/
  flatten flush --route blog.post --param locale=en --param slug=hello --remote http://127.0.0.1:9090 --token $TOKEN`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			if opts.route != "" && opts.action != "" {
				return errors.New("flush: --route and --action are exclusive")
			}
			params, err := parseParams(opts.params)
			if err != nil {
				return err
			}

			var resp admin.FlushResponse
			if opts.remote != "" {
				resp, err = opts.flushRemote(cmd.Context(), pattern, params)
			} else {
				resp, err = opts.flushLocal(cmd.Context(), root, pattern, params)
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "flushed %d page(s) (%s %s)\n", resp.Removed, resp.Scope, resp.Target)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.remote, "remote", "", "admin API base URL")
	f.StringVar(&opts.token, "token", "", "bearer token for --remote")
	f.StringVar(&opts.apiKey, "api-key", "", "API key for --remote")
	f.StringVar(&opts.route, "route", "", "flush the pages of a named route")
	f.StringVar(&opts.action, "action", "", "flush the pages of a named action")
	f.StringArrayVar(&opts.params, "param", nil, "route parameter as name=value (repeatable)")
	return cmd
}

func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, p := range raw {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("flush: invalid --param %q, want name=value", p)
		}
		params[k] = v
	}
	return params, nil
}

func (o *flushOptions) flushLocal(ctx context.Context, root *rootOptions, pattern string, params map[string]string) (admin.FlushResponse, error) {
	cfg, err := root.load()
	if err != nil {
		return admin.FlushResponse{}, err
	}
	a := &app{cfg: cfg}
	a.store, err = openStore(ctx, cfg, observe.NopLogger())
	if err != nil {
		return admin.FlushResponse{}, err
	}
	defer func() { _ = a.close(ctx) }()

	fl, err := flatten.NewFlusher(a.store, cfg.Cache.Folder)
	if err != nil {
		return admin.FlushResponse{}, err
	}

	resp := admin.FlushResponse{Scope: "pattern", Target: pattern}
	switch {
	case o.route != "" || o.action != "":
		resolver, err := siteRoutes(cfg, http.NotFoundHandler())
		if err != nil {
			return resp, err
		}
		inv, err := flatten.NewInvalidator(fl, resolver)
		if err != nil {
			return resp, err
		}
		if o.route != "" {
			resp.Scope, resp.Target = "route", o.route
			resp.Removed, err = inv.FlushRoute(ctx, o.route, params)
		} else {
			resp.Scope, resp.Target = "action", o.action
			resp.Removed, err = inv.FlushAction(ctx, o.action, params)
		}
		return resp, err
	case pattern == "":
		resp.Scope = "all"
	}
	resp.Removed, err = fl.Flush(ctx, pattern)
	return resp, err
}

func (o *flushOptions) flushRemote(ctx context.Context, pattern string, params map[string]string) (admin.FlushResponse, error) {
	base := strings.TrimRight(o.remote, "/")
	var (
		target string
		body   any
	)
	switch {
	case o.route != "":
		target = base + "/flush/routes/" + url.PathEscape(o.route)
		body = admin.InvalidateRequest{Params: params}
	case o.action != "":
		target = base + "/flush/actions/" + url.PathEscape(o.action)
		body = admin.InvalidateRequest{Params: params}
	default:
		target = base + "/flush"
		body = admin.FlushRequest{Pattern: pattern}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return admin.FlushResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(buf))
	if err != nil {
		return admin.FlushResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	if o.apiKey != "" {
		req.Header.Set(auth.APIKeyHeader, o.apiKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return admin.FlushResponse{}, fmt.Errorf("flush: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return admin.FlushResponse{}, fmt.Errorf("flush: read response: %w", err)
	}
	var resp admin.FlushResponse
	if err := json.Unmarshal(raw, &resp); err != nil || res.StatusCode != http.StatusOK {
		msg := resp.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return resp, fmt.Errorf("flush: %s: %s", res.Status, msg)
	}
	return resp, nil
}
