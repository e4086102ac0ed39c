package flatten

import (
	"context"
	"strings"

	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/observe"
)

// Flusher removes cached pages from one folder of a store.
type Flusher struct {
	store  cache.Store
	folder string
	settings
}

// NewFlusher returns a Flusher for folder.
func NewFlusher(store cache.Store, folder string, opts ...Option) (*Flusher, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Flusher{store: store, folder: folder, settings: newSettings(opts)}, nil
}

// Flush removes cached pages.
//
// With an empty pattern every entry of the folder is removed and the count is
// always 0; the error is that of the bulk clear. Otherwise "/" in pattern is
// replaced with "_" and every entry whose key contains it is deleted. That
// path is best effort: the count only includes successful deletes.
func (f *Flusher) Flush(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		err := f.store.Clear(ctx, f.folder)
		f.metrics.RecordFlush(ctx, "", 0, err)
		if err != nil {
			f.logger.Warn(ctx, "cache clear failed",
				observe.Field{Key: "folder", Value: f.folder},
				observe.Field{Key: "error", Value: err})
			return 0, err
		}
		f.logger.Info(ctx, "cache cleared", observe.Field{Key: "folder", Value: f.folder})
		return 0, nil
	}

	pattern = strings.ReplaceAll(pattern, "/", "_")
	n, err := f.store.DeleteMatching(ctx, f.folder, pattern)
	f.metrics.RecordFlush(ctx, pattern, n, err)
	fields := []observe.Field{
		{Key: "folder", Value: f.folder},
		{Key: "pattern", Value: pattern},
		{Key: "deleted", Value: n},
	}
	if err != nil {
		f.logger.Warn(ctx, "cache flush incomplete", append(fields, observe.Field{Key: "error", Value: err})...)
		return n, err
	}
	f.logger.Info(ctx, "cache flushed", fields...)
	return n, nil
}
