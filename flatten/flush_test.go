package flatten

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jonwraymond/flatten/cache"
)

func seed(t *testing.T, s cache.Store, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := s.SetForever(context.Background(), k, []byte("<p>"+k+"</p>")); err != nil {
			t.Fatalf("SetForever(%q) error = %v", k, err)
		}
	}
}

func TestFlush_Pattern(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, "blog_post-1", "shop_item")

	f, err := NewFlusher(store, "")
	if err != nil {
		t.Fatal(err)
	}

	n, err := f.Flush(ctx, "blog_post-1")
	if err != nil || n != 1 {
		t.Fatalf("Flush(blog_post-1) = %d, %v; want 1, nil", n, err)
	}
	if _, ok := store.Get(ctx, "blog_post-1"); ok {
		t.Error("blog_post-1 still cached")
	}
	if _, ok := store.Get(ctx, "shop_item"); !ok {
		t.Error("shop_item was removed")
	}
}

func TestFlush_SlashesBecomeUnderscores(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, "en_blog_post-1", "fr_blog_post-1", "en_blog_post-2")

	f, _ := NewFlusher(store, "")
	n, err := f.Flush(ctx, "blog/post-1")
	if err != nil || n != 2 {
		t.Fatalf("Flush(blog/post-1) = %d, %v; want 2, nil", n, err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestFlush_All(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	seed(t, store, "blog_post-1", "shop_item")

	f, _ := NewFlusher(store, "")
	n, err := f.Flush(ctx, "")
	if err != nil || n != 0 {
		t.Fatalf("Flush() = %d, %v; want 0, nil", n, err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestFlush_FolderScoped(t *testing.T) {
	ctx := context.Background()
	sep := string(os.PathSeparator)
	store := cache.NewMemoryStore()
	seed(t, store, "pages"+sep+"en_blog", "pages"+sep+"en_shop", "other"+sep+"en_blog", "en_blog")

	f, _ := NewFlusher(store, "pages")
	n, err := f.Flush(ctx, "blog")
	if err != nil || n != 1 {
		t.Fatalf("Flush(blog) = %d, %v; want 1, nil", n, err)
	}
	if _, err := f.Flush(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (other folder and root untouched)", store.Len())
	}
}

func TestFlush_FileStore(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileStore(cache.FileStoreConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	seed(t, store, "pages"+string(os.PathSeparator)+"blog_post-1", "pages"+string(os.PathSeparator)+"shop_item")

	f, _ := NewFlusher(store, "pages")
	if n, err := f.Flush(ctx, "blog/post-1"); err != nil || n != 1 {
		t.Fatalf("Flush() = %d, %v; want 1, nil", n, err)
	}
	if _, err := f.Flush(ctx, ""); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, ok := store.Get(ctx, "pages"+string(os.PathSeparator)+"shop_item"); ok {
		t.Error("shop_item survived a full flush")
	}
}

func TestFlush_Errors(t *testing.T) {
	ctx := context.Background()

	f, _ := NewFlusher(&brokenStore{}, "")
	if n, err := f.Flush(ctx, ""); n != 0 || !errors.Is(err, errStoreDown) {
		t.Errorf("Flush() = %d, %v; want 0, errStoreDown", n, err)
	}

	mem := cache.NewMemoryStore()
	seed(t, mem, "blog_a", "blog_b", "blog_c")
	f, _ = NewFlusher(partialStore{mem}, "")
	n, err := f.Flush(ctx, "blog")
	if n != 2 || err == nil {
		t.Errorf("Flush(blog) = %d, %v; want 2 and an error", n, err)
	}
}

func TestNewFlusher_NilStore(t *testing.T) {
	if _, err := NewFlusher(nil, ""); !errors.Is(err, ErrNilStore) {
		t.Errorf("NewFlusher(nil) error = %v, want ErrNilStore", err)
	}
}
