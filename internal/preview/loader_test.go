package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/models"
)

type previewBoundary struct {
	mu      sync.Mutex
	calls   int
	results []func() (*models.PreviewPayload, error)
	started chan int
}

func (b *previewBoundary) WidgetPreview(ctx context.Context, widgetID uint, instanceKey string) (*models.PreviewPayload, error) {
	b.mu.Lock()
	call := b.calls
	b.calls++
	fn := b.results[call]
	b.mu.Unlock()
	if b.started != nil {
		b.started <- call
	}
	return fn()
}

func (b *previewBoundary) WidgetSchemas(ctx context.Context) ([]models.WidgetSchema, error) {
	return nil, nil
}

func (b *previewBoundary) SectionSchemas(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	return nil, nil
}

func (b *previewBoundary) PageComponents(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	return nil, nil
}

func (b *previewBoundary) UpdateComponent(ctx context.Context, pageID uint, req models.UpdateComponentRequest) error {
	return nil
}

func (b *previewBoundary) ContentTypes(ctx context.Context, pageID uint) ([]models.ContentType, error) {
	return nil, nil
}

func (b *previewBoundary) ContentItems(ctx context.Context, pageID uint, q api.ItemQuery) ([]models.ContentItem, models.Pagination, error) {
	return nil, models.Pagination{}, nil
}

func payloadResult(html string) func() (*models.PreviewPayload, error) {
	return func() (*models.PreviewPayload, error) {
		return &models.PreviewPayload{HTML: html}, nil
	}
}

func TestLoadCachesFetchedPayload(t *testing.T) {
	boundary := &previewBoundary{results: []func() (*models.PreviewPayload, error){payloadResult("<div>hero</div>")}}
	cache := NewCache(DefaultTTL, nil)
	bus := composer.NewBus()
	loader := NewLoader(boundary, cache, bus, DefaultTimeout, DefaultDebounce)

	payload, err := loader.Load(context.Background(), 7, "41")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if payload.HTML != "<div>hero</div>" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	// The second load must come from cache without another fetch.
	if _, err := loader.Load(context.Background(), 7, "41"); err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if boundary.calls != 1 {
		t.Fatalf("expected 1 boundary call, got %d", boundary.calls)
	}
}

func TestLoadFailurePublishesRetryableError(t *testing.T) {
	boundary := &previewBoundary{results: []func() (*models.PreviewPayload, error){
		func() (*models.PreviewPayload, error) { return nil, errors.New("upstream down") },
	}}
	cache := NewCache(DefaultTTL, nil)
	bus := composer.NewBus()
	var failures []composer.Event
	bus.Subscribe(func(ev composer.Event) {
		if ev.Kind == composer.EventPreviewFailed {
			failures = append(failures, ev)
		}
	})

	loader := NewLoader(boundary, cache, bus, DefaultTimeout, DefaultDebounce)
	if _, err := loader.Load(context.Background(), 7, "41"); err == nil {
		t.Fatalf("expected load error")
	}

	if len(failures) != 1 {
		t.Fatalf("expected one preview_failed event, got %d", len(failures))
	}
	if !failures[0].Retryable || failures[0].Message == "" {
		t.Fatalf("failure must carry a retryable human-readable state: %+v", failures[0])
	}
}

func TestTimeoutIsFailureNotPendingState(t *testing.T) {
	boundary := &previewBoundary{results: []func() (*models.PreviewPayload, error){
		func() (*models.PreviewPayload, error) {
			return nil, context.DeadlineExceeded
		},
	}}
	cache := NewCache(DefaultTTL, nil)
	bus := composer.NewBus()
	var failed bool
	bus.Subscribe(func(ev composer.Event) {
		if ev.Kind == composer.EventPreviewFailed {
			failed = true
		}
	})

	loader := NewLoader(boundary, cache, bus, 50*time.Millisecond, DefaultDebounce)
	if _, err := loader.Load(context.Background(), 7, "41"); err == nil {
		t.Fatalf("expected timeout to surface as error")
	}
	if !failed {
		t.Fatalf("timeout must render the inline error state")
	}
	if _, ok := cache.Get(7, "41"); ok {
		t.Fatalf("failed load must not populate the cache")
	}
}

func TestStaleResponseIsFencedOut(t *testing.T) {
	release := make(chan struct{})
	started := make(chan int, 2)
	boundary := &previewBoundary{
		started: started,
		results: []func() (*models.PreviewPayload, error){
			func() (*models.PreviewPayload, error) {
				<-release
				return &models.PreviewPayload{HTML: "slow-old"}, nil
			},
			payloadResult("fast-new"),
		},
	}
	cache := NewCache(DefaultTTL, nil)
	bus := composer.NewBus()
	loader := NewLoader(boundary, cache, bus, DefaultTimeout, DefaultDebounce)

	errCh := make(chan error, 1)
	go func() {
		_, err := loader.fetch(context.Background(), 7, "41")
		errCh <- err
	}()
	<-started // first request is in flight

	// A newer request for the same key completes first.
	if _, err := loader.fetch(context.Background(), 7, "41"); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	<-started

	close(release)
	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected stale response to be superseded, got %v", err)
	}

	payload, ok := cache.Get(7, "41")
	if !ok || payload.HTML != "fast-new" {
		t.Fatalf("cache must hold the newest response, got %+v ok=%v", payload, ok)
	}
}

func TestReloadDebounceWindow(t *testing.T) {
	boundary := &previewBoundary{results: []func() (*models.PreviewPayload, error){
		payloadResult("first"),
		payloadResult("second"),
	}}
	cache := NewCache(DefaultTTL, nil)
	loader := NewLoader(boundary, cache, composer.NewBus(), DefaultTimeout, 500*time.Millisecond)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return base }

	if _, err := loader.Reload(context.Background(), 7, "41"); err != nil {
		t.Fatalf("first reload failed: %v", err)
	}

	// Inside the window the reload is skipped.
	loader.now = func() time.Time { return base.Add(200 * time.Millisecond) }
	if _, err := loader.Reload(context.Background(), 7, "41"); !errors.Is(err, ErrDebounced) {
		t.Fatalf("expected debounced reload, got %v", err)
	}

	// After the window it fetches again.
	loader.now = func() time.Time { return base.Add(700 * time.Millisecond) }
	payload, err := loader.Reload(context.Background(), 7, "41")
	if err != nil {
		t.Fatalf("post-window reload failed: %v", err)
	}
	if payload.HTML != "second" {
		t.Fatalf("expected refetched payload, got %+v", payload)
	}
}

func TestSanitizerAppliesToFetchedHTML(t *testing.T) {
	boundary := &previewBoundary{results: []func() (*models.PreviewPayload, error){
		payloadResult(`<div>ok</div><script>alert(1)</script>`),
	}}
	cache := NewCache(DefaultTTL, nil)
	loader := NewLoader(boundary, cache, composer.NewBus(), DefaultTimeout, DefaultDebounce)
	loader.SetSanitizer(func(html string) string { return "<div>ok</div>" })

	payload, err := loader.Load(context.Background(), 7, "41")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if payload.HTML != "<div>ok</div>" {
		t.Fatalf("sanitizer not applied: %q", payload.HTML)
	}
}
