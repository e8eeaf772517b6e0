package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/logger"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrSuperseded marks a response that lost the fence to a newer request
	// for the same preview key. The response is discarded, never cached.
	ErrSuperseded = errors.New("preview request superseded")

	// ErrDebounced marks a reload skipped because it fell inside the
	// debounce window of the previous one.
	ErrDebounced = errors.New("preview reload debounced")
)

// Loader populates the preview cache from the boundary. Every fetch runs
// under a bounded timeout; failures publish a preview_failed event carrying
// a human-readable message and a retry flag instead of leaving the widget
// blank. Requests per key are fenced with monotonic ids so a slow stale
// response cannot overwrite a newer one.
type Loader struct {
	boundary api.Boundary
	cache    *Cache
	bus      *composer.Bus
	timeout  time.Duration
	debounce time.Duration
	sanitize func(string) string
	now      func() time.Time

	mu          sync.Mutex
	requestSeq  map[string]uint64
	lastReload  map[string]time.Time
}

func NewLoader(boundary api.Boundary, cache *Cache, bus *composer.Bus, timeout, debounce time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Loader{
		boundary:   boundary,
		cache:      cache,
		bus:        bus,
		timeout:    timeout,
		debounce:   debounce,
		now:        time.Now,
		requestSeq: make(map[string]uint64),
		lastReload: make(map[string]time.Time),
	}
}

// SetSanitizer installs the HTML sanitizer applied to fetched markup.
func (l *Loader) SetSanitizer(fn func(string) string) {
	l.sanitize = fn
}

// Load returns the preview for a widget instance, from cache when fresh and
// through the boundary otherwise.
func (l *Loader) Load(ctx context.Context, widgetID uint, instanceKey string) (models.PreviewPayload, error) {
	if payload, ok := l.cache.Get(widgetID, instanceKey); ok {
		l.publishReady(widgetID, instanceKey)
		return payload, nil
	}
	return l.fetch(ctx, widgetID, instanceKey)
}

// Reload forces a refetch after an attribute change. Calls inside the
// debounce window are skipped; the surviving call invalidates the cache
// entry before fetching.
func (l *Loader) Reload(ctx context.Context, widgetID uint, instanceKey string) (models.PreviewPayload, error) {
	key := cacheKey(widgetID, instanceKey)

	l.mu.Lock()
	last, seen := l.lastReload[key]
	now := l.now()
	if seen && now.Sub(last) < l.debounce {
		l.mu.Unlock()
		return models.PreviewPayload{}, ErrDebounced
	}
	l.lastReload[key] = now
	l.mu.Unlock()

	l.cache.Invalidate(widgetID, instanceKey)
	return l.fetch(ctx, widgetID, instanceKey)
}

func (l *Loader) fetch(ctx context.Context, widgetID uint, instanceKey string) (models.PreviewPayload, error) {
	key := cacheKey(widgetID, instanceKey)

	l.mu.Lock()
	l.requestSeq[key]++
	requestID := l.requestSeq[key]
	l.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	payload, err := l.boundary.WidgetPreview(fetchCtx, widgetID, normaliseInstanceKey(instanceKey))
	if err != nil {
		metrics.PreviewLoad("error")
		message := "Preview could not be loaded. Try again."
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			message = "Preview timed out. Try again."
		}
		logger.Warn("Preview load failed", map[string]interface{}{
			"widget_id":    widgetID,
			"instance_key": instanceKey,
			"error":        err.Error(),
		})
		l.bus.Publish(composer.Event{
			Kind:        composer.EventPreviewFailed,
			WidgetID:    widgetID,
			InstanceKey: normaliseInstanceKey(instanceKey),
			Message:     message,
			Retryable:   true,
		})
		return models.PreviewPayload{}, fmt.Errorf("load preview for widget %d: %w", widgetID, err)
	}

	l.mu.Lock()
	current := l.requestSeq[key]
	l.mu.Unlock()
	if current != requestID {
		metrics.PreviewLoad("superseded")
		return models.PreviewPayload{}, ErrSuperseded
	}

	if l.sanitize != nil {
		payload.HTML = l.sanitize(payload.HTML)
	}

	l.cache.Put(widgetID, instanceKey, *payload)
	metrics.PreviewLoad("ok")
	l.publishReady(widgetID, instanceKey)
	return *payload, nil
}

func (l *Loader) publishReady(widgetID uint, instanceKey string) {
	l.bus.Publish(composer.Event{
		Kind:        composer.EventPreviewReady,
		WidgetID:    widgetID,
		InstanceKey: normaliseInstanceKey(instanceKey),
	})
}
