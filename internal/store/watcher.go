package store

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/logx"
)

// defaultRefreshTimeout bounds one snapshot reload.
const defaultRefreshTimeout = 10 * time.Second

type refreshFunc func(ctx context.Context)

// Watcher turns Postgres NOTIFY events on ChangeChannel into fresh
// collection snapshots for its subscribers.
type Watcher struct {
	reader  CatalogReader
	events  <-chan *pq.Notification
	timeout time.Duration

	mu   sync.Mutex
	subs map[string]map[uint64]refreshFunc
	next uint64
}

// NewWatcher builds a watcher fed by events, usually the Notify channel of a
// pq.Listener subscribed to ChangeChannel.
func NewWatcher(reader CatalogReader, events <-chan *pq.Notification) *Watcher {
	return &Watcher{
		reader:  reader,
		events:  events,
		timeout: defaultRefreshTimeout,
		subs:    make(map[string]map[uint64]refreshFunc),
	}
}

// Run dispatches notifications until ctx is done or the event channel closes.
// A nil notification, which pq.Listener sends after reconnecting, refreshes
// every collection since changes may have been missed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-w.events:
			if !ok {
				return
			}
			if n == nil {
				logx.Warn().Msg("catalog listener reconnected, refreshing all collections")
				w.refresh(ctx, CollectionProducts)
				w.refresh(ctx, CollectionCategories)
				continue
			}
			if n.Channel != ChangeChannel {
				continue
			}
			w.refresh(ctx, n.Extra)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, collection string) {
	w.mu.Lock()
	fns := make([]refreshFunc, 0, len(w.subs[collection]))
	for _, fn := range w.subs[collection] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		rctx, cancel := context.WithTimeout(ctx, w.timeout)
		fn(rctx)
		cancel()
	}
}

// subscribe registers fn for collection, runs it once for the initial
// snapshot, and returns the matching unsubscribe func.
func (w *Watcher) subscribe(ctx context.Context, collection string, fn refreshFunc) func() {
	w.mu.Lock()
	id := w.next
	w.next++
	if w.subs[collection] == nil {
		w.subs[collection] = make(map[uint64]refreshFunc)
	}
	w.subs[collection][id] = fn
	w.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	fn(rctx)
	cancel()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs[collection], id)
			w.mu.Unlock()
		})
	}
}

// SubscribeProducts delivers the product collection now and after every
// change. Load failures go to onError; the subscription stays active.
func (w *Watcher) SubscribeProducts(ctx context.Context, onSnapshot func([]domain.Product), onError func(error)) (unsubscribe func()) {
	return w.subscribe(ctx, CollectionProducts, func(ctx context.Context) {
		products, err := w.reader.ListProducts(ctx)
		if err != nil {
			onError(err)
			return
		}
		onSnapshot(products)
	})
}

// SubscribeCategories is SubscribeProducts for the category collection.
func (w *Watcher) SubscribeCategories(ctx context.Context, onSnapshot func([]domain.Category), onError func(error)) (unsubscribe func()) {
	return w.subscribe(ctx, CollectionCategories, func(ctx context.Context) {
		categories, err := w.reader.ListCategories(ctx)
		if err != nil {
			onError(err)
			return
		}
		onSnapshot(categories)
	})
}

// Subscribers is the number of live subscriptions for collection.
func (w *Watcher) Subscribers(collection string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[collection])
}
