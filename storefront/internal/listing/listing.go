// Package listing holds the view model of a paged, filterable list page.
//
// Every filter change validates the new filter against the entity's schema,
// then starts a fetch. Only the newest fetch may change the view: each one
// carries a sequence number, the previous one is cancelled, and results of
// superseded fetches are dropped.
package listing

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

type State uint8

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Fetcher[T any] func(ctx context.Context, f model.ListFilter) (model.Page[T], error)

// View is an immutable snapshot of a list.
type View[T any] struct {
	State  State
	Filter model.ListFilter
	Items  []T
	Meta   model.Meta
	Err    error
	Seq    uint64
}

func (v View[T]) Empty() bool {
	return v.State == Ready && len(v.Items) == 0
}

type Option[T any] func(l *List[T])

// WithOnChange registers fn to receive new views in sequence order. A view
// older than one already delivered is skipped. fn must not mutate the list.
func WithOnChange[T any](fn func(View[T])) Option[T] {
	return func(l *List[T]) { l.onChange = fn }
}

func WithFilter[T any](f model.ListFilter) Option[T] {
	return func(l *List[T]) { l.filter = f.Clone() }
}

type List[T any] struct {
	log      *zap.Logger
	schema   model.ListSchema
	fetch    Fetcher[T]
	onChange func(View[T])

	notifyMu    sync.Mutex
	lastSeq     uint64
	lastSettled bool

	mu      sync.Mutex
	filter  model.ListFilter
	state   State
	items   []T
	meta    model.Meta
	err     error
	seq     uint64
	cancel  context.CancelFunc
	settled chan struct{}
}

func New[T any](log *zap.Logger, schema model.ListSchema, fetch Fetcher[T], opts ...Option[T]) *List[T] {
	l := &List[T]{
		log:    log.Named("listing").With(zap.String("entity", schema.Entity)),
		schema: schema,
		fetch:  fetch,
		filter: schema.Defaults.Clone(),
		state:  Idle,
	}
	for _, op := range opts {
		op(l)
	}
	return l
}

// Load fetches with the current filter. A filter invalid for the schema is
// rejected and nothing is sent.
func (l *List[T]) Load(ctx context.Context) error {
	return l.update(ctx, func(f *model.ListFilter) {})
}

// Retry re-issues the last filter unchanged.
func (l *List[T]) Retry(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *List[T]) SetSearch(ctx context.Context, search string) error {
	return l.update(ctx, func(f *model.ListFilter) {
		f.Search = strings.TrimSpace(search)
		f.Page = 1
	})
}

func (l *List[T]) SetSort(ctx context.Context, field string) error {
	return l.update(ctx, func(f *model.ListFilter) {
		f.Sort = field
		f.Page = 1
	})
}

func (l *List[T]) SetOrder(ctx context.Context, order model.SortOrder) error {
	return l.update(ctx, func(f *model.ListFilter) {
		f.Order = order
		f.Page = 1
	})
}

func (l *List[T]) SetPerPage(ctx context.Context, n int) error {
	return l.update(ctx, func(f *model.ListFilter) {
		f.PerPage = n
		f.Page = 1
	})
}

// SetParam sets an entity filter such as a book's condition; "" clears it.
func (l *List[T]) SetParam(ctx context.Context, key, value string) error {
	return l.update(ctx, func(f *model.ListFilter) {
		if f.Params == nil {
			f.Params = make(map[string]string)
		}
		if value == "" {
			delete(f.Params, key)
		} else {
			f.Params[key] = value
		}
		f.Page = 1
	})
}

func (l *List[T]) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		return errs.ValidationErrors{"page": "page must be positive"}
	}
	return l.update(ctx, func(f *model.ListFilter) {
		f.Page = page
	})
}

func (l *List[T]) View() View[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

// Wait blocks until the newest fetch has settled and returns the view.
func (l *List[T]) Wait(ctx context.Context) (View[T], error) {
	for {
		l.mu.Lock()
		if l.state != Loading {
			v := l.viewLocked()
			l.mu.Unlock()
			return v, nil
		}
		ch := l.settled
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return l.View(), ctx.Err()
		}
	}
}

// Close cancels the fetch in flight, if any. Its late result is dropped and
// a list left Loading becomes Failed with context.Canceled.
func (l *List[T]) Close() {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.cancel = nil
	l.seq++
	if l.state == Loading {
		l.state = Failed
		l.err = context.Canceled
	}
	l.release()
	v := l.viewLocked()
	l.mu.Unlock()

	l.notify(v)
}

func (l *List[T]) update(ctx context.Context, mutate func(f *model.ListFilter)) error {
	l.mu.Lock()
	next := l.filter.Clone()
	mutate(&next)
	if err := l.schema.Validate(next); err != nil {
		l.mu.Unlock()
		return err
	}
	l.filter = next
	v := l.startLocked(ctx)
	l.mu.Unlock()

	l.notify(v)
	return nil
}

func (l *List[T]) startLocked(ctx context.Context) View[T] {
	if l.cancel != nil {
		l.cancel()
	}
	l.release()

	l.seq++
	seq := l.seq
	fctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.settled = make(chan struct{})
	l.state = Loading
	l.err = nil

	f := l.filter.Clone()
	go func() {
		page, err := l.fetch(fctx, f)
		l.apply(seq, page, err)
	}()
	return l.viewLocked()
}

func (l *List[T]) apply(seq uint64, page model.Page[T], err error) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		l.log.Debug("dropping stale result", zap.Uint64("seq", seq))
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if err != nil {
		l.state = Failed
		l.err = err
		l.log.Debug("fetch failed", zap.Uint64("seq", seq), zap.Error(err))
	} else {
		l.state = Ready
		l.items = page.Items
		l.meta = page.Meta
	}
	l.release()
	v := l.viewLocked()
	l.mu.Unlock()

	l.notify(v)
}

func (l *List[T]) release() {
	if l.settled != nil {
		close(l.settled)
		l.settled = nil
	}
}

func (l *List[T]) notify(v View[T]) {
	if l.onChange == nil {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	if v.Seq < l.lastSeq || (v.Seq == l.lastSeq && l.lastSettled) {
		return
	}
	l.lastSeq = v.Seq
	l.lastSettled = v.State != Loading
	l.onChange(v)
}

func (l *List[T]) viewLocked() View[T] {
	items := make([]T, len(l.items))
	copy(items, l.items)
	return View[T]{
		State:  l.state,
		Filter: l.filter.Clone(),
		Items:  items,
		Meta:   l.meta,
		Err:    l.err,
		Seq:    l.seq,
	}
}
