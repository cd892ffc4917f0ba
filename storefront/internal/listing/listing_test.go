package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/apitest"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/book"
)

// fakeFetcher answers each call with the filter's search text as the only
// item. Calls whose search is in hold block until released or cancelled.
type fakeFetcher struct {
	mu        sync.Mutex
	calls     []model.ListFilter
	hold      map[string]chan struct{}
	cancelled map[string]bool
	fail      error
}

func newFake() *fakeFetcher {
	return &fakeFetcher{hold: map[string]chan struct{}{}, cancelled: map[string]bool{}}
}

func (f *fakeFetcher) fetch(ctx context.Context, flt model.ListFilter) (model.Page[string], error) {
	f.mu.Lock()
	f.calls = append(f.calls, flt)
	ch := f.hold[flt.Search]
	fail := f.fail
	f.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled[flt.Search] = true
			f.mu.Unlock()
			// a slow server may still answer after the client gave up
			<-ch
		}
	}
	if fail != nil {
		return model.Page[string]{}, fail
	}
	return model.Page[string]{
		Items: []string{flt.Search},
		Meta:  model.Meta{CurrentPage: flt.Page, TotalPages: 3, Total: 30},
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) wasCancelled(search string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled[search]
}

func wait(t *testing.T, l *List[string]) View[string] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := l.Wait(ctx)
	require.NoError(t, err)
	return v
}

func TestList_StartsIdleWithDefaults(t *testing.T) {
	t.Parallel()
	l := New[string](zap.NewNop(), model.BookListSchema, newFake().fetch)
	v := l.View()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, model.BookListSchema.Defaults, v.Filter)
	assert.Empty(t, v.Items)
}

func TestList_LoadReady(t *testing.T) {
	t.Parallel()
	f := newFake()
	l := New[string](zap.NewNop(), model.BookListSchema, f.fetch)
	require.NoError(t, l.Load(context.Background()))

	v := wait(t, l)
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, []string{""}, v.Items)
	assert.Equal(t, 1, v.Meta.CurrentPage)
	assert.NoError(t, v.Err)
}

func TestList_FilterChangesResetPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name   string
		change func(l *List[string]) error
		check  func(t *testing.T, f model.ListFilter)
	}{
		{name: "search", change: func(l *List[string]) error { return l.SetSearch(ctx, " dune ") }, check: func(t *testing.T, f model.ListFilter) {
			assert.Equal(t, "dune", f.Search)
		}},
		{name: "sort", change: func(l *List[string]) error { return l.SetSort(ctx, "publication_year") }, check: func(t *testing.T, f model.ListFilter) {
			assert.Equal(t, "publication_year", f.Sort)
		}},
		{name: "order", change: func(l *List[string]) error { return l.SetOrder(ctx, model.Desc) }, check: func(t *testing.T, f model.ListFilter) {
			assert.Equal(t, model.Desc, f.Order)
		}},
		{name: "per page", change: func(l *List[string]) error { return l.SetPerPage(ctx, 24) }, check: func(t *testing.T, f model.ListFilter) {
			assert.Equal(t, 24, f.PerPage)
		}},
		{name: "condition", change: func(l *List[string]) error { return l.SetParam(ctx, "condition", "used") }, check: func(t *testing.T, f model.ListFilter) {
			assert.Equal(t, "used", f.Params["condition"])
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFake()
			l := New[string](zap.NewNop(), model.BookListSchema, f.fetch)
			require.NoError(t, l.SetPage(ctx, 3))
			assert.Equal(t, 3, wait(t, l).Filter.Page)

			require.NoError(t, tt.change(l))
			v := wait(t, l)
			assert.Equal(t, 1, v.Filter.Page)
			tt.check(t, v.Filter)
			assert.Equal(t, 2, f.callCount())
		})
	}
}

func TestList_SetPageKeepsFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := New[string](zap.NewNop(), model.BookListSchema, newFake().fetch)
	require.NoError(t, l.SetSearch(ctx, "dune"))
	wait(t, l)
	require.NoError(t, l.SetPage(ctx, 2))
	v := wait(t, l)
	assert.Equal(t, "dune", v.Filter.Search)
	assert.Equal(t, 2, v.Filter.Page)
	assert.Equal(t, 2, v.Meta.CurrentPage)
}

func TestList_RejectsOutOfEnumeration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name   string
		change func(l *List[string]) error
	}{
		{name: "sort", change: func(l *List[string]) error { return l.SetSort(ctx, "price") }},
		{name: "order", change: func(l *List[string]) error { return l.SetOrder(ctx, "sideways") }},
		{name: "per page", change: func(l *List[string]) error { return l.SetPerPage(ctx, 13) }},
		{name: "page", change: func(l *List[string]) error { return l.SetPage(ctx, 0) }},
		{name: "condition", change: func(l *List[string]) error { return l.SetParam(ctx, "condition", "mint") }},
		{name: "unknown param", change: func(l *List[string]) error { return l.SetParam(ctx, "colour", "red") }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFake()
			l := New[string](zap.NewNop(), model.BookListSchema, f.fetch)
			before := l.View()

			err := tt.change(l)
			var verrs errs.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, before, l.View())
			assert.Zero(t, f.callCount())
		})
	}
}

func TestList_FailedThenRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFake()
	f.fail = errors.New("boom")
	l := New[string](zap.NewNop(), model.BookListSchema, f.fetch)

	require.NoError(t, l.SetSearch(ctx, "dune"))
	v := wait(t, l)
	assert.Equal(t, Failed, v.State)
	assert.EqualError(t, v.Err, "boom")

	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()
	require.NoError(t, l.Retry(ctx))
	v = wait(t, l)
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, []string{"dune"}, v.Items)
	assert.Equal(t, f.calls[0], f.calls[1])
}

func TestList_LastRequestWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFake()
	slow := make(chan struct{})
	f.hold["slow"] = slow

	var (
		mu    sync.Mutex
		views []View[string]
	)
	l := New[string](zap.NewNop(), model.BookListSchema, f.fetch, WithOnChange(func(v View[string]) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	}))

	require.NoError(t, l.SetSearch(ctx, "slow"))
	require.NoError(t, l.SetSearch(ctx, "fast"))
	v := wait(t, l)
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, []string{"fast"}, v.Items)

	require.Eventually(t, func() bool { return f.wasCancelled("slow") }, time.Second, 5*time.Millisecond)
	close(slow)

	// the stale answer arrives but must not replace the newer one
	time.Sleep(20 * time.Millisecond)
	v = l.View()
	assert.Equal(t, []string{"fast"}, v.Items)
	assert.Equal(t, "fast", v.Filter.Search)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(views); i++ {
		assert.GreaterOrEqual(t, views[i].Seq, views[i-1].Seq)
	}
	last := views[len(views)-1]
	assert.Equal(t, Ready, last.State)
	assert.Equal(t, []string{"fast"}, last.Items)
}

func TestList_CloseDuringFetch(t *testing.T) {
	t.Parallel()
	f := newFake()
	held := make(chan struct{})
	f.hold["dune"] = held
	l := New[string](zap.NewNop(), model.BookListSchema, f.fetch)

	require.NoError(t, l.SetSearch(context.Background(), "dune"))
	l.Close()

	v := wait(t, l)
	assert.Equal(t, Failed, v.State)
	assert.ErrorIs(t, v.Err, context.Canceled)

	require.Eventually(t, func() bool { return f.wasCancelled("dune") }, time.Second, 5*time.Millisecond)
	close(held)

	// the answer of the closed fetch is dropped
	time.Sleep(20 * time.Millisecond)
	v = l.View()
	assert.Equal(t, Failed, v.State)
	assert.Empty(t, v.Items)
	l.Close()
}

func TestList_ViewIsSnapshot(t *testing.T) {
	t.Parallel()
	l := New[string](zap.NewNop(), model.BookListSchema, newFake().fetch)
	require.NoError(t, l.SetSearch(context.Background(), "dune"))
	v := wait(t, l)
	v.Items[0] = "mutated"
	v.Filter.Search = "mutated"
	assert.Equal(t, []string{"dune"}, l.View().Items)
	assert.Equal(t, "dune", l.View().Filter.Search)
}

func TestList_WithBookService(t *testing.T) {
	t.Parallel()
	b := apitest.New(t)
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M"} {
		b.AddBook(model.Book{Title: title, Price: 1000, Stock: 1})
	}
	svc := book.NewService(zap.NewNop(), apitest.LoggedIn(t, b))
	l := New[model.Book](zap.NewNop(), model.BookListSchema, svc.List)
	ctx := context.Background()

	require.NoError(t, l.Load(ctx))
	v, err := l.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Ready, v.State)
	assert.Len(t, v.Items, 12)
	assert.Equal(t, model.Meta{CurrentPage: 1, TotalPages: 2, Total: 13}, v.Meta)

	require.NoError(t, l.SetPage(ctx, 2))
	v, err = l.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "M", v.Items[0].Title)
	assert.Equal(t, 2, v.Meta.CurrentPage)
}
