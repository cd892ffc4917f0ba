package book

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/apitest"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func setup(t *testing.T) (*Service, *apitest.Backend) {
	t.Helper()
	b := apitest.New(t)
	return NewService(zap.NewNop(), apitest.LoggedIn(t, b)), b
}

func seed(b *apitest.Backend) model.Genre {
	g := b.AddGenre("Fiction")
	b.AddBook(model.Book{Title: "Dune", Writer: "Frank Herbert", Price: 45000, Stock: 3, GenreID: g.ID, PublicationYear: 1965, Condition: model.ConditionNew})
	b.AddBook(model.Book{Title: "Emma", Writer: "Jane Austen", Price: 30000, Stock: 0, GenreID: g.ID, PublicationYear: 1815, Condition: model.ConditionUsed})
	b.AddBook(model.Book{Title: "Ubik", Writer: "Philip K. Dick", Price: 38000, Stock: 5, GenreID: g.ID, PublicationYear: 1969, Condition: model.ConditionNew})
	return g
}

func titles(books []model.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestService_List(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		filter     model.ListFilter
		wantTitles []string
		wantMeta   model.Meta
		wantQuery  map[string]string
	}{
		{
			name:       "defaults",
			filter:     model.BookListSchema.Defaults,
			wantTitles: []string{"Dune", "Emma", "Ubik"},
			wantMeta:   model.Meta{CurrentPage: 1, TotalPages: 1, Total: 3},
			wantQuery:  map[string]string{"sort": "title", "order": "asc", "page": "1", "per_page": "12"},
		},
		{
			name:       "search only",
			filter:     model.ListFilter{Search: "  dick "},
			wantTitles: []string{"Ubik"},
			wantMeta:   model.Meta{CurrentPage: 1, TotalPages: 1, Total: 1},
			wantQuery:  map[string]string{"search": "dick"},
		},
		{
			name:       "condition and year desc",
			filter:     model.ListFilter{Sort: "publication_year", Order: model.Desc, Params: map[string]string{"condition": "new"}},
			wantTitles: []string{"Ubik", "Dune"},
			wantMeta:   model.Meta{CurrentPage: 1, TotalPages: 1, Total: 2},
			wantQuery:  map[string]string{"sort": "publication_year", "order": "desc", "condition": "new"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, b := setup(t)
			seed(b)

			page, err := svc.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitles, titles(page.Items))
			assert.Equal(t, tt.wantMeta, page.Meta)

			req, ok := b.LastRequest()
			require.True(t, ok)
			assert.Len(t, req.Query, len(tt.wantQuery))
			for k, v := range tt.wantQuery {
				assert.Equal(t, v, req.Query.Get(k), k)
			}
		})
	}
}

func TestService_List_GenreAttached(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	g := seed(b)
	page, err := svc.List(context.Background(), model.ListFilter{Search: "dune"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Genre)
	assert.Equal(t, g.Name, page.Items[0].Genre.Name)
	assert.True(t, page.Items[0].InStock())
}

func TestService_List_InvalidFilterSendsNothing(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	_, err := svc.List(context.Background(), model.ListFilter{Sort: "price", PerPage: 13})
	var verrs errs.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "sort")
	assert.Contains(t, verrs, "per_page")
	assert.Zero(t, b.Hits(http.MethodGet, "/books"))
}

func TestService_Get_NotFound(t *testing.T) {
	t.Parallel()
	svc, _ := setup(t)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, "Book not found", errs.UserMessage(err, "Failed to fetch book"))
}

func TestService_Unauthenticated(t *testing.T) {
	t.Parallel()
	b := apitest.New(t)
	svc := NewService(zap.NewNop(), apitest.NewClient(t, b, apitest.StaticToken("")))
	_, err := svc.List(context.Background(), model.ListFilter{})
	assert.True(t, errors.Is(err, errs.ErrUnauthenticated))
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	g := b.AddGenre("Poetry")
	ctx := context.Background()

	created, err := svc.Create(ctx, model.BookInput{Title: "Odes", Writer: "Keats", Price: 20000, Stock: 2, GenreID: g.ID})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Odes", got.Title)
	assert.Equal(t, model.Amount(20000), got.Price)
	assert.Equal(t, 2, got.Stock)
}

func TestService_CreateWithAttachment(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	g := b.AddGenre("Poetry")

	png := []byte("\x89PNG\r\n\x1a\nrest-of-image")
	created, err := svc.CreateWithAttachment(context.Background(),
		model.BookInput{Title: "Odes", Writer: "Keats", Price: 20000, Stock: 2, GenreID: g.ID},
		model.Attachment{Name: "odes.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, "odes.png", b.ImageOf(created.ID))

	req, ok := b.LastRequest()
	require.True(t, ok)
	assert.Contains(t, req.ContentType, "multipart/form-data")
}

func TestService_CreateRejectedByServer(t *testing.T) {
	t.Parallel()
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), model.BookInput{Writer: "Nobody"})
	var apiErr *errs.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "The given data was invalid.", errs.UserMessage(err, "Failed to add book"))
}

func TestService_UpdateSendsOnlyChangedFields(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	seed(b)
	bk := b.AddBook(model.Book{Title: "Old", Writer: "W", Price: 1000, Stock: 1})

	price := model.Amount(50000)
	updated, err := svc.Update(context.Background(), bk.ID, model.BookPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, "Old", updated.Title)

	req, ok := b.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPut, req.Method)
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]any{"price": float64(50000)}, body)
}

func TestService_UpdateEmptyPatch(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	_, err := svc.Update(context.Background(), "x", model.BookPatch{})
	var verrs errs.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Empty(t, b.Requests())
}

func TestService_Delete(t *testing.T) {
	t.Parallel()
	svc, b := setup(t)
	bk := b.AddBook(model.Book{Title: "Gone"})
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, bk.ID))
	_, ok := b.Book(bk.ID)
	assert.False(t, ok)

	err := svc.Delete(ctx, bk.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestMultipart_OmitsAbsentFields(t *testing.T) {
	t.Parallel()
	m := Multipart(model.BookInput{Title: "T", Writer: "W", Price: 45000, Stock: 0, GenreID: "g"})
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f[0])
	}
	assert.Equal(t, []string{"title", "writer", "price", "stock", "genre_id"}, names)
	assert.Equal(t, [2]string{"price", "45000"}, m.Fields[2])
}
