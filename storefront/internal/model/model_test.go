package model_test

import (
	"encoding/json"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func TestListFilter_Values(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		filter model.ListFilter
		want   string
	}{
		{name: "empty", filter: model.ListFilter{}, want: ""},
		{name: "empty search omitted", filter: model.ListFilter{Search: "", Page: 1}, want: "page=1"},
		{name: "blank search omitted", filter: model.ListFilter{Search: "   "}, want: ""},
		{
			name:   "all fields",
			filter: model.ListFilter{Search: "dune", Sort: "title", Order: model.Asc, Page: 2, PerPage: 12, Params: map[string]string{"condition": "used", "empty": ""}},
			want:   "condition=used&order=asc&page=2&per_page=12&search=dune&sort=title",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.filter.Values().Encode())
		})
	}
}

func TestListFilter_EmptySearchNeverSent(t *testing.T) {
	t.Parallel()
	f := func(sort string, page, perPage uint8) bool {
		v := model.ListFilter{Search: "", Sort: sort, Page: int(page), PerPage: int(perPage)}.Values()
		_, ok := v["search"]
		return !ok
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestListSchema_Validate(t *testing.T) {
	t.Parallel()
	s := model.BookListSchema

	require.NoError(t, s.Validate(s.Defaults))
	require.NoError(t, s.Validate(model.ListFilter{Params: map[string]string{"condition": "used"}}))

	err := s.Validate(model.ListFilter{Sort: "price", Order: "up", PerPage: 13, Page: -1, Params: map[string]string{"condition": "mint"}})
	var verrs errs.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 5)
	assert.Contains(t, verrs, "sort")
	assert.Contains(t, verrs, "order")
	assert.Contains(t, verrs, "per_page")
	assert.Contains(t, verrs, "page")
	assert.Contains(t, verrs, "condition")
}

func TestBook_UnmarshalVariants(t *testing.T) {
	t.Parallel()
	var a, b model.Book
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b1","title":"Dune","price":"15000.00","stock":5}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b1","title":"Dune","price":15000,"stock_quantity":5}`), &b))
	assert.Equal(t, a, b)
	assert.Equal(t, model.Amount(15000), a.Price)
	assert.Equal(t, 5, b.Stock)
}

func TestTransaction_UnmarshalVariants(t *testing.T) {
	t.Parallel()
	var tx model.Transaction
	require.NoError(t, json.Unmarshal([]byte(`{
		"order_id":"o1","total_price":45000,"total_amount":3,"created_at":"2024-01-02T03:04:05Z",
		"items":[{"book_id":"b1","quantity":3,"price_each":15000,"book":{"title":"Dune","stock_quantity":2}}]
	}`), &tx))
	assert.Equal(t, "o1", tx.ID)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, model.Amount(15000), tx.Items[0].Price)
	assert.Equal(t, model.Amount(45000), tx.Items[0].Subtotal())
	assert.Equal(t, "Dune", tx.Items[0].Title())
	assert.Equal(t, 2, tx.Items[0].Book.Stock)
}

func TestTransactionItem_Subtotal(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.Amount(45000), model.TransactionItem{Quantity: 3, Price: 15000}.Subtotal())

	f := func(q, p uint16) bool {
		item := model.TransactionItem{Quantity: int(q), Price: model.Amount(p)}
		return item.Subtotal() == model.Amount(int64(q)*int64(p))
	}
	require.NoError(t, quick.Check(f, nil))
}
