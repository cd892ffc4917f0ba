package handler

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/listing"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

// listFlags is the filter state of a list page as given on the command
// line. Flags left unset keep the entity's defaults.
type listFlags struct {
	search  string
	sort    string
	order   string
	page    int
	perPage int
}

func (lf *listFlags) bind(cmd *cobra.Command, schema model.ListSchema) {
	fs := cmd.Flags()
	fs.StringVarP(&lf.search, "search", "s", "", "search text")
	if len(schema.SortFields) > 0 {
		fs.StringVar(&lf.sort, "sort", schema.Defaults.Sort, fmt.Sprintf("sort field %v", schema.SortFields))
		fs.StringVar(&lf.order, "order", string(schema.Defaults.Order), "asc or desc")
	}
	fs.IntVar(&lf.page, "page", 1, "page number")
	fs.IntVar(&lf.perPage, "per-page", schema.Defaults.PerPage, fmt.Sprintf("page size %v", schema.PageSizes))
}

func (lf *listFlags) filter(cmd *cobra.Command, schema model.ListSchema) model.ListFilter {
	f := schema.Defaults.Clone()
	fs := cmd.Flags()
	if fs.Changed("search") {
		f.Search = lf.search
	}
	if fs.Changed("sort") {
		f.Sort = lf.sort
	}
	if fs.Changed("order") {
		f.Order = model.SortOrder(lf.order)
	}
	if fs.Changed("page") {
		f.Page = lf.page
	}
	if fs.Changed("per-page") {
		f.PerPage = lf.perPage
	}
	return f
}

// loadList runs one fetch through a list view model and waits for it.
func loadList[T any](cmd *cobra.Command, log *zap.Logger, schema model.ListSchema, f model.ListFilter, fetch listing.Fetcher[T]) (listing.View[T], error) {
	l := listing.New[T](log, schema, fetch, listing.WithFilter[T](f))
	defer l.Close()

	ctx := cmd.Context()
	if err := l.Load(ctx); err != nil {
		return listing.View[T]{}, err
	}
	v, err := l.Wait(ctx)
	if err != nil {
		return v, err
	}
	if v.State == listing.Failed {
		return v, v.Err
	}
	return v, nil
}

func printFooter(w io.Writer, m model.Meta, noun string) {
	fmt.Fprintf(w, "\nPage %d of %d (%d %s)\n", m.CurrentPage, m.TotalPages, m.Total, noun)
}
