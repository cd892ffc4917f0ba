package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/bookstore-client/storefront/internal/form"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

// bookFieldFlags maps command line flags to book form fields.
var bookFieldFlags = []struct {
	flag, field, usage string
}{
	{"title", form.FieldTitle, "title"},
	{"writer", form.FieldWriter, "writer"},
	{"publisher", form.FieldPublisher, "publisher"},
	{"price", form.FieldPrice, "price, grouped digits allowed (45.000)"},
	{"stock", form.FieldStock, "copies in stock"},
	{"genre", form.FieldGenreID, "genre id"},
	{"isbn", form.FieldISBN, "ISBN"},
	{"description", form.FieldDescription, "description"},
	{"year", form.FieldPublicationYear, "publication year"},
	{"condition", form.FieldCondition, "new, used or refurbished"},
}

func (h *Handler) booksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "Browse and manage books",
	}
	cmd.AddCommand(
		h.booksListCmd(),
		h.bookGetCmd(),
		h.bookAddCmd(),
		h.bookUpdateCmd(),
		h.bookDeleteCmd(),
	)
	return cmd
}

func (h *Handler) booksListCmd() *cobra.Command {
	var (
		lf        listFlags
		condition string
	)
	schema := model.BookListSchema
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := lf.filter(cmd, schema)
			if condition != "" {
				f.Params = map[string]string{"condition": condition}
			}
			v, err := loadList[model.Book](cmd, h.log, schema, f, h.bookSvc.List)
			if err != nil {
				return fail(err, "", "Failed to fetch books")
			}
			w := cmd.OutOrStdout()
			if v.Empty() {
				fmt.Fprintln(w, "No books found")
				return nil
			}
			printBooks(w, v.Items)
			printFooter(w, v.Meta, "books")
			return nil
		},
	}
	lf.bind(cmd, schema)
	cmd.Flags().StringVar(&condition, "condition", "", "new, used or refurbished")
	return cmd
}

func (h *Handler) bookGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := h.bookSvc.Get(ctx, args[0])
			if err != nil {
				return fail(err, "Book not found", "Failed to fetch book details")
			}
			if b.Genre == nil && b.GenreID != "" {
				if g, err := h.genreSvc.Get(ctx, b.GenreID); err == nil {
					b.Genre = &g
				}
			}
			printBook(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func (h *Handler) bookAddCmd() *cobra.Command {
	values := make(map[string]*string, len(bookFieldFlags))
	var image string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := form.NewBookForm()
			if err := applyBookFlags(cmd, f, values); err != nil {
				return fail(err, "", "Failed to add book")
			}
			if image != "" {
				data, err := os.ReadFile(image)
				if err != nil {
					return fail(err, "", "Failed to read image")
				}
				if err := f.SetImage(filepath.Base(image), data); err != nil {
					return fail(err, "", "Failed to read image")
				}
			}
			b, err := f.Submit(cmd.Context(), h.bookSvc)
			if err != nil {
				return fail(err, "", "Failed to add book")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book added: %s\n\n", b.ID)
			printBook(cmd.OutOrStdout(), b)
			return nil
		},
	}
	bindBookFlags(cmd, values)
	cmd.Flags().StringVar(&image, "image", "", "path of a cover image, 5MB at most")
	return cmd
}

func (h *Handler) bookUpdateCmd() *cobra.Command {
	values := make(map[string]*string, len(bookFieldFlags))
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := h.bookSvc.Get(ctx, args[0])
			if err != nil {
				return fail(err, "Book not found", "Failed to fetch book details")
			}
			f := form.NewEditBookForm(b)
			if err := applyBookFlags(cmd, f, values); err != nil {
				return fail(err, "", "Failed to update book")
			}
			updated, err := f.Submit(ctx, h.bookSvc)
			if err != nil {
				return fail(err, "Book not found", "Failed to update book")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book updated: %s\n\n", updated.ID)
			printBook(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	bindBookFlags(cmd, values)
	return cmd
}

func (h *Handler) bookDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, yes, "Are you sure you want to delete this book?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err := h.bookSvc.Delete(cmd.Context(), args[0]); err != nil {
				return fail(err, "Book not found", "Failed to delete book")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

type fieldSetter interface {
	SetField(name, raw string) error
}

func bindBookFlags(cmd *cobra.Command, values map[string]*string) {
	for _, bf := range bookFieldFlags {
		values[bf.flag] = cmd.Flags().String(bf.flag, "", bf.usage)
	}
}

// applyBookFlags feeds the flags that were given into the form, one field
// at a time, the way keystrokes would.
func applyBookFlags(cmd *cobra.Command, f fieldSetter, values map[string]*string) error {
	for _, bf := range bookFieldFlags {
		if !cmd.Flags().Changed(bf.flag) {
			continue
		}
		if err := f.SetField(bf.field, *values[bf.flag]); err != nil {
			return err
		}
	}
	return nil
}

func printBooks(w io.Writer, books []model.Book) {
	fmt.Fprintf(w, "%-36s %-30s %-25s %16s %6s %-12s\n", "ID", "Title", "Writer", "Price", "Stock", "Condition")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, b := range books {
		fmt.Fprintf(w, "%-36s %-30s %-25s %16s %6d %-12s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Writer, 25),
			form.FormatPrice(b.Price),
			b.Stock,
			orDash(string(b.Condition)))
	}
}

func printBook(w io.Writer, b model.Book) {
	genre := b.GenreID
	if b.Genre != nil && b.Genre.Name != "" {
		genre = b.Genre.Name
	}
	stock := fmt.Sprintf("%d", b.Stock)
	if !b.InStock() {
		stock = "Out of stock"
	}
	year := "-"
	if b.PublicationYear > 0 {
		year = fmt.Sprintf("%d", b.PublicationYear)
	}
	rows := [][2]string{
		{"ID", b.ID},
		{"Title", b.Title},
		{"Writer", b.Writer},
		{"Publisher", orDash(b.Publisher)},
		{"Genre", orDash(genre)},
		{"Price", form.FormatPrice(b.Price)},
		{"Stock", stock},
		{"ISBN", orDash(b.ISBN)},
		{"Year", year},
		{"Condition", orDash(string(b.Condition))},
		{"Image", orDash(b.BookImage)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %s\n", r[0]+":", r[1])
	}
	if b.Description != "" {
		fmt.Fprintf(w, "\n%s\n", b.Description)
	}
}
