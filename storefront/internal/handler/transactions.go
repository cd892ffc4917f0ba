package handler

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/form"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

const bookLookupConcurrency = 4

func (h *Handler) transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Buy books and review past purchases",
	}
	cmd.AddCommand(
		h.transactionsListCmd(),
		h.transactionGetCmd(),
		h.transactionCreateCmd(),
		h.transactionStatsCmd(),
	)
	return cmd
}

func (h *Handler) transactionsListCmd() *cobra.Command {
	var lf listFlags
	schema := model.TransactionListSchema
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.showTransactions(cmd, lf.filter(cmd, schema))
		},
	}
	lf.bind(cmd, schema)
	return cmd
}

func (h *Handler) showTransactions(cmd *cobra.Command, f model.ListFilter) error {
	v, err := loadList[model.Transaction](cmd, h.log, model.TransactionListSchema, f, h.txSvc.List)
	if err != nil {
		return fail(err, "", "Failed to fetch transactions")
	}
	w := cmd.OutOrStdout()
	if v.Empty() {
		fmt.Fprintln(w, "No transactions found")
		return nil
	}
	printTransactions(w, v.Items)
	printFooter(w, v.Meta, "transactions")
	return nil
}

func (h *Handler) transactionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one transaction with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tx, err := h.txSvc.Get(ctx, args[0])
			if err != nil {
				return fail(err, "Transaction not found", "Failed to fetch transaction details")
			}
			if err := h.resolveBooks(ctx, tx.Items); err != nil {
				return fail(err, "", "Failed to fetch transaction details")
			}
			printTransaction(cmd.OutOrStdout(), tx)
			return nil
		},
	}
}

// resolveBooks fills in the books the server did not embed. A book that
// no longer exists stays empty and is shown as unknown.
func (h *Handler) resolveBooks(ctx context.Context, items []model.TransactionItem) error {
	gg, ctx := errgroup.WithContext(ctx)
	gg.SetLimit(bookLookupConcurrency)
	for i := range items {
		if items[i].Book != nil || items[i].BookID == "" {
			continue
		}
		item := &items[i]
		gg.Go(func() error {
			b, err := h.bookSvc.Get(ctx, item.BookID)
			if errs.IsNotFound(err) {
				h.log.Debug("book of transaction item is gone", zap.String("bookID", item.BookID))
				return nil
			}
			if err != nil {
				return err
			}
			item.Book = &b
			return nil
		})
	}
	return gg.Wait()
}

func (h *Handler) transactionCreateCmd() *cobra.Command {
	var items []string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Buy books",
		Example: "  bookstore transactions create --item 6f1c...:2 --item 9a7e...",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := parseOrderLines(items)
			if err != nil {
				return fail(err, "", "Failed to create transaction")
			}
			tx, err := h.txSvc.Create(cmd.Context(), model.CreateTransactionInput{Items: lines})
			if err != nil {
				return fail(err, "", "Failed to create transaction")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction created: %s, total %s\n\n", tx.ID, form.FormatPrice(tx.TotalPrice))
			return h.showTransactions(cmd, model.TransactionListSchema.Defaults)
		},
	}
	cmd.Flags().StringArrayVarP(&items, "item", "i", nil, "book to buy as <book-id>[:<quantity>], repeatable")
	return cmd
}

// parseOrderLines reads <book-id>[:<quantity>] pairs; the quantity
// defaults to 1. Quantities are checked by the service.
func parseOrderLines(raw []string) ([]model.OrderLine, error) {
	lines := make([]model.OrderLine, 0, len(raw))
	for _, r := range raw {
		id, qty, found := strings.Cut(strings.TrimSpace(r), ":")
		line := model.OrderLine{BookID: strings.TrimSpace(id), Quantity: 1}
		if found {
			n, _, err := form.ParseGrouped(qty)
			if err != nil {
				return nil, errs.ValidationErrors{"quantity": fmt.Sprintf("Invalid quantity in %q", r)}
			}
			line.Quantity = int(n)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (h *Handler) transactionStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show sales statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := h.txSvc.Statistics(cmd.Context())
			if err != nil {
				return fail(err, "", "Failed to fetch statistics")
			}
			printStatistics(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func printTransactions(w io.Writer, txs []model.Transaction) {
	fmt.Fprintf(w, "%-36s %-17s %6s %18s %-10s\n", "ID", "Date", "Books", "Total", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 92))
	for _, tx := range txs {
		fmt.Fprintf(w, "%-36s %-17s %6d %18s %-10s\n",
			tx.ID,
			formatDate(tx),
			tx.TotalAmount,
			form.FormatPrice(tx.TotalPrice),
			orDash(tx.Status))
	}
}

func printTransaction(w io.Writer, tx model.Transaction) {
	fmt.Fprintf(w, "Transaction %s\n", tx.ID)
	fmt.Fprintf(w, "Date:   %s\n", formatDate(tx))
	fmt.Fprintf(w, "Status: %s\n\n", orDash(tx.Status))

	fmt.Fprintf(w, "%-30s %5s %16s %18s\n", "Book", "Qty", "Price", "Subtotal")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, it := range tx.Items {
		fmt.Fprintf(w, "%-30s %5d %16s %18s\n",
			truncateString(it.Title(), 30),
			it.Quantity,
			form.FormatPrice(it.Price),
			form.FormatPrice(it.Subtotal()))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%-30s %5d %16s %18s\n", "Total", tx.TotalAmount, "", form.FormatPrice(tx.TotalPrice))
}

func printStatistics(w io.Writer, stats model.Statistics) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-24s %s\n", humanizeKey(k)+":", statValue(k, stats[k]))
	}
}

func statValue(key string, v any) string {
	n, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	if strings.Contains(key, "revenue") || strings.Contains(key, "price") {
		return form.FormatPrice(model.Amount(n))
	}
	if n == float64(int64(n)) {
		return form.FormatGrouped(int64(n))
	}
	return strconv.FormatFloat(n, 'f', 2, 64)
}

func humanizeKey(k string) string {
	s := strings.ReplaceAll(k, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatDate(tx model.Transaction) string {
	if tx.CreatedAt.IsZero() {
		return "-"
	}
	return tx.CreatedAt.Local().Format("2006-01-02 15:04")
}
