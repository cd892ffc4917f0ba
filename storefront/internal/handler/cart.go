package handler

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/bookstore-client/storefront/internal/cart"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/form"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func (h *Handler) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Collect books and buy them in one transaction",
	}
	cmd.AddCommand(
		h.cartAddCmd(),
		h.cartSetCmd(),
		h.cartRemoveCmd(),
		h.cartListCmd(),
		h.cartClearCmd(),
		h.cartCheckoutCmd(),
	)
	return cmd
}

func (h *Handler) cartAddCmd() *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Put a book in the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if quantity < 1 {
				return fail(errs.ValidationErrors{"quantity": "Quantity must be greater than 0"}, "", "")
			}
			ctx := cmd.Context()
			b, err := h.bookSvc.Get(ctx, args[0])
			if err != nil {
				return fail(err, "Book not found", "Failed to fetch book details")
			}
			if err := h.cart.Add(ctx, b); err != nil {
				return fail(err, "", "Failed to update cart")
			}
			if quantity > 1 {
				if err := h.cart.SetQuantity(ctx, b.ID, quantityOf(h.cart.Items(), b.ID)+quantity-1); err != nil {
					return fail(err, "", "Failed to update cart")
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to the cart\n", b.Title)
			h.printCartSummary(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "copies to add")
	return cmd
}

func (h *Handler) cartSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <book-id> <quantity>",
		Short: "Change how many copies of a book are in the cart, 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fail(errs.ValidationErrors{"quantity": "Quantity must be a number"}, "", "")
			}
			if err := h.cart.SetQuantity(cmd.Context(), args[0], qty); err != nil {
				return fail(err, "", "Failed to update cart")
			}
			h.printCartSummary(cmd.OutOrStdout())
			return nil
		},
	}
}

func (h *Handler) cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Take a book out of the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := h.cart.Remove(cmd.Context(), args[0]); err != nil {
				return fail(err, "", "Failed to update cart")
			}
			h.printCartSummary(cmd.OutOrStdout())
			return nil
		},
	}
}

func (h *Handler) cartListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items := h.cart.Items()
			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, "Your cart is empty")
				return nil
			}
			printCart(w, items, h.cart.Total())
			return nil
		},
	}
}

func (h *Handler) cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.cart.Clear(cmd.Context()); err != nil {
				return fail(err, "", "Failed to update cart")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Your cart is empty")
			return nil
		},
	}
}

func (h *Handler) cartCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Buy everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := h.cart.Checkout(cmd.Context(), h.bookSvc, h.txSvc)
			if err != nil {
				return fail(err, "Book not found", "Failed to create transaction")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction created: %s, total %s\n\n", tx.ID, form.FormatPrice(tx.TotalPrice))
			return h.showTransactions(cmd, model.TransactionListSchema.Defaults)
		},
	}
}

func (h *Handler) printCartSummary(w io.Writer) {
	fmt.Fprintf(w, "Cart: %d item(s), total %s\n", h.cart.Count(), form.FormatPrice(h.cart.Total()))
}

func printCart(w io.Writer, items []cart.Item, total model.Amount) {
	fmt.Fprintf(w, "%-36s %-30s %5s %16s %18s\n", "Book ID", "Title", "Qty", "Price", "Subtotal")
	fmt.Fprintln(w, strings.Repeat("-", 109))
	for _, it := range items {
		fmt.Fprintf(w, "%-36s %-30s %5d %16s %18s\n",
			it.Book.ID,
			truncateString(it.Book.Title, 30),
			it.Quantity,
			form.FormatPrice(it.Book.Price),
			form.FormatPrice(it.Subtotal()))
	}
	fmt.Fprintln(w, strings.Repeat("-", 109))
	fmt.Fprintf(w, "%-36s %-30s %5s %16s %18s\n", "", "Total", "", "", form.FormatPrice(total))
}

func quantityOf(items []cart.Item, bookID string) int {
	for _, it := range items {
		if it.Book.ID == bookID {
			return it.Quantity
		}
	}
	return 0
}
