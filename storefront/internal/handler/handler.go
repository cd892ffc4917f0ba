// Package handler mounts the storefront pages as cobra commands.
package handler

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
)

// annotationPublic marks commands that can run without a session.
const annotationPublic = "public"

type Handler struct {
	log *zap.Logger

	authSvc  AuthService
	bookSvc  BookService
	genreSvc GenreService
	txSvc    TransactionService
	cart     CartStore

	password PasswordReader
}

type Services struct {
	Auth         AuthService
	Books        BookService
	Genres       GenreService
	Transactions TransactionService
	Cart         CartStore
}

type Option func(h *Handler)

// WithPasswordReader replaces the no-echo terminal prompt.
func WithPasswordReader(r PasswordReader) Option {
	return func(h *Handler) { h.password = r }
}

func New(log *zap.Logger, svc Services, opts ...Option) *Handler {
	h := &Handler{
		log:      log.Named("handler"),
		authSvc:  svc.Auth,
		bookSvc:  svc.Books,
		genreSvc: svc.Genres,
		txSvc:    svc.Transactions,
		cart:     svc.Cart,
		password: terminalPassword,
	}
	for _, op := range opts {
		op(h)
	}
	return h
}

// NewRootCommand builds the command tree. Every command needs a session
// except the ones annotated public.
func (h *Handler) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookstore",
		Short:         "Browse and manage the bookstore from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return h.guard(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		h.loginCmd(),
		h.registerCmd(),
		h.logoutCmd(),
		h.whoamiCmd(),
		h.booksCmd(),
		h.genresCmd(),
		h.transactionsCmd(),
		h.cartCmd(),
	)
	return root
}

func (h *Handler) guard(cmd *cobra.Command) error {
	if isPublic(cmd) {
		return nil
	}
	if _, ok := h.authSvc.CurrentUser(); !ok {
		h.log.Debug("route guard", zap.String("command", cmd.CommandPath()))
		return fail(errs.ErrUnauthenticated, "", "")
	}
	return nil
}

func isPublic(cmd *cobra.Command) bool {
	if cmd.Name() == "help" {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationPublic] == "true" {
			return true
		}
	}
	return false
}

func public() map[string]string {
	return map[string]string{annotationPublic: "true"}
}
