package handler

import (
	"context"

	"github.com/Astemirdum/bookstore-client/storefront/internal/cart"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/auth"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/book"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/genre"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/transaction"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ AuthService        = (*auth.Service)(nil)
	_ BookService        = (*book.Service)(nil)
	_ GenreService       = (*genre.Service)(nil)
	_ TransactionService = (*transaction.Service)(nil)
	_ CartStore          = (*cart.Cart)(nil)
)

type AuthService interface {
	Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser() (model.User, bool)
}

type BookService interface {
	List(ctx context.Context, f model.ListFilter) (model.Page[model.Book], error)
	Get(ctx context.Context, id string) (model.Book, error)
	Create(ctx context.Context, in model.BookInput) (model.Book, error)
	CreateWithAttachment(ctx context.Context, in model.BookInput, img model.Attachment) (model.Book, error)
	Update(ctx context.Context, id string, patch model.BookPatch) (model.Book, error)
	Delete(ctx context.Context, id string) error
}

type GenreService interface {
	List(ctx context.Context, f model.ListFilter) (model.Page[model.Genre], error)
	Get(ctx context.Context, id string) (model.Genre, error)
	Create(ctx context.Context, name string) (model.Genre, error)
	Update(ctx context.Context, id, name string) (model.Genre, error)
	Delete(ctx context.Context, id string) error
}

type TransactionService interface {
	List(ctx context.Context, f model.ListFilter) (model.Page[model.Transaction], error)
	Get(ctx context.Context, id string) (model.Transaction, error)
	Create(ctx context.Context, in model.CreateTransactionInput) (model.Transaction, error)
	Statistics(ctx context.Context) (model.Statistics, error)
}

type CartStore interface {
	Add(ctx context.Context, b model.Book) error
	SetQuantity(ctx context.Context, bookID string, qty int) error
	Remove(ctx context.Context, bookID string) error
	Clear(ctx context.Context) error
	Items() []cart.Item
	Count() int
	Total() model.Amount
	Checkout(ctx context.Context, books cart.BookReader, txs cart.TransactionCreator) (model.Transaction, error)
}
