package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterData struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Amount is a price in the smallest currency unit. The API is not
// consistent about sending numbers or decimal strings, both are accepted.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*a = Amount(math.Round(f))
	return nil
}

type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Book struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Writer          string     `json:"writer"`
	Publisher       string     `json:"publisher,omitempty"`
	Price           Amount     `json:"price"`
	Stock           int        `json:"stock"`
	GenreID         string     `json:"genre_id"`
	Genre           *Genre     `json:"genre,omitempty"`
	ISBN            string     `json:"isbn,omitempty"`
	Description     string     `json:"description,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Condition       Condition  `json:"condition,omitempty"`
	BookImage       string     `json:"book_image,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON also accepts stock_quantity, used by an older iteration of
// the API.
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	aux := struct {
		*plain
		Stock         *int `json:"stock"`
		StockQuantity *int `json:"stock_quantity"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Stock != nil:
		b.Stock = *aux.Stock
	case aux.StockQuantity != nil:
		b.Stock = *aux.StockQuantity
	}
	return nil
}

func (b Book) InStock() bool {
	return b.Stock > 0
}

// BookInput is the create payload.
type BookInput struct {
	Title           string    `json:"title"`
	Writer          string    `json:"writer"`
	Publisher       string    `json:"publisher,omitempty"`
	Price           Amount    `json:"price"`
	Stock           int       `json:"stock"`
	GenreID         string    `json:"genre_id"`
	ISBN            string    `json:"isbn,omitempty"`
	Description     string    `json:"description,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Condition       Condition `json:"condition,omitempty"`
}

// BookPatch carries only the fields being changed.
type BookPatch struct {
	Title           *string    `json:"title,omitempty"`
	Writer          *string    `json:"writer,omitempty"`
	Publisher       *string    `json:"publisher,omitempty"`
	Price           *Amount    `json:"price,omitempty"`
	Stock           *int       `json:"stock,omitempty"`
	GenreID         *string    `json:"genre_id,omitempty"`
	ISBN            *string    `json:"isbn,omitempty"`
	Description     *string    `json:"description,omitempty"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	Condition       *Condition `json:"condition,omitempty"`
}

func (p BookPatch) Empty() bool {
	return p == BookPatch{}
}

type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Items       []TransactionItem `json:"items,omitempty"`
	TotalPrice  Amount            `json:"total_price"`
	TotalAmount int               `json:"total_amount"`
	Status      string            `json:"status,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// UnmarshalJSON also accepts order_id for the id.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		OrderID string `json:"order_id"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = aux.OrderID
	}
	return nil
}

type TransactionItem struct {
	ID            string `json:"id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	BookID        string `json:"book_id"`
	Book          *Book  `json:"book,omitempty"`
	Quantity      int    `json:"quantity"`
	Price         Amount `json:"price"`
}

// UnmarshalJSON also accepts price_each for the unit price.
func (i *TransactionItem) UnmarshalJSON(data []byte) error {
	type plain TransactionItem
	aux := struct {
		*plain
		Price     *Amount `json:"price"`
		PriceEach *Amount `json:"price_each"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.Price != nil:
		i.Price = *aux.Price
	case aux.PriceEach != nil:
		i.Price = *aux.PriceEach
	}
	return nil
}

// Subtotal is always computed locally, whatever the server rounded to.
func (i TransactionItem) Subtotal() Amount {
	return Amount(i.Quantity) * i.Price
}

func (i TransactionItem) Title() string {
	if i.Book != nil && i.Book.Title != "" {
		return i.Book.Title
	}
	return "Unknown Book"
}

type OrderLine struct {
	BookID   string `json:"book_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type CreateTransactionInput struct {
	Items []OrderLine `json:"items" validate:"required,min=1,dive"`
}

// Statistics is passed through as the server shaped it.
type Statistics map[string]any

// Attachment is a file picked for upload, such as a book cover.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}
