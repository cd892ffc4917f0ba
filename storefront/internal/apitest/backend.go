// Package apitest runs an in-process imitation of the bookstore API for
// tests. It reproduces the real server's inconsistent envelopes: books come
// as {data:{data,meta}}, genres with Laravel style meta, transactions as a
// bare {data:[...]}.
package apitest

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/middleware"
	"github.com/Astemirdum/bookstore-client/pkg/validate"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	RequestID     string
	ContentType   string
	Body          []byte
}

type failure struct {
	status int
	body   string
}

type account struct {
	user     model.User
	password string
}

type Backend struct {
	srv *httptest.Server
	log *zap.Logger

	mu           sync.Mutex
	accounts     map[string]account
	tokens       map[string]string
	books        map[string]model.Book
	genres       map[string]model.Genre
	transactions []model.Transaction
	requests     []Request
	failures     map[string]failure
	images       map[string]string
}

func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		log:      zap.NewNop(),
		accounts: make(map[string]account),
		tokens:   make(map[string]string),
		books:    make(map[string]model.Book),
		genres:   make(map[string]model.Genre),
		failures: make(map[string]failure),
		images:   make(map[string]string),
	}
	b.srv = httptest.NewServer(b.router())
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the API base URL to configure a client with.
func (b *Backend) URL() string {
	return b.srv.URL + "/api"
}

func (b *Backend) AddUser(email, password, name string) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := model.User{ID: uuid.NewString(), Email: email, Name: name}
	b.accounts[email] = account{user: u, password: password}
	return u
}

// IssueToken logs a user in on the server side only.
func (b *Backend) IssueToken(u model.User) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok := uuid.NewString()
	b.tokens[tok] = u.ID
	return tok
}

func (b *Backend) AddGenre(name string) model.Genre {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := model.Genre{ID: uuid.NewString(), Name: name}
	b.genres[g.ID] = g
	return g
}

func (b *Backend) AddBook(bk model.Book) model.Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bk.ID == "" {
		bk.ID = uuid.NewString()
	}
	b.books[bk.ID] = bk
	return bk
}

func (b *Backend) Book(id string) (model.Book, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.books[id]
	return bk, ok
}

// ImageOf returns the file name uploaded with a book, "" if none.
func (b *Backend) ImageOf(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.images[id]
}

// Fail makes every following request to method+path answer status and body.
func (b *Backend) Fail(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, body: body}
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Hits counts requests to method+path, query excluded.
func (b *Backend) Hits(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) LastRequest() (Request, bool) {
	reqs := b.Requests()
	if len(reqs) == 0 {
		return Request{}, false
	}
	return reqs[len(reqs)-1], true
}

func (b *Backend) router() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.NewCustomValidator()
	e.Use(
		echomw.RequestID(),
		echomw.RequestLoggerWithConfig(middleware.RequestLoggerConfig(b.log)),
		b.record,
		b.inject,
	)

	api := e.Group("/api")
	api.POST("/auth/login", b.login)
	api.POST("/auth/register", b.register)

	authed := api.Group("", middleware.BearerAuth(b.userByToken))
	authed.GET("/books", b.listBooks)
	authed.GET("/books/:id", b.getBook)
	authed.POST("/books", b.createBook)
	authed.PUT("/books/:id", b.updateBook)
	authed.DELETE("/books/:id", b.deleteBook)

	authed.GET("/genre", b.listGenres)
	authed.GET("/genre/:id", b.getGenre)
	authed.POST("/genre", b.createGenre)
	authed.PATCH("/genre/:id", b.updateGenre)
	authed.DELETE("/genre/:id", b.deleteGenre)

	authed.GET("/transactions", b.listTransactions)
	authed.GET("/transactions/statistics", b.statistics)
	authed.GET("/transactions/:id", b.getTransaction)
	authed.POST("/transactions", b.createTransaction)
	return e
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Query:         r.URL.Query(),
			Authorization: r.Header.Get(echo.HeaderAuthorization),
			RequestID:     r.Header.Get(echo.HeaderXRequestID),
			ContentType:   r.Header.Get(echo.HeaderContentType),
			Body:          body,
		})
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + strings.TrimPrefix(c.Request().URL.Path, "/api")
		b.mu.Lock()
		f, ok := b.failures[key]
		b.mu.Unlock()
		if ok {
			return c.Blob(f.status, echo.MIMEApplicationJSON, []byte(f.body))
		}
		return next(c)
	}
}

func (b *Backend) userByToken(token string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.tokens[token]
	return uid, ok
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

func (b *Backend) login(c echo.Context) error {
	var creds model.LoginCredentials
	if err := c.Bind(&creds); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	b.mu.Lock()
	acc, ok := b.accounts[creds.Email]
	b.mu.Unlock()
	if !ok || acc.password != creds.Password {
		return message(c, http.StatusUnauthorized, "Invalid credentials")
	}
	tok := b.IssueToken(acc.user)
	return c.JSON(http.StatusOK, echo.Map{"data": model.AuthResponse{Token: tok, User: acc.user}})
}

func (b *Backend) register(c echo.Context) error {
	var data model.RegisterData
	if err := c.Bind(&data); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	if err := c.Validate(data); err != nil {
		return message(c, http.StatusUnprocessableEntity, "The given data was invalid.")
	}
	b.mu.Lock()
	_, taken := b.accounts[data.Email]
	b.mu.Unlock()
	if taken {
		return message(c, http.StatusUnprocessableEntity, "The email has already been taken.")
	}
	u := b.AddUser(data.Email, data.Password, data.Name)
	tok := b.IssueToken(u)
	return c.JSON(http.StatusCreated, echo.Map{"data": model.AuthResponse{Token: tok, User: u}})
}

type pageQuery struct {
	search  string
	sort    string
	order   string
	page    int
	perPage int
}

func readPage(c echo.Context, defaultPerPage int) pageQuery {
	q := pageQuery{
		search:  strings.ToLower(c.QueryParam("search")),
		sort:    c.QueryParam("sort"),
		order:   c.QueryParam("order"),
		page:    1,
		perPage: defaultPerPage,
	}
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		q.page = p
	}
	if p, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && p > 0 {
		q.perPage = p
	}
	return q
}

func paginate[T any](items []T, q pageQuery) ([]T, int) {
	totalPages := int(math.Ceil(float64(len(items)) / float64(q.perPage)))
	from := (q.page - 1) * q.perPage
	if from >= len(items) {
		return []T{}, totalPages
	}
	to := from + q.perPage
	if to > len(items) {
		to = len(items)
	}
	return items[from:to], totalPages
}

func (b *Backend) listBooks(c echo.Context) error {
	q := readPage(c, 12)
	cond := c.QueryParam("condition")

	b.mu.Lock()
	books := make([]model.Book, 0, len(b.books))
	for _, bk := range b.books {
		if q.search != "" &&
			!strings.Contains(strings.ToLower(bk.Title), q.search) &&
			!strings.Contains(strings.ToLower(bk.Writer), q.search) {
			continue
		}
		if cond != "" && string(bk.Condition) != cond {
			continue
		}
		if g, ok := b.genres[bk.GenreID]; ok {
			g := g
			bk.Genre = &g
		}
		books = append(books, bk)
	}
	b.mu.Unlock()

	sort.SliceStable(books, func(i, j int) bool {
		a, z := books[i], books[j]
		if q.order == "desc" {
			a, z = z, a
		}
		if q.sort == "publication_year" {
			return a.PublicationYear < z.PublicationYear
		}
		return a.Title < z.Title
	})
	page, totalPages := paginate(books, q)
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"data": page,
			"meta": echo.Map{"page": q.page, "totalPages": totalPages, "total": len(books)},
		},
	})
}

func (b *Backend) getBook(c echo.Context) error {
	b.mu.Lock()
	bk, ok := b.books[c.Param("id")]
	b.mu.Unlock()
	if !ok {
		return message(c, http.StatusNotFound, "Book not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": bk})
}

type bookRequest struct {
	Title           string `json:"title" form:"title" validate:"required"`
	Writer          string `json:"writer" form:"writer" validate:"required"`
	Publisher       string `json:"publisher" form:"publisher"`
	Price           int64  `json:"price" form:"price" validate:"gt=0"`
	Stock           int    `json:"stock" form:"stock" validate:"gte=0"`
	GenreID         string `json:"genre_id" form:"genre_id" validate:"required"`
	ISBN            string `json:"isbn" form:"isbn"`
	Description     string `json:"description" form:"description"`
	PublicationYear int    `json:"publication_year" form:"publication_year"`
	Condition       string `json:"condition" form:"condition"`
}

func (b *Backend) createBook(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	if err := c.Validate(req); err != nil {
		return message(c, http.StatusUnprocessableEntity, "The given data was invalid.")
	}
	now := time.Now().UTC()
	bk := model.Book{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Writer:          req.Writer,
		Publisher:       req.Publisher,
		Price:           model.Amount(req.Price),
		Stock:           req.Stock,
		GenreID:         req.GenreID,
		ISBN:            req.ISBN,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		Condition:       model.Condition(req.Condition),
		CreatedAt:       &now,
	}
	if fh, err := c.FormFile("image"); err == nil {
		bk.BookImage = "/storage/books/" + fh.Filename
		b.mu.Lock()
		b.images[bk.ID] = fh.Filename
		b.mu.Unlock()
	}
	b.AddBook(bk)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Book created", "data": bk})
}

func (b *Backend) updateBook(c echo.Context) error {
	var patch model.BookPatch
	if err := c.Bind(&patch); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.books[c.Param("id")]
	if !ok {
		return message(c, http.StatusNotFound, "Book not found")
	}
	applyPatch(&bk, patch)
	b.books[bk.ID] = bk
	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"data": bk}})
}

func applyPatch(bk *model.Book, p model.BookPatch) {
	if p.Title != nil {
		bk.Title = *p.Title
	}
	if p.Writer != nil {
		bk.Writer = *p.Writer
	}
	if p.Publisher != nil {
		bk.Publisher = *p.Publisher
	}
	if p.Price != nil {
		bk.Price = *p.Price
	}
	if p.Stock != nil {
		bk.Stock = *p.Stock
	}
	if p.GenreID != nil {
		bk.GenreID = *p.GenreID
	}
	if p.ISBN != nil {
		bk.ISBN = *p.ISBN
	}
	if p.Description != nil {
		bk.Description = *p.Description
	}
	if p.PublicationYear != nil {
		bk.PublicationYear = *p.PublicationYear
	}
	if p.Condition != nil {
		bk.Condition = *p.Condition
	}
}

func (b *Backend) deleteBook(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := c.Param("id")
	if _, ok := b.books[id]; !ok {
		return message(c, http.StatusNotFound, "Book not found")
	}
	delete(b.books, id)
	return message(c, http.StatusOK, "Book deleted")
}

func (b *Backend) listGenres(c echo.Context) error {
	q := readPage(c, 10)
	b.mu.Lock()
	genres := make([]model.Genre, 0, len(b.genres))
	for _, g := range b.genres {
		if q.search == "" || strings.Contains(strings.ToLower(g.Name), q.search) {
			genres = append(genres, g)
		}
	}
	b.mu.Unlock()
	sort.Slice(genres, func(i, j int) bool {
		if q.order == "desc" {
			return genres[i].Name > genres[j].Name
		}
		return genres[i].Name < genres[j].Name
	})
	page, totalPages := paginate(genres, q)
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{"data": page},
		"meta": echo.Map{"current_page": q.page, "last_page": totalPages, "per_page": q.perPage, "total": len(genres)},
	})
}

func (b *Backend) getGenre(c echo.Context) error {
	b.mu.Lock()
	g, ok := b.genres[c.Param("id")]
	b.mu.Unlock()
	if !ok {
		return message(c, http.StatusNotFound, "Genre not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": g})
}

type genreRequest struct {
	Name string `json:"name" validate:"required"`
}

func (b *Backend) createGenre(c echo.Context) error {
	var req genreRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	if err := c.Validate(req); err != nil {
		return message(c, http.StatusUnprocessableEntity, "The name field is required.")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": b.AddGenre(req.Name)})
}

func (b *Backend) updateGenre(c echo.Context) error {
	var req genreRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.genres[c.Param("id")]
	if !ok {
		return message(c, http.StatusNotFound, "Genre not found")
	}
	g.Name = req.Name
	b.genres[g.ID] = g
	return c.JSON(http.StatusOK, echo.Map{"data": g})
}

func (b *Backend) deleteGenre(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := c.Param("id")
	if _, ok := b.genres[id]; !ok {
		return message(c, http.StatusNotFound, "Genre not found")
	}
	delete(b.genres, id)
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) listTransactions(c echo.Context) error {
	uid, _ := c.Get(middleware.UserIDKey).(string)
	b.mu.Lock()
	out := make([]model.Transaction, 0, len(b.transactions))
	for i := len(b.transactions) - 1; i >= 0; i-- {
		if b.transactions[i].UserID == uid {
			out = append(out, b.transactions[i])
		}
	}
	b.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func (b *Backend) getTransaction(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tx := range b.transactions {
		if tx.ID == c.Param("id") {
			return c.JSON(http.StatusOK, echo.Map{"data": tx})
		}
	}
	return message(c, http.StatusNotFound, "Transaction not found")
}

func (b *Backend) createTransaction(c echo.Context) error {
	var in model.CreateTransactionInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Malformed request")
	}
	if err := c.Validate(in); err != nil {
		return message(c, http.StatusUnprocessableEntity, "The items field is required.")
	}
	uid, _ := c.Get(middleware.UserIDKey).(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range in.Items {
		bk, ok := b.books[l.BookID]
		if !ok {
			return message(c, http.StatusNotFound, "Book not found")
		}
		if bk.Stock < l.Quantity {
			return message(c, http.StatusUnprocessableEntity, fmt.Sprintf("Insufficient stock for %s", bk.Title))
		}
	}
	tx := model.Transaction{
		ID:        uuid.NewString(),
		UserID:    uid,
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
	}
	for _, l := range in.Items {
		bk := b.books[l.BookID]
		bk.Stock -= l.Quantity
		b.books[bk.ID] = bk
		item := model.TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: tx.ID,
			BookID:        bk.ID,
			Book:          &bk,
			Quantity:      l.Quantity,
			Price:         bk.Price,
		}
		tx.Items = append(tx.Items, item)
		tx.TotalAmount += l.Quantity
		tx.TotalPrice += item.Subtotal()
	}
	b.transactions = append(b.transactions, tx)
	return c.JSON(http.StatusCreated, echo.Map{"data": tx})
}

func (b *Backend) statistics(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var revenue model.Amount
	books := 0
	for _, tx := range b.transactions {
		revenue += tx.TotalPrice
		books += tx.TotalAmount
	}
	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{
		"total_transactions": len(b.transactions),
		"total_books_sold":   books,
		"total_revenue":      revenue,
	}})
}
