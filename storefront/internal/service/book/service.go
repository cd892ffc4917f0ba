package book

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/envelope"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

const (
	basePath   = "/books"
	ImageField = "image"
)

type Service struct {
	log *zap.Logger
	api transport.Requester
}

func NewService(log *zap.Logger, api transport.Requester) *Service {
	return &Service{
		log: log.Named("book"),
		api: api,
	}
}

func (s *Service) List(ctx context.Context, f model.ListFilter) (model.Page[model.Book], error) {
	if err := model.BookListSchema.Validate(f); err != nil {
		return model.Page[model.Book]{}, err
	}
	data, err := s.api.Get(ctx, basePath, f.Values())
	if err != nil {
		return model.Page[model.Book]{}, err
	}
	return envelope.List[model.Book](data)
}

func (s *Service) Get(ctx context.Context, id string) (model.Book, error) {
	if id == "" {
		return model.Book{}, errs.ValidationErrors{"id": "Book id is required"}
	}
	data, err := s.api.Get(ctx, itemPath(id), nil)
	if err != nil {
		return model.Book{}, err
	}
	return envelope.Item[model.Book](data)
}

func (s *Service) Create(ctx context.Context, in model.BookInput) (model.Book, error) {
	data, err := s.api.Post(ctx, basePath, in)
	if err != nil {
		return model.Book{}, err
	}
	return envelope.Item[model.Book](data)
}

// CreateWithAttachment sends the book as multipart form data with the image
// as a file part.
func (s *Service) CreateWithAttachment(ctx context.Context, in model.BookInput, img model.Attachment) (model.Book, error) {
	form := Multipart(in)
	form.Files = append(form.Files, transport.File{
		Field:       ImageField,
		Name:        img.Name,
		ContentType: img.ContentType,
		Data:        img.Data,
	})
	data, err := s.api.PostMultipart(ctx, basePath, form)
	if err != nil {
		return model.Book{}, err
	}
	return envelope.Item[model.Book](data)
}

// Update sends only the fields set in patch.
func (s *Service) Update(ctx context.Context, id string, patch model.BookPatch) (model.Book, error) {
	if id == "" {
		return model.Book{}, errs.ValidationErrors{"id": "Book id is required"}
	}
	if patch.Empty() {
		return model.Book{}, errs.ValidationErrors{"book": "No changes to save"}
	}
	data, err := s.api.Put(ctx, itemPath(id), patch)
	if err != nil {
		return model.Book{}, err
	}
	return envelope.Item[model.Book](data)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrors{"id": "Book id is required"}
	}
	_, err := s.api.Delete(ctx, itemPath(id))
	return err
}

// Multipart serializes the scalar fields of in as strings. Optional fields
// that were left empty are omitted.
func Multipart(in model.BookInput) transport.Multipart {
	var m transport.Multipart
	m.Add("title", in.Title)
	m.Add("writer", in.Writer)
	if in.Publisher != "" {
		m.Add("publisher", in.Publisher)
	}
	m.Add("price", strconv.FormatInt(int64(in.Price), 10))
	m.Add("stock", strconv.Itoa(in.Stock))
	m.Add("genre_id", in.GenreID)
	if in.ISBN != "" {
		m.Add("isbn", in.ISBN)
	}
	if in.Description != "" {
		m.Add("description", in.Description)
	}
	if in.PublicationYear > 0 {
		m.Add("publication_year", strconv.Itoa(in.PublicationYear))
	}
	if in.Condition != "" {
		m.Add("condition", string(in.Condition))
	}
	return m
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
