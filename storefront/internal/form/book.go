package form

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-client/pkg/validate"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

const (
	FieldTitle           = "title"
	FieldWriter          = "writer"
	FieldPublisher       = "publisher"
	FieldPrice           = "price"
	FieldStock           = "stock"
	FieldGenreID         = "genre_id"
	FieldISBN            = "isbn"
	FieldDescription     = "description"
	FieldPublicationYear = "publication_year"
	FieldCondition       = "condition"
)

const MaxImageSize = 5 << 20

var ErrNoChanges = errs.ValidationErrors{"book": "No changes to save"}

var bookMessages = validate.Messages{
	FieldTitle:           "Title is required",
	FieldWriter:          "Writer is required",
	FieldPrice:           "Price must be greater than 0",
	FieldStock:           "Stock cannot be negative",
	FieldGenreID:         "Genre is required",
	FieldPublicationYear: "Publication year must be a four digit year",
	FieldCondition:       "Condition must be new, used or refurbished",
}

var validator = validate.NewCustomValidator()

// bookDraft mirrors the writable fields of a book.
type bookDraft struct {
	Title           string `json:"title" validate:"required"`
	Writer          string `json:"writer" validate:"required"`
	Publisher       string `json:"publisher"`
	Price           int64  `json:"price" validate:"gt=0"`
	Stock           int    `json:"stock" validate:"gte=0"`
	GenreID         string `json:"genre_id" validate:"required"`
	ISBN            string `json:"isbn"`
	Description     string `json:"description"`
	PublicationYear int    `json:"publication_year" validate:"omitempty,gte=1000,lte=9999"`
	Condition       string `json:"condition" validate:"omitempty,oneof=new used refurbished"`
}

type BookCreator interface {
	Create(ctx context.Context, in model.BookInput) (model.Book, error)
	CreateWithAttachment(ctx context.Context, in model.BookInput, img model.Attachment) (model.Book, error)
}

type BookUpdater interface {
	Update(ctx context.Context, id string, patch model.BookPatch) (model.Book, error)
}

// BookForm is the add-book draft. Numeric fields keep a plain integer and
// a grouped-digit display of it in step.
type BookForm struct {
	draft   bookDraft
	display map[string]string
	errors  errs.ValidationErrors

	image   *model.Attachment
	preview string
}

func NewBookForm() *BookForm {
	f := &BookForm{
		draft:   bookDraft{Condition: string(model.ConditionNew)},
		display: make(map[string]string),
	}
	f.syncDisplay()
	return f
}

// SetField applies one edit. Numeric input that is not a number is
// rejected and the draft keeps its previous value.
func (f *BookForm) SetField(name, raw string) error {
	d := &f.draft
	switch name {
	case FieldTitle:
		d.Title = strings.TrimSpace(raw)
	case FieldWriter:
		d.Writer = strings.TrimSpace(raw)
	case FieldPublisher:
		d.Publisher = strings.TrimSpace(raw)
	case FieldGenreID:
		d.GenreID = strings.TrimSpace(raw)
	case FieldISBN:
		d.ISBN = strings.TrimSpace(raw)
	case FieldDescription:
		d.Description = strings.TrimSpace(raw)
	case FieldCondition:
		d.Condition = strings.ToLower(strings.TrimSpace(raw))
	case FieldPrice, FieldStock, FieldPublicationYear:
		n, _, err := ParseGrouped(raw)
		if errors.Is(err, errFraction) {
			return errs.ValidationErrors{name: humanName(name) + " must be a whole number"}
		}
		if err != nil {
			return errs.ValidationErrors{name: humanName(name) + " must be a number"}
		}
		switch name {
		case FieldPrice:
			d.Price = n
		case FieldStock:
			d.Stock = int(n)
		default:
			d.PublicationYear = int(n)
		}
	default:
		return errors.Errorf("unknown book field %q", name)
	}
	f.syncDisplay()
	delete(f.errors, name)
	return nil
}

// Display is what the field shows, "45.000" for a price of 45000.
func (f *BookForm) Display(name string) string {
	return f.display[name]
}

// SetImage attaches a cover. Only image content up to MaxImageSize is
// accepted; the preview is a data URL and is never submitted.
func (f *BookForm) SetImage(name string, data []byte) error {
	if len(data) == 0 {
		return errs.ValidationErrors{"image": "Image is empty"}
	}
	if len(data) > MaxImageSize {
		return errs.ValidationErrors{"image": "Image must be 5MB or smaller"}
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return errs.ValidationErrors{"image": "File must be an image"}
	}
	f.image = &model.Attachment{Name: name, ContentType: ct, Data: data}
	f.preview = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
	return nil
}

func (f *BookForm) RemoveImage() {
	f.image = nil
	f.preview = ""
}

func (f *BookForm) HasImage() bool {
	return f.image != nil
}

func (f *BookForm) Preview() string {
	return f.preview
}

// Validate checks the draft and remembers the result for Errors.
func (f *BookForm) Validate() errs.ValidationErrors {
	fields, err := validator.Fields(f.draft, bookMessages)
	if err != nil {
		f.errors = errs.ValidationErrors{"book": err.Error()}
		return f.errors
	}
	if len(fields) == 0 {
		f.errors = nil
		return nil
	}
	f.errors = errs.ValidationErrors(fields)
	return f.errors
}

func (f *BookForm) Errors() errs.ValidationErrors {
	return f.errors
}

// Input is the create payload; optional fields left empty stay empty and
// are omitted on the wire.
func (f *BookForm) Input() model.BookInput {
	d := f.draft
	return model.BookInput{
		Title:           d.Title,
		Writer:          d.Writer,
		Publisher:       d.Publisher,
		Price:           model.Amount(d.Price),
		Stock:           d.Stock,
		GenreID:         d.GenreID,
		ISBN:            d.ISBN,
		Description:     d.Description,
		PublicationYear: d.PublicationYear,
		Condition:       model.Condition(d.Condition),
	}
}

// Submit sends the draft unless it has errors, in which case nothing is
// sent and the errors are returned.
func (f *BookForm) Submit(ctx context.Context, svc BookCreator) (model.Book, error) {
	if verrs := f.Validate(); verrs != nil {
		return model.Book{}, verrs
	}
	if f.image != nil {
		return svc.CreateWithAttachment(ctx, f.Input(), *f.image)
	}
	return svc.Create(ctx, f.Input())
}

func (f *BookForm) syncDisplay() {
	d := f.draft
	f.display[FieldTitle] = d.Title
	f.display[FieldWriter] = d.Writer
	f.display[FieldPublisher] = d.Publisher
	f.display[FieldGenreID] = d.GenreID
	f.display[FieldISBN] = d.ISBN
	f.display[FieldDescription] = d.Description
	f.display[FieldCondition] = d.Condition
	f.display[FieldPrice] = FormatGrouped(d.Price)
	f.display[FieldStock] = FormatGrouped(int64(d.Stock))
	f.display[FieldPublicationYear] = ""
	if d.PublicationYear != 0 {
		// years are not grouped
		f.display[FieldPublicationYear] = strconv.Itoa(d.PublicationYear)
	}
}

// EditBookForm starts from an existing book and submits only what changed.
type EditBookForm struct {
	BookForm
	id       string
	original bookDraft
}

func NewEditBookForm(b model.Book) *EditBookForm {
	d := bookDraft{
		Title:           b.Title,
		Writer:          b.Writer,
		Publisher:       b.Publisher,
		Price:           int64(b.Price),
		Stock:           b.Stock,
		GenreID:         b.GenreID,
		ISBN:            b.ISBN,
		Description:     b.Description,
		PublicationYear: b.PublicationYear,
		Condition:       string(b.Condition),
	}
	f := &EditBookForm{
		BookForm: BookForm{draft: d, display: make(map[string]string)},
		id:       b.ID,
		original: d,
	}
	f.syncDisplay()
	return f
}

func (f *EditBookForm) Changes() model.BookPatch {
	var p model.BookPatch
	o, d := f.original, f.draft
	if d.Title != o.Title {
		p.Title = &d.Title
	}
	if d.Writer != o.Writer {
		p.Writer = &d.Writer
	}
	if d.Publisher != o.Publisher {
		p.Publisher = &d.Publisher
	}
	if d.Price != o.Price {
		price := model.Amount(d.Price)
		p.Price = &price
	}
	if d.Stock != o.Stock {
		p.Stock = &d.Stock
	}
	if d.GenreID != o.GenreID {
		p.GenreID = &d.GenreID
	}
	if d.ISBN != o.ISBN {
		p.ISBN = &d.ISBN
	}
	if d.Description != o.Description {
		p.Description = &d.Description
	}
	if d.PublicationYear != o.PublicationYear {
		p.PublicationYear = &d.PublicationYear
	}
	if d.Condition != o.Condition {
		c := model.Condition(d.Condition)
		p.Condition = &c
	}
	return p
}

func (f *EditBookForm) Submit(ctx context.Context, svc BookUpdater) (model.Book, error) {
	if verrs := f.Validate(); verrs != nil {
		return model.Book{}, verrs
	}
	patch := f.Changes()
	if patch.Empty() {
		return model.Book{}, ErrNoChanges
	}
	return svc.Update(ctx, f.id, patch)
}

func humanName(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
