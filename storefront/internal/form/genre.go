package form

import (
	"context"
	"strings"

	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

type GenreWriter interface {
	Create(ctx context.Context, name string) (model.Genre, error)
	Update(ctx context.Context, id, name string) (model.Genre, error)
}

// GenreForm creates a genre, or renames one when built from an existing
// genre.
type GenreForm struct {
	id   string
	Name string
}

func NewGenreForm() *GenreForm {
	return &GenreForm{}
}

func EditGenreForm(g model.Genre) *GenreForm {
	return &GenreForm{id: g.ID, Name: g.Name}
}

func (f *GenreForm) Validate() errs.ValidationErrors {
	if strings.TrimSpace(f.Name) == "" {
		return errs.ValidationErrors{"name": "Genre name is required"}
	}
	return nil
}

func (f *GenreForm) Submit(ctx context.Context, svc GenreWriter) (model.Genre, error) {
	if verrs := f.Validate(); verrs != nil {
		return model.Genre{}, verrs
	}
	if f.id != "" {
		return svc.Update(ctx, f.id, f.Name)
	}
	return svc.Create(ctx, f.Name)
}
