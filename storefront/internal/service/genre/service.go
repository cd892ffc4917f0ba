package genre

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/envelope"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

const basePath = "/genre"

type Service struct {
	log *zap.Logger
	api transport.Requester
}

func NewService(log *zap.Logger, api transport.Requester) *Service {
	return &Service{
		log: log.Named("genre"),
		api: api,
	}
}

type nameBody struct {
	Name string `json:"name"`
}

func (s *Service) List(ctx context.Context, f model.ListFilter) (model.Page[model.Genre], error) {
	if err := model.GenreListSchema.Validate(f); err != nil {
		return model.Page[model.Genre]{}, err
	}
	data, err := s.api.Get(ctx, basePath, f.Values())
	if err != nil {
		return model.Page[model.Genre]{}, err
	}
	return envelope.List[model.Genre](data)
}

func (s *Service) Get(ctx context.Context, id string) (model.Genre, error) {
	if id == "" {
		return model.Genre{}, errs.ValidationErrors{"id": "Genre id is required"}
	}
	data, err := s.api.Get(ctx, itemPath(id), nil)
	if err != nil {
		return model.Genre{}, err
	}
	return envelope.Item[model.Genre](data)
}

func (s *Service) Create(ctx context.Context, name string) (model.Genre, error) {
	name, err := cleanName(name)
	if err != nil {
		return model.Genre{}, err
	}
	data, err := s.api.Post(ctx, basePath, nameBody{Name: name})
	if err != nil {
		return model.Genre{}, err
	}
	return envelope.Item[model.Genre](data)
}

func (s *Service) Update(ctx context.Context, id, name string) (model.Genre, error) {
	if id == "" {
		return model.Genre{}, errs.ValidationErrors{"id": "Genre id is required"}
	}
	name, err := cleanName(name)
	if err != nil {
		return model.Genre{}, err
	}
	data, err := s.api.Patch(ctx, itemPath(id), nameBody{Name: name})
	if err != nil {
		return model.Genre{}, err
	}
	return envelope.Item[model.Genre](data)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrors{"id": "Genre id is required"}
	}
	_, err := s.api.Delete(ctx, itemPath(id))
	return err
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.ValidationErrors{"name": "Genre name is required"}
	}
	return name, nil
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
