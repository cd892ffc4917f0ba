package auth

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/storefront/internal/envelope"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/events"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
)

type SessionStore interface {
	Login(ctx context.Context, user model.User, token string) error
	Logout(ctx context.Context) error
	CurrentUser() (model.User, bool)
}

type Service struct {
	log     *zap.Logger
	api     transport.Requester
	session SessionStore
	events  events.Publisher
}

func NewService(log *zap.Logger, api transport.Requester, session SessionStore, pub events.Publisher) *Service {
	return &Service{
		log:     log.Named("auth"),
		api:     api,
		session: session,
		events:  events.OrNop(pub),
	}
}

func (s *Service) Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error) {
	res, err := s.authenticate(ctx, loginPath, creds)
	if err != nil {
		return model.AuthResponse{}, err
	}
	s.events.Publish(ctx, events.Event{Type: events.Login, UserID: res.User.ID})
	return res, nil
}

func (s *Service) Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error) {
	res, err := s.authenticate(ctx, registerPath, data)
	if err != nil {
		return model.AuthResponse{}, err
	}
	s.events.Publish(ctx, events.Event{Type: events.Register, UserID: res.User.ID})
	return res, nil
}

func (s *Service) Logout(ctx context.Context) error {
	user, ok := s.session.CurrentUser()
	if err := s.session.Logout(ctx); err != nil {
		return err
	}
	if ok {
		s.events.Publish(ctx, events.Event{Type: events.Logout, UserID: user.ID})
	}
	return nil
}

func (s *Service) CurrentUser() (model.User, bool) {
	return s.session.CurrentUser()
}

// authenticate only stores a session when the response carries both a
// token and a user.
func (s *Service) authenticate(ctx context.Context, path string, body any) (model.AuthResponse, error) {
	data, err := s.api.Post(ctx, path, body)
	if err != nil {
		return model.AuthResponse{}, err
	}
	res, err := envelope.Item[model.AuthResponse](data)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if res.Token == "" || res.User.ID == "" {
		return model.AuthResponse{}, &errs.APIError{Err: errors.Wrap(errs.ErrUnexpectedShape, "auth response without token or user")}
	}
	if err := s.session.Login(ctx, res.User, res.Token); err != nil {
		return model.AuthResponse{}, err
	}
	s.log.Debug("authenticated", zap.String("user_id", res.User.ID))
	return res, nil
}
