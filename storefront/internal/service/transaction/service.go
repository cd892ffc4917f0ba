package transaction

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/validate"
	"github.com/Astemirdum/bookstore-client/storefront/internal/envelope"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/events"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

const (
	basePath       = "/transactions"
	statisticsPath = basePath + "/statistics"
)

var inputMessages = validate.Messages{
	"items.required": "Cart is empty",
	"items.min":      "Cart is empty",
	"book_id":        "Book is required",
	"quantity":       "Quantity must be greater than 0",
}

type UserSource interface {
	CurrentUser() (model.User, bool)
}

type Service struct {
	log       *zap.Logger
	api       transport.Requester
	validator *validate.CustomValidator
	users     UserSource
	events    events.Publisher
}

func NewService(log *zap.Logger, api transport.Requester, users UserSource, pub events.Publisher) *Service {
	return &Service{
		log:       log.Named("transaction"),
		api:       api,
		validator: validate.NewCustomValidator(),
		users:     users,
		events:    events.OrNop(pub),
	}
}

func (s *Service) List(ctx context.Context, f model.ListFilter) (model.Page[model.Transaction], error) {
	if err := model.TransactionListSchema.Validate(f); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	data, err := s.api.Get(ctx, basePath, f.Values())
	if err != nil {
		return model.Page[model.Transaction]{}, err
	}
	return envelope.List[model.Transaction](data)
}

func (s *Service) Get(ctx context.Context, id string) (model.Transaction, error) {
	if id == "" {
		return model.Transaction{}, errs.ValidationErrors{"id": "Transaction id is required"}
	}
	data, err := s.api.Get(ctx, basePath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Transaction{}, err
	}
	return envelope.Item[model.Transaction](data)
}

func (s *Service) Create(ctx context.Context, in model.CreateTransactionInput) (model.Transaction, error) {
	fields, err := s.validator.Fields(in, inputMessages)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(fields) > 0 {
		return model.Transaction{}, errs.ValidationErrors(fields)
	}
	data, err := s.api.Post(ctx, basePath, in)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, err := envelope.Item[model.Transaction](data)
	if err != nil {
		return model.Transaction{}, err
	}
	s.publishCreated(ctx, in, tx)
	return tx, nil
}

func (s *Service) Statistics(ctx context.Context) (model.Statistics, error) {
	data, err := s.api.Get(ctx, statisticsPath, nil)
	if err != nil {
		return nil, err
	}
	return envelope.Item[model.Statistics](data)
}

func (s *Service) publishCreated(ctx context.Context, in model.CreateTransactionInput, tx model.Transaction) {
	qty := 0
	for _, l := range in.Items {
		qty += l.Quantity
	}
	ev := events.Event{
		Type:     events.TransactionCreate,
		Subject:  tx.ID,
		Quantity: qty,
		Amount:   int64(tx.TotalPrice),
	}
	if s.users != nil {
		if u, ok := s.users.CurrentUser(); ok {
			ev.UserID = u.ID
		}
	}
	s.events.Publish(ctx, ev)
}
