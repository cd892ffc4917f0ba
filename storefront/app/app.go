package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kafka"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/redisstore"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/sqlstore"
	"github.com/Astemirdum/bookstore-client/pkg/logger"
	"github.com/Astemirdum/bookstore-client/storefront/config"
	"github.com/Astemirdum/bookstore-client/storefront/internal/cart"
	"github.com/Astemirdum/bookstore-client/storefront/internal/events"
	"github.com/Astemirdum/bookstore-client/storefront/internal/handler"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/auth"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/book"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/genre"
	"github.com/Astemirdum/bookstore-client/storefront/internal/service/transaction"
	"github.com/Astemirdum/bookstore-client/storefront/internal/session"
	"github.com/Astemirdum/bookstore-client/storefront/internal/transport"
)

// Run executes one command line and returns the process exit code.
func Run(ctx context.Context, cfg config.Config, args []string) int {
	return run(ctx, cfg, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, cfg config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log := logger.NewLogger(cfg.Log, "bookstore")
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup", zap.Error(err))
		fmt.Fprintln(stderr, "bookstore:", err)
		return 1
	}
	defer a.close()

	root := a.handler.NewRootCommand()
	bindGlobalFlags(root, new(globalFlags))
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Debug("command failed", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type app struct {
	log      *zap.Logger
	kv       kvstore.Store
	producer sarama.SyncProducer
	handler  *handler.Handler
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	kv, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Store.Backend)
	}
	a := &app{log: log, kv: kv}

	sess, err := session.New(ctx, kv, log)
	if err != nil {
		a.close()
		return nil, errors.Wrap(err, "restore session")
	}
	api, err := transport.New(log, cfg.API, sess)
	if err != nil {
		a.close()
		return nil, err
	}
	c, err := cart.Load(ctx, kv, log)
	if err != nil {
		a.close()
		return nil, err
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Warn("kafka unavailable, client events are off", zap.Error(err))
		} else {
			a.producer = producer
			pub = events.NewStatsLog(producer, cfg.Kafka.Topic, log)
		}
	}

	a.handler = handler.New(log, handler.Services{
		Auth:         auth.NewService(log, api, sess, pub),
		Books:        book.NewService(log, api),
		Genres:       genre.NewService(log, api),
		Transactions: transaction.NewService(log, api, sess, pub),
		Cart:         c,
	})
	return a, nil
}

func (a *app) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("close kafka producer", zap.Error(err))
		}
	}
	if err := a.kv.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Store, log *zap.Logger) (kvstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kvstore.NewMemory(), nil
	case config.BackendSQLite:
		s, err := sqlstore.OpenSQLite(ctx, cfg.Path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverPostgres, DSN: cfg.DSN}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}
