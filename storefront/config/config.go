package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/Astemirdum/bookstore-client/pkg/kafka"
	"github.com/Astemirdum/bookstore-client/pkg/kvstore/redisstore"
	"github.com/Astemirdum/bookstore-client/pkg/logger"
)

// FileEnv names the optional YAML config file.
const FileEnv = "BOOKSTORE_CONFIG"

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type API struct {
	BaseURL string        `yaml:"baseURL" envconfig:"BOOKSTORE_API_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"BOOKSTORE_API_TIMEOUT"`
	// RPS limits outbound requests per second; zero disables the limiter.
	RPS             float64       `yaml:"rps" envconfig:"BOOKSTORE_API_RPS"`
	Breaker         bool          `yaml:"breaker" envconfig:"BOOKSTORE_API_BREAKER"`
	BreakerCooldown time.Duration `yaml:"breakerCooldown" envconfig:"BOOKSTORE_API_BREAKER_COOLDOWN"`
}

type Store struct {
	Backend string            `yaml:"backend" envconfig:"BOOKSTORE_STORE"`
	Path    string            `yaml:"path" envconfig:"BOOKSTORE_STORE_PATH"`
	DSN     string            `yaml:"dsn" envconfig:"BOOKSTORE_STORE_DSN"`
	Redis   redisstore.Config `yaml:"redis"`
}

type Config struct {
	API   API          `yaml:"api"`
	Store Store        `yaml:"store"`
	Kafka kafka.Config `yaml:"kafka"`
	Log   logger.Log   `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config once per process from defaults, the YAML file
// named by BOOKSTORE_CONFIG and the environment, in that order.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		c, err := Load(os.Getenv(FileEnv), ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = c
	})

	return cfg
}

// Load builds a Config without caching it. An empty path skips the file.
func Load(path string, ops ...Option) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, errors.Wrap(err, "process env")
	}
	for _, op := range ops {
		op(&c)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		c.Kafka.Topic = kafka.ClientEventsTopic
	}
	return c, c.validate()
}

func Default() Config {
	return Config{
		API: API{
			BaseURL:         "http://localhost:8000/api",
			Timeout:         15 * time.Second,
			BreakerCooldown: 10 * time.Second,
		},
		Store: Store{
			Backend: BackendSQLite,
			Path:    defaultStorePath(),
		},
		Log: logger.Log{LogLevel: zapcore.WarnLevel},
	}
}

func (c Config) validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base url is empty")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Store.DSN == "" {
			return errors.New("postgres store needs a dsn")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("redis store needs an addr")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "bookstore", "session.db")
}
