package app

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/bookstore-client/storefront/config"
)

// globalFlags are read before the command tree exists because they decide
// how it is built.
type globalFlags struct {
	apiURL    string
	store     string
	storePath string
	logLevel  string
}

func bindGlobalFlags(cmd *cobra.Command, g *globalFlags) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&g.apiURL, "api-url", "", "API base URL (env BOOKSTORE_API_URL)")
	fs.StringVar(&g.store, "store", "", "session store: memory, sqlite, postgres or redis (env BOOKSTORE_STORE)")
	fs.StringVar(&g.storePath, "store-path", "", "sqlite session file (env BOOKSTORE_STORE_PATH)")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
}

// Options turns the global flags in args into config overrides. Everything
// else in args is left for the command tree.
func Options(args []string) []config.Option {
	var g globalFlags
	boot := &cobra.Command{}
	bindGlobalFlags(boot, &g)
	fs := boot.PersistentFlags()
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	_ = fs.Parse(args)

	opts := []config.Option{
		config.WithAPIURL(g.apiURL),
		config.WithStoreBackend(g.store),
		config.WithStorePath(g.storePath),
	}
	var level zapcore.Level
	if g.logLevel != "" && level.UnmarshalText([]byte(g.logLevel)) == nil {
		opts = append(opts, config.WithLogLevel(level))
	}
	return opts
}
