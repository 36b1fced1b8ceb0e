package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/road-estimator/internal/app"
	"github.com/joseph-ayodele/road-estimator/internal/common"
)

var (
	cfgFile string
	v       = common.NewViper()
	cfg     *common.Config
	logger  = slog.Default()

	rootCmd = &cobra.Command{
		Use:   "tenderctl",
		Short: "Road tender ingestion, price aggregation and cost estimation",
		Long: `tenderctl ingests road-construction tender PDFs, extracts their bills of
quantities, aggregates yearly material prices and builds the training set
for the cost model.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./roadest.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("dsn", "", "postgres DSN (env ROADEST_DATABASE_DSN or DB_URL)")
	pf.String("sqlite", "", "sqlite database file, used when no DSN is set")
	pf.Bool("inmem", false, "use a throwaway in-memory database")
	pf.Int("default-year", 0, "pricing year for tenders without a date")

	_ = v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", pf.Lookup("log-format"))
	_ = v.BindPFlag("database.dsn", pf.Lookup("dsn"))
	_ = v.BindPFlag("database.sqlite_path", pf.Lookup("sqlite"))
	_ = v.BindPFlag("database.in_memory", pf.Lookup("inmem"))
	_ = v.BindPFlag("pipeline.default_year", pf.Lookup("default-year"))

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(inflationCmd())
	rootCmd.AddCommand(featuresCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dbhealthCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("roadest")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg = common.LoadConfig(v)

	l, err := common.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l
	slog.SetDefault(logger)
	return nil
}

// openApp connects to the configured store. Callers must Close the result.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}
