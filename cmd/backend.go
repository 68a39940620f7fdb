package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dewpoint.dev/monitor/internal/backend"
	"dewpoint.dev/monitor/pkg/metrics"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run the mock backend",
	Long: `Run the mock sensor backend that:
- Generates a new reading on every /api/current request
- Stores readings in SQLite or PostgreSQL and prunes them after a year
- Seeds an empty store with a year of hourly history
- Serves readings and fan state as JSON
- Optionally publishes reading and fan events to RabbitMQ`,
	RunE: runBackend,
}

func init() {
	rootCmd.AddCommand(backendCmd)

	backendCmd.Flags().Int("http-port", 4000, "HTTP server port")
	backendCmd.Flags().Bool("seed", true, "seed an empty store with a year of hourly readings")
	backendCmd.Flags().Uint64("generator-seed", 0, "fixed seed for the reading generator (0 = random)")
	backendCmd.Flags().String("cors-origin", "*", "Access-Control-Allow-Origin value (empty disables CORS)")
	backendCmd.Flags().Duration("sample-interval", 0, "Generate a live reading on this interval (0 disables)")
	backendCmd.Flags().String("rabbitmq-url", "", "RabbitMQ URL (empty disables event publishing)")
	backendCmd.Flags().String("event-queue", "dewpoint.events", "RabbitMQ queue for reading and fan events")
	addDBFlags(backendCmd.Flags())

	_ = viper.BindPFlag("backend.http.port", backendCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("backend.seed", backendCmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("backend.generator.seed", backendCmd.Flags().Lookup("generator-seed"))
	_ = viper.BindPFlag("backend.cors.origin", backendCmd.Flags().Lookup("cors-origin"))
	_ = viper.BindPFlag("backend.sample.interval", backendCmd.Flags().Lookup("sample-interval"))
	_ = viper.BindPFlag("backend.rabbitmq.url", backendCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("backend.rabbitmq.queue", backendCmd.Flags().Lookup("event-queue"))
}

// addDBFlags registers the database flags shared by backend and seed.
func addDBFlags(flags *pflag.FlagSet) {
	flags.String("db-driver", backend.DriverSQLite, "database driver (sqlite, postgres)")
	flags.String("db-path", "dewpoint.db", "SQLite database file")
	flags.String("db-host", "localhost", "PostgreSQL host")
	flags.Int("db-port", 5432, "PostgreSQL port")
	flags.String("db-user", "postgres", "PostgreSQL user")
	flags.String("db-password", "", "PostgreSQL password")
	flags.String("db-name", "dewpoint", "PostgreSQL database name")
	flags.String("db-sslmode", "disable", "PostgreSQL SSL mode")
}

// bindDBFlags binds the database flags of the running command. It is called
// at run time because backend and seed share the viper keys.
func bindDBFlags(flags *pflag.FlagSet) {
	_ = viper.BindPFlag("backend.db.driver", flags.Lookup("db-driver"))
	_ = viper.BindPFlag("backend.db.path", flags.Lookup("db-path"))
	_ = viper.BindPFlag("backend.db.host", flags.Lookup("db-host"))
	_ = viper.BindPFlag("backend.db.port", flags.Lookup("db-port"))
	_ = viper.BindPFlag("backend.db.user", flags.Lookup("db-user"))
	_ = viper.BindPFlag("backend.db.password", flags.Lookup("db-password"))
	_ = viper.BindPFlag("backend.db.name", flags.Lookup("db-name"))
	_ = viper.BindPFlag("backend.db.sslmode", flags.Lookup("db-sslmode"))
}

func runBackend(cmd *cobra.Command, _ []string) error {
	bindDBFlags(cmd.Flags())

	logger := GetLogger()
	logger.Info("starting backend service")

	config := &backend.ServerConfig{
		Logger:         logger,
		DB:             dbConfig(),
		HTTPPort:       viper.GetInt("backend.http.port"),
		Seed:           viper.GetBool("backend.seed"),
		GeneratorSeed:  viper.GetUint64("backend.generator.seed"),
		RabbitMQURL:    viper.GetString("backend.rabbitmq.url"),
		EventQueue:     viper.GetString("backend.rabbitmq.queue"),
		CORSOrigin:     viper.GetString("backend.cors.origin"),
		SampleInterval: viper.GetDuration("backend.sample.interval"),
		Metrics:        metrics.NewBackendMetrics(metricsNamespace),
	}
	if config.RabbitMQURL != "" {
		config.MQMetrics = metrics.NewMQMetrics(metricsNamespace)
	}

	server, err := backend.NewServer(config)
	if err != nil {
		logger.Error("failed to create backend server", "error", err)
		return err
	}

	logger.Info("backend server configuration",
		"http_port", config.HTTPPort,
		"db_driver", config.DB.Driver,
		"seed", config.Seed,
		"events_enabled", config.RabbitMQURL != "",
		"event_queue", config.EventQueue,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("backend server error", "error", err)
		return err
	}

	logger.Info("backend server stopped")
	return nil
}
