package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dewpoint.dev/monitor/internal/frontend"
	"dewpoint.dev/monitor/pkg/metrics"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the web dashboard",
	Long: `Run the web dashboard that:
- Polls the backend for the current reading, history and fan state
- Shows ventilation advice and a smoothed history chart per range
- Toggles the fan through the backend
- Optionally applies live events from RabbitMQ between polls`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Int("http-port", 8080, "HTTP server port")
	dashboardCmd.Flags().String("backend-url", "http://localhost:4000", "backend API base URL")
	dashboardCmd.Flags().Duration("refresh", frontend.DefaultRefreshInterval, "interval between backend polls")
	dashboardCmd.Flags().String("rabbitmq-url", "", "RabbitMQ URL (empty disables live updates)")
	dashboardCmd.Flags().String("event-queue", "dewpoint.events", "RabbitMQ queue for reading and fan events")

	_ = viper.BindPFlag("dashboard.http.port", dashboardCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("dashboard.backend.url", dashboardCmd.Flags().Lookup("backend-url"))
	_ = viper.BindPFlag("dashboard.refresh", dashboardCmd.Flags().Lookup("refresh"))
	_ = viper.BindPFlag("dashboard.rabbitmq.url", dashboardCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("dashboard.rabbitmq.queue", dashboardCmd.Flags().Lookup("event-queue"))
}

func runDashboard(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting dashboard service")

	config := &frontend.ServerConfig{
		Logger:          logger,
		HTTPPort:        viper.GetInt("dashboard.http.port"),
		BackendURL:      viper.GetString("dashboard.backend.url"),
		RefreshInterval: viper.GetDuration("dashboard.refresh"),
		RabbitMQURL:     viper.GetString("dashboard.rabbitmq.url"),
		EventQueue:      viper.GetString("dashboard.rabbitmq.queue"),
		Metrics:         metrics.NewDashboardMetrics(metricsNamespace),
	}
	if config.RabbitMQURL != "" {
		config.MQMetrics = metrics.NewMQMetrics(metricsNamespace)
	}

	server, err := frontend.NewServer(config)
	if err != nil {
		logger.Error("failed to create dashboard server", "error", err)
		return err
	}

	logger.Info("dashboard server configuration",
		"http_port", config.HTTPPort,
		"backend_url", config.BackendURL,
		"refresh", config.RefreshInterval,
		"live_updates", config.RabbitMQURL != "",
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("dashboard server error", "error", err)
		return err
	}

	logger.Info("dashboard server stopped")
	return nil
}
