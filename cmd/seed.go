package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dewpoint.dev/monitor/internal/backend"
	"dewpoint.dev/monitor/pkg/generator"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed an empty store and exit",
	Long: `Backfill an empty store with one year of hourly readings.
A store that already holds readings is left untouched.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Uint64("generator-seed", 0, "fixed seed for the reading generator (0 = random)")
	addDBFlags(seedCmd.Flags())

	_ = viper.BindPFlag("seed.generator.seed", seedCmd.Flags().Lookup("generator-seed"))
}

func runSeed(cmd *cobra.Command, _ []string) (err error) {
	bindDBFlags(cmd.Flags())

	logger := GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := dbConfig()
	cfg.Logger = logger
	db, err := backend.NewDB(&cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer func() {
		err = errors.Join(err, backend.CloseDB(db, logger))
	}()

	store, err := backend.NewStore(db, nil)
	if err != nil {
		return err
	}

	gen := generator.New(nil)
	if seed := viper.GetUint64("seed.generator.seed"); seed != 0 {
		gen = generator.NewSeeded(seed)
	}

	service, err := backend.NewService(backend.ServiceConfig{
		Store:     store,
		Generator: gen,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	n, err := service.Seed(ctx)
	if err != nil {
		logger.Error("failed to seed store", "error", err)
		return err
	}
	if n == 0 {
		logger.Info("store already holds readings, nothing to seed")
		return nil
	}

	logger.Info("store seeded", "readings", n, "driver", cfg.Driver)
	return nil
}
