// Command importer loads an observation CSV export into a dataset store.
//
//	importer --dataset spider --csv spider_observations.csv
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jengzang/globe-observations/internal/config"
	"github.com/jengzang/globe-observations/internal/database"
	"github.com/jengzang/globe-observations/internal/importer"
	"github.com/jengzang/globe-observations/internal/logging"
	"github.com/jengzang/globe-observations/internal/repository"
)

func main() {
	flags := pflag.NewFlagSet("importer", pflag.ExitOnError)
	flags.String("dataset", "", "dataset name, resolves the store path from config")
	flags.String("db", "", "sqlite store path (overrides --dataset)")
	flags.String("csv", "", "CSV export with observed_on, latitude and longitude columns")
	flags.Int("batch", importer.DefaultBatchSize, fmt.Sprintf("rows per insert transaction (max %d)", repository.MaxInsertRows))
	flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	v.SetEnvPrefix("GLOBE_IMPORT")
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Setup(v.GetString("log-level"), "text")

	path, err := storePath(v.GetString("db"), v.GetString("dataset"))
	if err != nil {
		logger.Error("no store selected", "error", err)
		os.Exit(2)
	}
	csvPath := v.GetString("csv")
	if csvPath == "" {
		logger.Error("--csv is required")
		os.Exit(2)
	}

	if err := run(path, csvPath, v.GetInt("batch"), logger); err != nil {
		logger.Error("import failed", "store", path, "csv", csvPath, "error", err)
		os.Exit(1)
	}
}

func storePath(db, dataset string) (string, error) {
	if db != "" {
		return db, nil
	}
	if dataset == "" {
		return "", fmt.Errorf("one of --db or --dataset is required")
	}
	datasets := config.DefaultDatasets
	if cfg, err := config.Load(); err == nil {
		datasets = cfg.Datasets
	}
	path, ok := datasets[dataset]
	if !ok {
		return "", fmt.Errorf("unknown dataset %q", dataset)
	}
	return path, nil
}

func run(path, csvPath string, batch int, logger *slog.Logger) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := database.Open(database.Config{Path: path, MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = importer.New(db, batch, logger).Run(ctx, f)
	return err
}
