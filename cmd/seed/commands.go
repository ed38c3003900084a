package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/config"
	dbRedis "github.com/kailas-cloud/catalog/internal/db/redis"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/catalog/internal/logger"
	productrepo "github.com/kailas-cloud/catalog/internal/repository/product"
	"github.com/kailas-cloud/catalog/internal/version"
)

// env bundles what every command needs: the loaded config, a logger and the repository.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	repo   *productrepo.Repo
	close  func()
}

func setup(ctx context.Context, c *cli.Command) (*env, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.Driver != config.DriverRedis {
		return nil, fmt.Errorf("seeding requires the %q driver, config uses %q", config.DriverRedis, cfg.Database.Driver)
	}

	level := cfg.Logging.Level
	if c.Bool("debug") {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(c.String("env"), level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}

	weights := query.DefaultWeights()
	if len(cfg.Search.Weights) > 0 {
		weights = weights[:0]
		for field, w := range cfg.Search.Weights {
			weights = append(weights, query.FieldWeight{Field: field, Weight: w})
		}
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		repo: productrepo.New(store,
			productrepo.WithKeyPrefix(cfg.Storage.KeyPrefix),
			productrepo.WithTextWeights(weights),
		),
		close: func() {
			store.Close()
			_ = logger.Sync()
		},
	}, nil
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Create the product search index",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "recreate",
				Usage: "Drop and rebuild the index (stored products are kept)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer e.close()

			if c.Bool("recreate") {
				err = e.repo.RecreateIndex(ctx)
			} else {
				err = e.repo.EnsureIndex(ctx)
			}
			if err != nil {
				return fmt.Errorf("creating index: %w", err)
			}
			e.logger.Info("Index ready",
				zap.String("index", e.repo.IndexName()),
				zap.Bool("recreated", c.Bool("recreate")),
			)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load products from a JSON file",
		ArgsUsage: "<products.json>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Products written per pipeline",
				Value: 100,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("missing products file argument")
			}

			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			products, err := loadProducts(f, uuid.NewString)
			if err != nil {
				return err
			}

			e, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.repo.EnsureIndex(ctx); err != nil {
				return fmt.Errorf("creating index: %w", err)
			}

			for i, chunk := range chunks(products, int(c.Int("batch"))) {
				if err := e.repo.Import(ctx, chunk); err != nil {
					return fmt.Errorf("importing batch %d: %w", i, err)
				}
				e.logger.Debug("Imported batch", zap.Int("batch", i), zap.Int("size", len(chunk)))
			}
			e.logger.Info("Products imported",
				zap.String("file", path),
				zap.Int("count", len(products)),
			)
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Printf("catalog-seed %s\n", version.String())
			return nil
		},
	}
}
