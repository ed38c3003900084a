package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/catalog/internal/config"
)

func main() {
	app := &cli.Command{
		Name:  "catalog-seed",
		Usage: "Create the product index and load catalog data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Configuration environment (config/<env>.yaml)",
				Value:   config.GetEnv(),
				Sources: cli.EnvVars("ENV"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			indexCommand(),
			importCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
