package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mxlvintam/cohortx/app/reporter"
	"github.com/mxlvintam/cohortx/pkg/export"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "cohortx",
		Usage: "Customer analytics over e-commerce sales snapshots",
		Commands: []*cli.Command{
			reportCommand(),
			loadCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Value:   reporter.SourceCSV,
			Usage:   "Input source (csv, postgres, warehouse)",
		},
		&cli.StringFlag{
			Name:  "sales",
			Usage: "Path to the sales CSV file",
		},
		&cli.StringFlag{
			Name:  "customers",
			Usage: "Path to the customers CSV file",
		},
		&cli.StringFlag{
			Name:    "postgres-url",
			Usage:   "PostgreSQL DSN to read sales and customers from",
			EnvVars: []string{"POSTGRES_URL"},
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Compute the cohort view, segments, cohorts, and retention reports",
		Flags: append(sourceFlags(),
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   cli.NewStringSlice(export.FormatTable),
				Usage:   fmt.Sprintf("Output format (%s), repeatable", strings.Join(export.Formats(), ", ")),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory to write report files into instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "materialize",
				Usage: "Persist the cohort view, summaries, and a run record to the warehouse",
			},
		),
		Action: runReport,
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:   "load",
		Usage:  "Stage a full sales and customers snapshot into the warehouse",
		Flags:  sourceFlags(),
		Action: runLoad,
	}
}

func runReport(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	formats := c.StringSlice("format")
	for _, format := range formats {
		if !validFormat(format) {
			return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(export.Formats(), ", "))
		}
	}

	app, err := reporter.Initialize(ctx, reporter.Config{
		SourceKind:    c.String("source"),
		SalesPath:     c.String("sales"),
		CustomersPath: c.String("customers"),
		PostgresDSN:   c.String("postgres-url"),
		Formats:       formats,
		OutDir:        c.String("out"),
		Materialize:   c.Bool("materialize"),
	})
	if err != nil {
		return err
	}
	defer app.Close()

	_, err = app.Run(ctx)
	return err
}

func runLoad(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := reporter.Initialize(ctx, reporter.Config{
		SourceKind:    c.String("source"),
		SalesPath:     c.String("sales"),
		CustomersPath: c.String("customers"),
		PostgresDSN:   c.String("postgres-url"),
		// Loading always writes to the warehouse.
		Materialize: true,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Load(ctx)
}

func validFormat(format string) bool {
	for _, known := range export.Formats() {
		if format == known {
			return true
		}
	}
	return false
}
