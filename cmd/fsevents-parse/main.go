// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command fsevents-parse decodes macOS FSEvents files into CSV, JSON Lines or a database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	fsevents "github.com/siderolabs/go-fsevents"
	"github.com/siderolabs/go-fsevents/export"
)

type cliOptions struct {
	dir         string
	format      string
	out         string
	metricsAddr string
	files       []string
	concurrency int
	legacy      bool
	verbose     bool
}

func parseFlags(args []string, errOut io.Writer) (*cliOptions, error) {
	flags := flag.NewFlagSet("fsevents-parse", flag.ContinueOnError)
	flags.SetOutput(errOut)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "\nUsage:\n   fsevents-parse [FLAGS] [FILE...]\n\n"+
			" Without FILEs and -dir the FSEvents directory of the running system is decoded.\n\n")
		flags.PrintDefaults()
	}

	opts := &cliOptions{}

	flags.StringVar(&opts.dir, "dir", "", "Decode all FSEvents files of this directory")
	flags.BoolVar(&opts.legacy, "legacy", false, "Use the legacy system directory "+fsevents.LegacyDir)
	flags.StringVar(&opts.format, "format", string(export.FormatCSV), "Output format: csv, jsonl, sqlite or postgres")
	flags.StringVar(&opts.out, "out", "", "Output file, SQLite database path or PostgreSQL connection string (default fsevents.<format>)")
	flags.IntVar(&opts.concurrency, "concurrency", 4, "Number of files decoded concurrently")
	flags.BoolVar(&opts.verbose, "v", false, "Verbose (debug) logging")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	opts.files = flags.Args()

	if opts.dir != "" && len(opts.files) > 0 {
		err := errors.New("-dir and FILE arguments are mutually exclusive")
		fmt.Fprintln(flags.Output(), err)

		return nil, err
	}

	if opts.out == "" {
		var err error

		if opts.out, err = defaultOut(export.Format(opts.format)); err != nil {
			fmt.Fprintln(flags.Output(), err)

			return nil, err
		}
	}

	return opts, nil
}

// defaultOut returns the output path used when -out is not set.
func defaultOut(format export.Format) (string, error) {
	switch format {
	case export.FormatCSV:
		return "fsevents.csv", nil
	case export.FormatJSONLines:
		return "fsevents.jsonl", nil
	case export.FormatSQLite:
		return "fsevents.db", nil
	case export.FormatPostgres:
		return "", errors.New("-out is required for postgres")
	default:
		return "", fmt.Errorf("unsupported format: %q", format)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	reg := prometheus.NewRegistry()
	fsevents.RegisterMonitoring(reg)

	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()

		srv.Close() //nolint:errcheck
	}()
}

//nolint:gocyclo
func run(ctx context.Context, opts *cliOptions, logger *zap.Logger) (int, error) {
	parser, err := fsevents.NewParser(
		fsevents.WithLogger(logger),
		fsevents.WithConcurrency(opts.concurrency),
	)
	if err != nil {
		return 2, err
	}

	paths := opts.files

	if len(paths) == 0 {
		dir := opts.dir

		switch {
		case dir != "":
		case opts.legacy:
			dir = fsevents.LegacyDir
		default:
			dir = fsevents.DefaultDir
		}

		if paths, err = fsevents.ListDir(dir); err != nil {
			return 1, err
		}
	}

	logger.Info("decoding files", zap.Int("files", len(paths)), zap.String("format", opts.format), zap.String("out", opts.out))

	w, err := export.Open(export.Format(opts.format), opts.out)
	if err != nil {
		return 1, err
	}

	w = export.Synchronized(w)

	reports, runErr := parser.ParseFiles(ctx, paths, fsevents.RecordHandler(w.Write))

	if runErr != nil {
		if err = export.Abort(w); err != nil {
			logger.Warn("failed to discard output", zap.Error(err))
		}
	} else if err = w.Close(); err != nil {
		return 1, err
	}

	exitCode := 0

	var records, diagnostics, failed int

	// problems were logged by the parser as they were found
	for _, report := range reports {
		records += report.Stats.Records
		diagnostics += len(report.Diagnostics)

		if report.Err != nil {
			exitCode = 1
			failed++
		}
	}

	logger.Info("finished",
		zap.Int("files", len(reports)),
		zap.Int("failed", failed),
		zap.Int("records", records),
		zap.Int("diagnostics", diagnostics),
	)

	if runErr != nil {
		return 1, runErr
	}

	return exitCode, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}

		os.Exit(2)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		serveMetrics(ctx, opts.metricsAddr, logger)
	}

	exitCode, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("fsevents-parse failed", zap.Error(err))
	}

	stop()
	logger.Sync() //nolint:errcheck

	os.Exit(exitCode)
}
