// Command importer ingests an attendance CSV or XLSX file from disk, prints
// an ingestion summary and optionally writes the resolved dataset back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"attendash/internal/analytics"
	"attendash/internal/services"
	"attendash/internal/store"
)

func allFilter() analytics.FilterState {
	return analytics.FilterState{
		Years:       analytics.SelectAll(),
		Sites:       analytics.SelectAll(),
		Services:    analytics.SelectAll(),
		IncludeZero: true,
	}
}

func main() {
	var (
		mode    = flag.String("mode", "sum", "duplicate resolution mode: sum, latest or first")
		out     = flag.String("out", "", "write the resolved dataset as CSV to this path")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: importer [flags] <file.csv|file.xlsx>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(path, *mode, *out, logger); err != nil {
		fmt.Fprintf(os.Stderr, "importer: %v\n", err)
		os.Exit(1)
	}
}

func run(path, mode, out string, logger *slog.Logger) error {
	parsedMode, err := store.ParseResolutionMode(mode)
	if err != nil {
		return err
	}

	st := store.New(logger)
	if _, err := st.SetResolutionMode(parsedMode); err != nil {
		return err
	}
	svc := services.NewAttendanceService(logger, st, services.Options{})

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	notices, err := svc.IngestUpload(context.Background(), path, f)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d rows, committed %d (%s mode)\n",
		notices.RowsIngested, notices.RowsCommitted, notices.ResolutionMode)
	if notices.DuplicateGroups > 0 {
		fmt.Printf("resolved %d duplicate rows across %d groups\n",
			notices.DuplicateRows, notices.DuplicateGroups)
	}
	for _, group := range notices.AliasGroups {
		fmt.Printf("merged service aliases %v into %q\n", group.Aliases, group.Canonical)
	}

	if out != "" {
		of, err := os.Create(out)
		if err != nil {
			return err
		}
		defer of.Close()
		if err := svc.ExportCSV(of, allFilter()); err != nil {
			return err
		}
		fmt.Printf("wrote resolved dataset to %s\n", out)
	}
	return nil
}
