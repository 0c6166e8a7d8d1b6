// Command generator synthesizes a multi-year demo attendance dataset and
// writes CSV and JSON renditions.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"attendash/internal/generator"
)

func main() {
	var (
		outDir = flag.String("out", "data", "output directory")
		years  = flag.String("years", "2022,2023,2024", "comma-separated years to generate")
		seed   = flag.Int64("seed", 0, "random seed (0 = time-based)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := generator.DefaultConfig()
	cfg.Seed = *seed
	if parsed, err := parseYears(*years); err != nil {
		fmt.Fprintf(os.Stderr, "generator: %v\n", err)
		os.Exit(2)
	} else if len(parsed) > 0 {
		cfg.Years = parsed
	}

	rows := generator.New(cfg, logger).Generate()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "generator: %v\n", err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outDir, "attendance.csv")
	jsonPath := filepath.Join(*outDir, "attendance.json")
	if err := generator.WriteFiles(csvPath, jsonPath, rows); err != nil {
		fmt.Fprintf(os.Stderr, "generator: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("generated %d rows\n", len(rows))
	fmt.Printf("CSV saved to %s\n", csvPath)
	fmt.Printf("JSON saved to %s\n", jsonPath)
}

func parseYears(raw string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		year, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, year)
	}
	return years, nil
}
