// cmd/enrollment-importer/main.go
//
// Command-line runner for partner-school enrollment imports. Reads a CSV or
// XLSX file, runs the matching pipeline against the database, and prints the
// import report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scholarship-workflow/internal/common/config"
	"scholarship-workflow/internal/common/database"
	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/importer"
)

func main() {
	filePath := flag.String("file", "", "path to the enrollment file (.csv or .xlsx)")
	threshold := flag.Float64("threshold", 0, "override the configured name similarity threshold")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: enrollment-importer -file <enrollments.csv|.xlsx> [-threshold 0.85]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.WithError(err).Error("postgres connection failed", nil)
		os.Exit(1)
	}
	defer pg.Close()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.WithError(err).Error("read enrollment file failed", map[string]interface{}{"file": *filePath})
		os.Exit(1)
	}

	simThreshold := cfg.Import.SimilarityThreshold
	if *threshold > 0 {
		simThreshold = *threshold
	}

	db := pg.GetDB()
	svc := importer.NewService(db, importer.NewParser(), importer.NewMatcher(db, simThreshold, log), log)

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(*filePath)), ".")
	report, err := svc.Import(context.Background(), data, format)
	if err != nil {
		log.WithError(err).Error("import failed", map[string]interface{}{"file": *filePath})
		os.Exit(1)
	}

	fmt.Printf("rows: %d  upserted: %d  created: %d  queued for review: %d  invalid: %d\n",
		report.TotalRows, report.Upserted, report.CreatedStudents,
		report.QueuedForReview, len(report.InvalidRows))
	for _, msg := range report.InvalidRows {
		fmt.Println("  invalid:", msg)
	}
}
