package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

const separator = "--------------------------------------------------"

func printSummary(w io.Writer, result *models.FetchResult, report *models.Report, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Reconciliation complete")

	if result != nil {
		printFetch(w, result)
	}

	pairs := int64(0)
	if processed, ok := metrics["processed_pairs"].(int64); ok {
		pairs = processed
	}
	fmt.Fprintf(w, "  Term pairs:    %d\n", pairs)
	fmt.Fprintf(w, "  Terms listed:  %d\n", len(report.Terms))
	fmt.Fprintf(w, "  Differences:   %d\n", report.TotalDiffs())
	counts := report.CountByType()
	for _, t := range models.DiffTypes {
		if counts[t] > 0 {
			fmt.Fprintf(w, "    %-22s %d\n", string(t)+":", counts[t])
		}
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Report file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

func printFetch(w io.Writer, result *models.FetchResult) {
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Fprintf(w, "  Source:        %s\n", result.URL)
	fmt.Fprintf(w, "  Rendered:      %t\n", result.Rendered)
	fmt.Fprintf(w, "  Requests:      %d (%.2f%% ok)\n", result.RequestCount, successRate)
	fmt.Fprintf(w, "  Retries:       %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
}

func printExtractSummary(w io.Writer, catalog *models.Catalog, result *models.FetchResult, out string) {
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Extraction complete")
	if result != nil {
		printFetch(w, result)
	}
	fmt.Fprintf(w, "  Title:         %s\n", catalog.Title)
	fmt.Fprintf(w, "  Terms:         %d\n", len(catalog.Terms))
	for _, term := range catalog.Terms {
		fmt.Fprintf(w, "    %-22s %d courses\n", term.Name, len(term.Courses))
	}
	fmt.Fprintf(w, "  Courses:       %d\n", catalog.CourseCount())
	fmt.Fprintf(w, "  Output file:   %s\n", out)
	fmt.Fprintln(w, separator)
}
