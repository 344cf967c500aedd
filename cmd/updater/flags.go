package main

import (
	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/spf13/cobra"
)

func addSourceFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.String("source", d.SourceURL, "URL of the published catalog page")
	f.String("file", d.SourceFile, "read the catalog page from a local HTML file instead")
	f.Int("parallel", d.Parallelism, "concurrent requests and comparison workers")
	f.Duration("timeout", d.Timeout, "request timeout")
	f.String("render-url", d.RenderURL, "prerender service used when the page builds its tables with scripts")
	f.Duration("render-timeout", d.RenderTimeout, "request timeout for the prerender service")
	f.Int("max-retries", d.MaxRetries, "maximum retry attempts per request")
	f.Bool("respect-robots", d.RespectRobotsTxt, "respect robots.txt directives")
}

func addCompareFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.String("reference", d.ReferencePath, "reference catalog (.json, .yaml or .yml)")
	f.String("output", d.OutputFile, "report output path")
	f.String("format", d.OutputFormat, "report format: json, csv, or dual")
	f.Bool("prerequisite-aware", d.PrerequisiteAware, "include prerequisites in course fingerprints")
	f.Float64("similarity-threshold", d.SimilarityThreshold, "minimum title similarity for code-mismatch pairing")
	f.String("metrics-addr", d.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
}
