package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func (a *app) compareCmd() *cobra.Command {
	var livePath string

	cmd := &cobra.Command{
		Use:     "compare",
		Short:   "Reconcile two saved catalogs",
		Example: `  updater compare --live live.json --reference reference.yaml --format dual`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.ReferencePath == "" {
				return fmt.Errorf("a reference catalog is required")
			}
			live, err := loadCatalog(livePath)
			if err != nil {
				return err
			}
			reference, err := loadCatalog(a.cfg.ReferencePath)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			stop := a.serveMetrics(prometheus.Gatherers{reg})
			defer stop()

			start := time.Now()
			report, metrics, err := a.reconcileCatalogs(cmd.Context(), live, reference, reg)
			if err != nil {
				return err
			}
			if err := a.writeReport(report); err != nil {
				return err
			}

			printSummary(a.stdout, nil, report, time.Since(start), a.cfg.OutputFile, metrics)
			if report.HasDifferences() {
				return errDiffsFound
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&livePath, "live", "", "fetched catalog (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("live")
	addCompareFlags(cmd)
	return cmd
}
