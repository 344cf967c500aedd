package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) extractCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the catalog of a page and write it as JSON",
		Example: `  updater extract --source https://uni.example/programs/bscs --out live.json
  updater extract --file saved-page.html --out -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.newScraper()
			if err != nil {
				return err
			}
			catalog, result, err := a.capture(cmd.Context(), s)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(catalog, "", "  ")
			if err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			data = append(data, '\n')

			if out == "-" {
				_, err = a.stdout.Write(data)
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create directory %q: %w", dir, err)
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write catalog: %w", err)
			}
			printExtractSummary(a.stdout, catalog, result, out)
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringVar(&out, "out", "output/catalog.json", "catalog output path, - for stdout")
	return cmd
}
