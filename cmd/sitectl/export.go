package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sorasolar/site-api/internal/adapter/export"
	"github.com/sorasolar/site-api/internal/domain"
)

var (
	exportFormat   string
	exportStrategy string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export classified groups as xlsx, yaml, json, or geojson",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		strategy, err := strategyOrDefault(cfg, exportStrategy)
		if err != nil {
			return err
		}
		rooftops, err := newProvider(cfg, logger).Rooftops(cmd.Context())
		if err != nil {
			return err
		}
		groups := domain.Summarize(partitionerFor(cfg, strategy), rooftops)

		if exportOut == "" || exportOut == "-" {
			return export.Write(cmd.OutOrStdout(), format, strategy, groups)
		}
		return writeExportFile(exportOut, format, strategy, groups)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: xlsx, yaml, json, or geojson")
	exportCmd.Flags().StringVar(&exportStrategy, "strategy", "", "partition strategy: grid or cluster (default: MAP_STRATEGY)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

func writeExportFile(path string, format export.Format, strategy domain.Strategy, groups []domain.GeoGroup) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.Write(f, format, strategy, groups)
}
