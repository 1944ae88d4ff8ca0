package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sorasolar/site-api/internal/domain"
)

var classifyStrategy string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print classified groups for the rooftop dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		strategy, err := strategyOrDefault(cfg, classifyStrategy)
		if err != nil {
			return err
		}
		rooftops, err := newProvider(cfg, logger).Rooftops(cmd.Context())
		if err != nil {
			return err
		}
		return runClassify(cmd.OutOrStdout(), partitionerFor(cfg, strategy), rooftops)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyStrategy, "strategy", "", "partition strategy: grid or cluster (default: MAP_STRATEGY)")
}

func runClassify(w io.Writer, p domain.Partitioner, rooftops []domain.Rooftop) error {
	groups := domain.Summarize(p, rooftops)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tNAME\tROOFTOPS\tAREA_M2\tPANELS\tAVG_SUN\tREADY\tCLASS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f\t%d\t%.2f\t%.2f\t%s\n",
			g.ID, dash(g.Name), g.Metrics.RooftopCount, g.Metrics.TotalArea, g.Metrics.TotalPanels,
			g.Metrics.AvgSunHours, g.Metrics.ContactReadyRatio, g.Classification)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printClassStats(w, p.Strategy(), rooftops, groups)
	return nil
}

func printClassStats(w io.Writer, strategy domain.Strategy, rooftops []domain.Rooftop, groups []domain.GeoGroup) {
	byClass := map[domain.Classification]int{}
	for _, g := range groups {
		byClass[g.Classification]++
	}
	markers := map[domain.Classification]int{}
	for _, r := range rooftops {
		markers[domain.ClassifyRooftop(r)]++
	}

	fmt.Fprintf(w, "\nStrategy: %s\n", strategy)
	fmt.Fprintf(w, "Rooftops: %d, groups: %d\n", len(rooftops), len(groups))
	fmt.Fprintf(w, "Groups by class: high=%d, medium=%d, low=%d\n",
		byClass[domain.ClassificationHigh], byClass[domain.ClassificationMedium], byClass[domain.ClassificationLow])
	fmt.Fprintf(w, "Rooftops by class: high=%d, medium=%d, low=%d\n",
		markers[domain.ClassificationHigh], markers[domain.ClassificationMedium], markers[domain.ClassificationLow])
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

