package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/scoring"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show global scan statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	b, err := openBackends(ctx, cfg, backendNeeds{stats: true})
	if err != nil {
		return err
	}
	defer b.Close()

	s, err := b.stats.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("reading statistics: %w", err)
	}
	s.AverageScore = geometry.RoundTo(s.AverageScore, 1)

	if jsonOutput {
		return outputJSON(s)
	}

	fmt.Printf("Total scans:   %d\n", s.TotalScans)
	fmt.Printf("Average score: %.1f\n", s.AverageScore)
	if !s.LastUpdated.IsZero() {
		fmt.Printf("Last updated:  %s\n", s.LastUpdated.Format("2006-01-02 15:04:05"))
	}

	fmt.Println("\nFace shapes:")
	for _, shape := range scoring.ShapeNames() {
		fmt.Printf("  %-8s %d\n", shape, s.ShapeDistribution[shape])
	}

	fmt.Println("\nScores:")
	for _, bucket := range scoring.ScoreBuckets() {
		fmt.Printf("  %-8s %d\n", bucket, s.ScoreDistribution[bucket])
	}
	return nil
}
