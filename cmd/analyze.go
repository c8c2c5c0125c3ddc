package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.json>",
	Short: "Analyze a recorded capture",
	Long: `Score, classify and match a recorded capture file.

The file holds either averaged ratios or raw frames:

  {"deviceId": "...", "ratios": {"faceStructure": 1.6, ...}}
  {"frames": [{"landmarks": {"chin": {"x": 0.5, "y": 0.9}, ...}}, {"mesh": [...]}]}

By default only the built-in reference catalog is used and nothing is stored.
With --persist the scan and statistics go to the configured backends.

Examples:
  faceratio analyze capture.json
  faceratio analyze capture.json --persist --device-id my-phone
  faceratio analyze capture.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("persist", false, "Store the scan and update statistics in the configured backends")
	analyzeCmd.Flags().String("device-id", "", "Device ID to store the scan under (overrides the file)")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	persist := mustGetBool(cmd, "persist")
	deviceID := mustGetString(cmd, "device-id")
	jsonOutput := mustGetBool(cmd, "json")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	capture, err := analysis.ReadCapture(f)
	if err != nil {
		return err
	}
	if deviceID != "" {
		capture.DeviceID = deviceID
	}

	ctx := context.Background()
	cfg := config.Load()
	need := backendNeeds{refs: true}
	if persist {
		need = allBackends
	} else {
		cfg.Backends.Vector = database.BackendHNSW
		cfg.Database.HNSWIndexPath = ""
	}

	b, err := openBackends(ctx, cfg, need)
	if err != nil {
		return err
	}
	defer b.Close()

	analyzer, _, err := newAnalyzer(cfg, b)
	if err != nil {
		return err
	}

	res, report, err := analyzer.RunCapture(ctx, capture, cfg.Scoring.Window.Capacity, cfg.Scoring.Window.MinSamples)
	if errors.Is(err, geometry.ErrInsufficientSamples) {
		return fmt.Errorf("only %d of %d frames were usable, at least %d are needed",
			report.Accepted, report.Accepted+report.Rejected, cfg.Scoring.Window.MinSamples)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(res)
	}
	printResult(res, report)
	return nil
}

func printResult(res *analysis.Result, report analysis.FrameReport) {
	if report.Accepted+report.Rejected > 0 {
		fmt.Printf("Frames: %d usable, %d rejected\n\n", report.Accepted, report.Rejected)
	}

	fmt.Printf("Score:      %.1f / 100\n", res.Scores.Total)
	fmt.Printf("Face shape: %s\n\n", res.FaceShape)

	fmt.Printf("%-16s %8s %8s %8s\n", "RATIO", "ACTUAL", "IDEAL", "OFF")
	fmt.Println(strings.Repeat("-", 43))
	for _, c := range res.Comparison {
		fmt.Printf("%-16s %8.3f %8.3f %7.1f%%\n", c.Name, c.Actual, c.Ideal, c.DeviationPercent)
	}

	if len(res.Matches) > 0 {
		fmt.Println("\nClosest references:")
		for _, m := range res.Matches {
			fmt.Printf("  %d. %-28s %3d%%  %s\n", m.Rank, m.Metadata.Name, m.Similarity, m.Metadata.Description)
		}
	}
	if res.MatchError != "" {
		fmt.Printf("\nMatching failed: %s\n", res.MatchError)
	}
	if res.ScanID != "" {
		fmt.Printf("\nSaved as scan %s\n", res.ScanID)
	}
	if res.PersistError != "" {
		fmt.Printf("\nWarning: %s\n", res.PersistError)
	}
}
