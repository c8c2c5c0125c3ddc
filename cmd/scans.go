package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/spf13/cobra"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Inspect and maintain stored scans",
}

var scansListCmd = &cobra.Command{
	Use:   "list <device-id>",
	Short: "List the newest scans of a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runScansList,
}

var scansDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id> <device-id>",
	Short: "Delete a scan owned by a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runScansDelete,
}

var scansPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired scans",
	Long: `Delete every scan whose retention period has passed.

MongoDB removes expired scans on its own through a TTL index, so this mostly
matters for the PostgreSQL store. The server runs the same purge hourly.`,
	RunE: runScansPurge,
}

func init() {
	rootCmd.AddCommand(scansCmd)
	scansCmd.AddCommand(scansListCmd, scansDeleteCmd, scansPurgeCmd)

	scansListCmd.Flags().Int("limit", 10, "Maximum number of scans")
	scansListCmd.Flags().Int("page", 1, "Page number")
	scansListCmd.Flags().Bool("json", false, "Output as JSON")

	scansPurgeCmd.Flags().Bool("json", false, "Output as JSON")
}

func openScanStore(ctx context.Context) (*backends, error) {
	return openBackends(ctx, config.Load(), backendNeeds{scans: true})
}

func runScansList(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	page := mustGetInt(cmd, "page")
	jsonOutput := mustGetBool(cmd, "json")
	if limit < 1 || page < 1 {
		return errors.New("--limit and --page must be positive")
	}

	ctx := context.Background()
	b, err := openScanStore(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	scans, err := b.scans.ListScansByDevice(ctx, args[0], limit, (page-1)*limit)
	if err != nil {
		return fmt.Errorf("listing scans: %w", err)
	}
	total, err := b.scans.CountScansByDevice(ctx, args[0])
	if err != nil {
		return fmt.Errorf("counting scans: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]any{"scans": scans, "total": total})
	}
	if len(scans) == 0 {
		fmt.Println("No scans found.")
		return nil
	}
	fmt.Printf("%-36s %-20s %6s %-8s %s\n", "ID", "CREATED", "SCORE", "SHAPE", "MATCH")
	for _, s := range scans {
		match := "-"
		if s.Match != nil {
			match = fmt.Sprintf("%s (%d%%)", s.Match.Name, s.Match.Similarity)
		}
		fmt.Printf("%-36s %-20s %6.1f %-8s %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.TotalScore, s.FaceShape, match)
	}
	fmt.Printf("\nShowing %d of %d scans\n", len(scans), total)
	return nil
}

func runScansDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	b, err := openScanStore(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	err = b.scans.DeleteScan(ctx, args[0], args[1])
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("scan %s not found for device %s", args[0], args[1])
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted scan %s\n", args[0])
	return nil
}

func runScansPurge(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	b, err := openScanStore(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	n, err := b.scans.DeleteExpiredScans(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("purging scans: %w", err)
	}
	if jsonOutput {
		return outputJSON(map[string]int64{"deleted": n})
	}
	fmt.Printf("Deleted %d expired scans\n", n)
	return nil
}
