package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/matcher"
	"github.com/kozaktomas/faceratio/internal/references"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var referencesCmd = &cobra.Command{
	Use:   "references",
	Short: "Manage the reference face index",
}

var referencesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in reference catalog into the vector index",
	Long: `Upsert every entry of the built-in reference catalog into the configured
vector backend (VECTOR_BACKEND) in batches, then run a golden-ratio check
query to confirm the index answers.

Seeding is idempotent: entries are keyed by their stable IDs.

Examples:
  VECTOR_BACKEND=pinecone faceratio references seed
  VECTOR_BACKEND=pgvector faceratio references seed --json`,
	RunE: runReferencesSeed,
}

var referencesQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the references closest to a set of ratios",
	Long: `Query the configured vector backend with five ratios.

Examples:
  faceratio references query --face-structure 1.62 --rule-of-fifths 1 --nasal-oral 1.6 --vertical-thirds 1 --symmetry 0.98
  faceratio references query --top 5 --json`,
	RunE: runReferencesQuery,
}

var referencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in reference catalog",
	RunE:  runReferencesList,
}

func init() {
	rootCmd.AddCommand(referencesCmd)
	referencesCmd.AddCommand(referencesSeedCmd, referencesQueryCmd, referencesListCmd)

	referencesSeedCmd.Flags().Int("batch-size", references.SeedBatchSize, "References per upsert request")
	referencesSeedCmd.Flags().Bool("json", false, "Output as JSON")

	addRatioFlags(referencesQueryCmd)
	referencesQueryCmd.Flags().Int("top", matcher.DefaultTopK, "Number of matches")
	referencesQueryCmd.Flags().Bool("json", false, "Output as JSON")

	referencesListCmd.Flags().Bool("json", false, "Output as JSON")
}

// SeedResult represents the result of a seed operation
type SeedResult struct {
	Success       bool                  `json:"success"`
	Backend       string                `json:"backend"`
	Upserted      int                   `json:"upserted"`
	Batches       int                   `json:"batches"`
	IndexCount    int                   `json:"index_count"`
	Check         []matcher.MatchResult `json:"check"`
	DurationMs    int64                 `json:"duration_ms"`
	DurationHuman string                `json:"duration_human,omitempty"`
}

func runReferencesSeed(cmd *cobra.Command, args []string) error {
	batchSize := mustGetInt(cmd, "batch-size")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	refs, err := references.Catalog()
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, backendNeeds{refs: true})
	if err != nil {
		return err
	}
	defer b.Close()

	batches := references.Batches(refs, batchSize)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Seeding %d references into %s\n\n", len(refs), cfg.Backends.Vector)
		bar = progressbar.NewOptions(len(refs),
			progressbar.OptionSetDescription("Upserting references"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	upserted := 0
	for i, batch := range batches {
		if err := b.refs.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upserting batch %d of %d: %w", i+1, len(batches), err)
		}
		upserted += len(batch)
		if bar != nil {
			bar.Add(len(batch))
		}
	}
	if bar != nil {
		fmt.Println()
	}
	saveIndexes()

	count, err := b.refs.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting references: %w", err)
	}
	m := matcher.New(b.refs, cfg.Analysis.MatchTimeout)
	check, err := m.Match(ctx, matcher.Embed(goldenRatios()), 1)
	if err != nil {
		return fmt.Errorf("check query failed: %w", err)
	}

	duration := time.Since(startTime)
	result := SeedResult{
		Success:       true,
		Backend:       cfg.Backends.Vector,
		Upserted:      upserted,
		Batches:       len(batches),
		IndexCount:    count,
		Check:         check,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nSeed complete!")
	fmt.Printf("  Upserted:    %d in %d batches\n", result.Upserted, result.Batches)
	fmt.Printf("  Index size:  %d\n", result.IndexCount)
	if len(check) > 0 {
		fmt.Printf("  Check match: %s (%d%%)\n", check[0].Metadata.Name, check[0].Similarity)
	} else {
		fmt.Println("  Check match: none (the index may still be updating)")
	}
	fmt.Printf("  Duration:    %s\n", result.DurationHuman)
	return nil
}

// goldenRatios is the ideal face every ratio target describes.
func goldenRatios() geometry.RatioSet {
	return geometry.RatioSet{
		FaceStructure:  1.618,
		RuleOfFifths:   1,
		NasalOral:      1.618,
		VerticalThirds: 1,
		Symmetry:       1,
	}
}

func runReferencesQuery(cmd *cobra.Command, args []string) error {
	ratios := ratiosFromFlags(cmd)
	top := mustGetInt(cmd, "top")
	jsonOutput := mustGetBool(cmd, "json")

	if !ratios.Valid() {
		return fmt.Errorf("ratios must be positive and symmetry at most 1")
	}

	ctx := context.Background()
	cfg := config.Load()
	b, err := openBackends(ctx, cfg, backendNeeds{refs: true})
	if err != nil {
		return err
	}
	defer b.Close()

	m := matcher.New(b.refs, cfg.Analysis.MatchTimeout)
	vector := matcher.Embed(ratios)
	matches, err := m.Match(ctx, vector, top)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]any{"userVector": vector.Slice(), "matches": matches})
	}
	if len(matches) == 0 {
		fmt.Println("No matches found. The index may not be seeded yet.")
		return nil
	}
	fmt.Printf("%-4s %-28s %-10s %6s\n", "RANK", "NAME", "CATEGORY", "MATCH")
	for _, r := range matches {
		fmt.Printf("%-4d %-28s %-10s %5d%%\n", r.Rank, r.Metadata.Name, r.Metadata.Category, r.Similarity)
	}
	return nil
}

func runReferencesList(cmd *cobra.Command, args []string) error {
	refs, err := references.Catalog()
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		type entry struct {
			ID       string                     `json:"id"`
			Values   []float32                  `json:"values"`
			Metadata database.ReferenceMetadata `json:"metadata"`
		}
		out := make([]entry, len(refs))
		for i, r := range refs {
			out[i] = entry{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
		}
		return outputJSON(out)
	}
	for _, r := range refs {
		fmt.Printf("%-28s %-28s %-8s %v\n", r.ID, r.Metadata.Name, r.Metadata.Category, r.Values)
	}
	fmt.Printf("\n%d references\n", len(refs))
	return nil
}
