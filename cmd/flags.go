package cmd

import (
	"fmt"

	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/spf13/cobra"
)

// mustGet reads a flag defined in init(). A lookup error is a programming bug,
// so it panics instead of returning.
func mustGet[T any](name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return mustGet(name, cmd.Flags().GetBool)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return mustGet(name, cmd.Flags().GetInt)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return mustGet(name, cmd.Flags().GetString)
}

func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	return mustGet(name, cmd.Flags().GetFloat64)
}

// ratioFlags maps each ratio to its flag name and help text, in canonical order.
var ratioFlags = []struct {
	key   geometry.Key
	flag  string
	usage string
}{
	{geometry.FaceStructure, "face-structure", "Face length to width ratio"},
	{geometry.RuleOfFifths, "rule-of-fifths", "Inter-eye gap to eye width ratio"},
	{geometry.NasalOral, "nasal-oral", "Mouth width to nose width ratio"},
	{geometry.VerticalThirds, "vertical-thirds", "Upper to lower face third ratio"},
	{geometry.Symmetry, "symmetry", "Left to right symmetry (at most 1)"},
}

// addRatioFlags registers the five ratio flags, defaulting to the ideal face.
func addRatioFlags(cmd *cobra.Command) {
	ideal := goldenRatios()
	for _, f := range ratioFlags {
		cmd.Flags().Float64(f.flag, ideal.Get(f.key), f.usage)
	}
}

// ratiosFromFlags reads the flags registered by addRatioFlags.
func ratiosFromFlags(cmd *cobra.Command) geometry.RatioSet {
	v := make(map[geometry.Key]float64, len(ratioFlags))
	for _, f := range ratioFlags {
		v[f.key] = mustGetFloat64(cmd, f.flag)
	}
	return geometry.RatioSet{
		FaceStructure:  v[geometry.FaceStructure],
		RuleOfFifths:   v[geometry.RuleOfFifths],
		NasalOral:      v[geometry.NasalOral],
		VerticalThirds: v[geometry.VerticalThirds],
		Symmetry:       v[geometry.Symmetry],
	}
}
