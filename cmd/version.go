package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/references"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// VersionInfo is the output of the version command.
type VersionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	References int    `json:"references"`
	VectorDim  int    `json:"vector_dim"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := buildVersionInfo()
	if mustGetBool(cmd, "json") {
		return outputJSON(info)
	}

	fmt.Printf("faceratio %s\n", info.Version)
	fmt.Printf("  Commit:     %s\n", info.Commit)
	fmt.Printf("  Built:      %s\n", info.BuildDate)
	fmt.Printf("  Go:         %s\n", info.GoVersion)
	fmt.Printf("  References: %d (dim %d)\n", info.References, info.VectorDim)
	return nil
}

func buildVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    CommitSHA,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		VectorDim: database.ReferenceDim,
	}
	if info.Commit == "unknown" {
		info.Commit = vcsRevision()
	}
	if catalog, err := references.Catalog(); err == nil {
		info.References = len(catalog)
	}
	return info
}

// vcsRevision reads the commit stamped by the go tool, if any.
func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "unknown"
}
