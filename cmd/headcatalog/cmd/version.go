package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/openheads/headcatalog/internal/config"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "0.3.0"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the build information of headcatalog together with the config file
and the catalog this binary would serve from the current directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		printBuild(out)
		printServing(out, config.ConfigFileUsed(), catalogSummary())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

func printBuild(w io.Writer) {
	fmt.Fprintf(w, "headcatalog %s (%s, built %s)\n", Version, Commit, BuildDate)
	fmt.Fprintf(w, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// printServing reports where configuration comes from and what the catalog
// holds, so a bug report carries both.
func printServing(w io.Writer, configFile, catalog string) {
	if configFile == "" {
		configFile = "none (defaults and HEADCATALOG_* environment)"
	}
	fmt.Fprintf(w, "  Config:  %s\n", configFile)
	fmt.Fprintf(w, "  Catalog: %s\n", catalog)
}

// catalogSummary loads the configured catalog and describes it in one line.
func catalogSummary() string {
	idx, defects, err := loadCatalog()
	if err != nil {
		return "unavailable: " + err.Error()
	}
	summary := fmt.Sprintf("%d categories, %d items", idx.Len(), idx.ItemCount())
	if len(defects) > 0 {
		summary += fmt.Sprintf(", %d skipped (run `headcatalog catalog validate`)", len(defects))
	}
	return summary
}
