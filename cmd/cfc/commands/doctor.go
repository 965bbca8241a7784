package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and rendering",
	Long: `Checks the configuration and verifies that the generator, the chart
cache and the SVG renderer work with it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := healthcheck.Check(cmd.Context(), cfg, "", effectiveConfigPath())
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if result.HasError() {
			return fmt.Errorf("health check failed: one or more components are not working")
		}
		return nil
	},
}

// effectiveConfigPath returns the config file with the highest priority, or
// "" when only defaults are in use.
func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	for _, path := range []string{config.ProjectConfigPath(), config.GlobalConfigPath()} {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintln(w, "Using config: defaults (run 'cfc init' to create a config file)")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}
	displayComponents(w, result)
}

func displayComponents(w io.Writer, result *healthcheck.HealthCheckResult) {
	for _, c := range []healthcheck.ComponentStatus{result.Generator, result.Cache, result.Renderer} {
		fmt.Fprintf(w, "\n%s:\n", c.Name)
		if c.Detail != "" {
			fmt.Fprintf(w, "  %s\n", c.Detail)
		}
		fmt.Fprintf(w, "  Status: %s %s\n", formatStatusIcon(c.Status), c.Status)
		if c.Error != "" && c.Status == "error" {
			fmt.Fprintf(w, "  Error: %s\n", c.Error)
		}
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case "ready":
		return "✓"
	case "skipped":
		return "-"
	case "error":
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
