// Package commands provides the CLI commands for the cfc tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/internal/log"
)

var (
	verbose    bool
	configPath string

	// cfg and logger are set up before any subcommand runs.
	cfg    *config.Config
	logger log.Logger = log.Default()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cfc",
	Short: "cflowchart - Render C functions as flowcharts",
	Long: `cflowchart converts the functions of C source files into flowcharts.

Commands:
  chart       Render a file or directory as mermaid, DOT or SVG
  functions   List the function definitions of a file
  init        Create a configuration file interactively
  doctor      Check the configuration, cache and renderer
  cache       Inspect or clear the chart cache

Use "cfc [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cfg, verbose)
		cmd.SetContext(log.WithContext(cmd.Context(), logger))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		c, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return c, nil
	}
	c, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func newLogger(c *config.Config, verboseFlag bool) *log.DefaultLogger {
	level := log.InfoLevel
	if verboseFlag || c.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: c.LogJSON})
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.cfc/config.yaml then ./.cfc/config.yaml)")
}
