package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cfc configuration interactively",
	Long: `Guides you through setting up cfc configuration step by step.
Creates a config file with the output and input routines, the default
format and the chart cache settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func runInit(cmd *cobra.Command) error {
	defaults := config.DefaultConfig()

	// === SECTION 1: Routines ===
	outputs := strings.Join(defaults.OutputRoutines, ", ")
	inputs := strings.Join(defaults.InputRoutines, ", ")
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output routines").
				Description("Calls rendered as output nodes (comma separated)").
				Placeholder(outputs).
				Value(&outputs),
			huh.NewInput().
				Title("Input routines").
				Description("Calls rendered as input nodes (comma separated)").
				Placeholder(inputs).
				Value(&inputs),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Rendering ===
	format := string(defaults.Format)
	strict := defaults.Strict
	formatOptions := make([]huh.Option[string], 0, len(config.Formats()))
	for _, f := range config.Formats() {
		formatOptions = append(formatOptions, huh.NewOption(string(f), string(f)))
	}
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default output format").
				Options(formatOptions...).
				Value(&format),
			huh.NewConfirm().
				Title("Strict mode").
				Description("Fail on constructs that cannot be rendered?").
				Affirmative("Yes, fail").
				Negative("No, skip them").
				Value(&strict),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Cache ===
	cacheEnabled := defaults.CacheEnabled
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Chart cache").
				Description("Reuse charts of unchanged files?").
				Value(&cacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	cacheDir := "~/.cfc/cache"
	if cacheEnabled {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Cache directory").
					Placeholder(cacheDir).
					Value(&cacheDir),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.cfc/config.yaml)", "global"),
					huh.NewOption("Project (./.cfc/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	savePath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		savePath = config.GlobalConfigPath()
	}

	if _, err := os.Stat(savePath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", savePath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	newCfg := buildConfig(outputs, inputs, format, strict, cacheEnabled, cacheDir)
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", savePath)
	fmt.Fprintf(out, "Output routines: %s\n", strings.Join(newCfg.OutputRoutines, ", "))
	fmt.Fprintf(out, "Input routines: %s\n", strings.Join(newCfg.InputRoutines, ", "))
	fmt.Fprintf(out, "Format: %s\n", newCfg.Format)
	fmt.Fprintf(out, "Strict: %t\n", newCfg.Strict)
	if newCfg.CacheEnabled {
		fmt.Fprintf(out, "Cache: %s\n", newCfg.CacheDir)
	} else {
		fmt.Fprintln(out, "Cache: disabled")
	}
	fmt.Fprintln(out, "================================")

	if err := newCfg.Save(savePath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", savePath)

	// === SECTION 5: Health Check ===
	fmt.Fprintln(out, "\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(savePath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(cmd.Context(), loadedCfg, savePath, savePath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfig Scope: %s\n", result.SavedScope)
	if result.SavedScope == "global" {
		fmt.Fprintf(out, "Config Path: %s\n", savePath)
	} else {
		absPath, _ := filepath.Abs(savePath)
		fmt.Fprintf(out, "Config Path: %s\n", absPath)
	}
	displayComponents(out, result)

	fmt.Fprintln(out, "\n=== Initialization Complete ===")
	return nil
}

// buildConfig turns the answers of the init form into a Config.
func buildConfig(outputs, inputs, format string, strict, cacheEnabled bool, cacheDir string) *config.Config {
	c := config.DefaultConfig()
	if list := splitList(outputs); len(list) > 0 {
		c.OutputRoutines = list
	}
	if list := splitList(inputs); len(list) > 0 {
		c.InputRoutines = list
	}
	c.Format = config.Format(format)
	c.Strict = strict
	c.CacheEnabled = cacheEnabled
	if cacheEnabled && strings.TrimSpace(cacheDir) != "" {
		c.CacheDir = strings.TrimSpace(cacheDir)
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	RootCmd.AddCommand(initCmd)
}
