package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/pkg/cache"
	"github.com/l3aro/cflowchart/pkg/cast"
	"github.com/l3aro/cflowchart/pkg/chart"
	"github.com/l3aro/cflowchart/pkg/render/dot"
)

// ComponentStatus represents the health of one part of the pipeline.
type ComponentStatus struct {
	Name   string
	Detail string
	Status string // "ready", "skipped" or "error"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Generator      ComponentStatus
	Cache          ComponentStatus
	Renderer       ComponentStatus

	format config.Format
}

// HasError reports whether a component needed by the configuration failed.
// A broken SVG renderer only counts when svg is the configured format.
func (r *HealthCheckResult) HasError() bool {
	if r.Generator.Status == "error" || r.Cache.Status == "error" {
		return true
	}
	return r.Renderer.Status == "error" && r.format == config.FormatSVG
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(ctx context.Context, cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
		format:         cfg.Format,
	}

	var doc chart.Document
	result.Generator, doc = checkGenerator(ctx, cfg)
	result.Cache = checkCache(cfg)
	result.Renderer = checkRenderer(ctx, doc)

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".cfc")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// probeSource exercises the configured input and output routines.
func probeSource(cfg *config.Config) string {
	return fmt.Sprintf(`int main() {
    int n;
    %s("%%d", &n);
    %s("%%d", n);
    return 0;
}
`, cfg.InputRoutines[0], cfg.OutputRoutines[0])
}

// checkGenerator charts a small program using the configured routines.
func checkGenerator(ctx context.Context, cfg *config.Config) (ComponentStatus, chart.Document) {
	status := ComponentStatus{
		Name:   "generator",
		Detail: fmt.Sprintf("output: %s; input: %s", strings.Join(cfg.OutputRoutines, ", "), strings.Join(cfg.InputRoutines, ", ")),
	}
	if len(cfg.OutputRoutines) == 0 || len(cfg.InputRoutines) == 0 {
		status.Status = "error"
		status.Error = "output and input routines must be configured"
		return status, chart.Document{}
	}

	unit, err := cast.Parse(ctx, []byte(probeSource(cfg)), "probe.c")
	if err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("parsing probe: %v", err)
		return status, chart.Document{}
	}

	g := chart.New(chart.Options{
		OutputRoutines: cfg.OutputRoutines,
		InputRoutines:  cfg.InputRoutines,
	})
	if _, err := g.Generate(unit); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("generating probe chart: %v", err)
		return status, chart.Document{}
	}

	doc := g.Document()
	// declaration, input and output
	if len(doc.Subgraphs) != 1 || len(doc.Subgraphs[0].Nodes) != 3 {
		status.Status = "error"
		status.Error = "probe chart is missing the input or output node"
		return status, doc
	}

	status.Status = "ready"
	return status, doc
}

// checkCache verifies the cache directory is writable and the cache file loads.
func checkCache(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{Name: "cache", Detail: cfg.CacheDir}
	if !cfg.CacheEnabled {
		status.Status = "skipped"
		status.Detail = "disabled"
		return status
	}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("cannot create %s: %v", cfg.CacheDir, err)
		return status
	}
	f, err := os.CreateTemp(cfg.CacheDir, ".probe-*")
	if err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("%s is not writable: %v", cfg.CacheDir, err)
		return status
	}
	f.Close()
	os.Remove(f.Name())

	store, err := cache.Open(cfg.CacheDir, cfg.CacheMaxEntries)
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}

	status.Status = "ready"
	status.Detail = fmt.Sprintf("%s (%d charts)", store.Path(), store.Len())
	return status
}

// checkRenderer renders the probe chart to SVG with the embedded graphviz.
func checkRenderer(ctx context.Context, doc chart.Document) ComponentStatus {
	status := ComponentStatus{Name: "renderer", Detail: "graphviz (svg)"}
	if len(doc.Subgraphs) == 0 {
		status.Status = "skipped"
		status.Detail = "no probe chart"
		return status
	}

	svg, err := dot.RenderSVG(ctx, dot.ToDOT(doc))
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	if !strings.Contains(string(svg), "<svg") {
		status.Status = "error"
		status.Error = "renderer produced no SVG"
		return status
	}

	status.Status = "ready"
	return status
}
