package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/internal/log"
	"github.com/l3aro/cflowchart/internal/scanner"
	"github.com/l3aro/cflowchart/pkg/cache"
	"github.com/l3aro/cflowchart/pkg/cast"
	"github.com/l3aro/cflowchart/pkg/chart"
	"github.com/l3aro/cflowchart/pkg/dirty"
	"github.com/l3aro/cflowchart/pkg/render/dot"
)

// chartOptions holds the flags of the chart command.
type chartOptions struct {
	Function string
	Format   config.Format
	Output   string
	OutDir   string
	Strict   bool
	NoCache  bool
	JSON     bool
	Changed  bool
}

// chartResult is one rendered file.
type chartResult struct {
	File      string   `json:"file"`
	Functions []string `json:"functions"`
	Format    string   `json:"format"`
	Chart     string   `json:"chart"`
	Cached    bool     `json:"cached"`
}

// chartCmd represents the chart command
var chartCmd = &cobra.Command{
	Use:   "chart <file|dir>",
	Short: "Render C functions as a flowchart",
	Long: `Renders every function definition of a C file as a flowchart subgraph.

A single file is written to stdout or --output. A directory is scanned for
.c files (honouring .cfcignore) and one chart per file is written below
--out-dir, mirroring the source layout. With --changed only files edited since
the last run into --out-dir are charted again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := chartOptions{}
		opts.Function, _ = cmd.Flags().GetString("function")
		format, _ := cmd.Flags().GetString("format")
		opts.Format = config.Format(strings.ToLower(format))
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.OutDir, _ = cmd.Flags().GetString("out-dir")
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.NoCache, _ = cmd.Flags().GetBool("no-cache")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Changed, _ = cmd.Flags().GetBool("changed")

		return runChart(cmd.Context(), cfg, args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	chartCmd.Flags().StringP("function", "f", "", "Only render the named function")
	chartCmd.Flags().String("format", "", "Output format: mermaid, dot or svg (default from config)")
	chartCmd.Flags().StringP("output", "o", "", "Write the chart of a single file to this path")
	chartCmd.Flags().String("out-dir", "", "Directory for per-file charts when charting a directory")
	chartCmd.Flags().Bool("strict", false, "Fail on constructs that cannot be rendered")
	chartCmd.Flags().Bool("no-cache", false, "Bypass the chart cache")
	chartCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	chartCmd.Flags().Bool("changed", false, "Only chart files changed since the last run into --out-dir")
	RootCmd.AddCommand(chartCmd)
}

func runChart(ctx context.Context, c *config.Config, path string, opts chartOptions, stdout io.Writer) error {
	logger := log.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat path: %w", err)
	}
	if info.IsDir() && opts.OutDir == "" && !opts.JSON {
		return fmt.Errorf("--out-dir is required when charting a directory")
	}
	if opts.Changed && (!info.IsDir() || opts.OutDir == "") {
		return fmt.Errorf("--changed needs a directory and --out-dir")
	}

	r, err := newRenderer(c, opts, logger)
	if err != nil {
		return err
	}
	defer r.close()

	if !info.IsDir() {
		res, err := r.render(ctx, path)
		if err != nil {
			return err
		}
		return writeSingle(res, opts, stdout)
	}
	return r.renderDir(ctx, path, stdout)
}

// renderer renders files with a fixed set of options and an optional cache.
type renderer struct {
	opts   chartOptions
	gen    chart.Options
	store  *cache.Store
	logger log.Logger
}

func newRenderer(c *config.Config, opts chartOptions, logger log.Logger) (*renderer, error) {
	if opts.Format == "" {
		opts.Format = c.Format
	}
	if !opts.Format.Valid() {
		return nil, fmt.Errorf("invalid format: %s (must be 'mermaid', 'dot' or 'svg')", opts.Format)
	}

	r := &renderer{
		opts: opts,
		gen: chart.Options{
			OutputRoutines: c.OutputRoutines,
			InputRoutines:  c.InputRoutines,
			Function:       opts.Function,
			Strict:         opts.Strict || c.Strict,
			Logger:         logger,
		},
		logger: logger,
	}

	if c.CacheEnabled && !opts.NoCache {
		store, err := cache.Open(c.CacheDir, c.CacheMaxEntries)
		if err != nil {
			logger.Warn("chart cache unavailable", "error", err)
		} else {
			r.store = store
		}
	}
	return r, nil
}

// fingerprint lists everything besides the source that changes the output.
func (r *renderer) fingerprint() []string {
	return []string{
		string(r.opts.Format),
		strings.Join(r.gen.OutputRoutines, ","),
		strings.Join(r.gen.InputRoutines, ","),
		r.gen.Function,
		fmt.Sprintf("strict=%t", r.gen.Strict),
	}
}

func (r *renderer) render(ctx context.Context, path string) (chartResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return chartResult{}, fmt.Errorf("reading file %s: %w", path, err)
	}

	key := cache.Key(src, r.fingerprint()...)
	if r.store != nil {
		if e, ok := r.store.Get(key); ok {
			r.logger.Debug("cache hit", "file", path)
			return chartResult{File: path, Functions: e.Functions, Format: e.Format, Chart: e.Chart, Cached: true}, nil
		}
	}

	unit, err := cast.Parse(ctx, src, path)
	if err != nil {
		return chartResult{}, err
	}

	g := chart.New(r.gen)
	text, err := g.Generate(unit)
	if err != nil {
		return chartResult{}, fmt.Errorf("generating chart for %s: %w", path, err)
	}
	doc := g.Document()
	if len(doc.Subgraphs) == 0 {
		r.logger.Warn("no function definitions found", "file", path)
	}

	out, err := r.convert(ctx, text, doc)
	if err != nil {
		return chartResult{}, fmt.Errorf("rendering %s: %w", path, err)
	}

	res := chartResult{File: path, Functions: doc.Functions(), Format: string(r.opts.Format), Chart: out}
	if r.store != nil {
		r.store.Put(key, cache.Entry{File: path, Format: res.Format, Chart: out, Functions: res.Functions})
	}
	r.logger.Debug("rendered chart", "file", path, "functions", len(res.Functions))
	return res, nil
}

func (r *renderer) convert(ctx context.Context, mermaid string, doc chart.Document) (string, error) {
	switch r.opts.Format {
	case config.FormatDOT:
		return dot.ToDOT(doc), nil
	case config.FormatSVG:
		svg, err := dot.RenderSVG(ctx, dot.ToDOT(doc))
		if err != nil {
			return "", err
		}
		return string(svg), nil
	default:
		return mermaid, nil
	}
}

func (r *renderer) renderDir(ctx context.Context, root string, stdout io.Writer) error {
	files, err := scanner.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning directory: %w", err)
	}
	if len(files) == 0 {
		r.logger.Warn("no C files found", "path", root)
	}

	var tracker *dirty.Tracker
	if r.opts.Changed {
		if tracker, err = dirty.Open(r.opts.OutDir); err != nil {
			return fmt.Errorf("loading change state: %w", err)
		}
	}
	fingerprint := strings.Join(r.fingerprint(), "\x00")

	results := make([]chartResult, 0, len(files))
	seen := make([]string, 0, len(files))
	failed, skipped := 0, 0
	for _, f := range files {
		seen = append(seen, f.Path)
		target := ""
		if r.opts.OutDir != "" {
			target = filepath.Join(r.opts.OutDir, filepath.FromSlash(strings.TrimSuffix(f.Path, filepath.Ext(f.Path)))+extension(r.opts.Format))
		}

		var hash string
		if tracker != nil {
			if hash, err = dirty.HashFile(f.FullPath); err != nil {
				r.logger.Error("chart failed", "file", f.Path, "error", err)
				failed++
				continue
			}
			changed, err := tracker.ChangedContext(ctx, f.Path, hash, fingerprint)
			if err != nil {
				return err
			}
			if !changed {
				r.logger.Debug("unchanged, skipping", "file", f.Path)
				skipped++
				continue
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.render(ctx, f.FullPath)
		if err != nil {
			r.logger.Error("chart failed", "file", f.Path, "error", err)
			failed++
			continue
		}
		res.File = f.Path

		if target != "" {
			if err := writeFile(target, res.Chart); err != nil {
				return err
			}
			r.logger.Debug("wrote chart", "path", target)
			if tracker != nil {
				tracker.Mark(f.Path, hash, fingerprint, target)
			}
		}
		results = append(results, res)
	}

	if tracker != nil {
		if dropped := tracker.Prune(seen); dropped > 0 {
			r.logger.Debug("forgot removed sources", "count", dropped)
		}
		if err := tracker.Save(); err != nil {
			r.logger.Warn("saving change state", "error", err)
		}
	}

	if r.opts.JSON {
		if err := writeJSON(stdout, results); err != nil {
			return err
		}
	}

	r.logger.Info("charted directory", "files", len(results), "skipped", skipped, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (r *renderer) close() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(); err != nil {
		r.logger.Warn("saving chart cache", "error", err)
	}
}

func writeSingle(res chartResult, opts chartOptions, stdout io.Writer) error {
	if opts.JSON {
		if opts.Output == "" {
			return writeJSON(stdout, res)
		}
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return writeFile(opts.Output, string(data))
	}

	if opts.Output != "" {
		return writeFile(opts.Output, res.Chart)
	}
	_, err := io.WriteString(stdout, withNewline(res.Chart))
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(withNewline(content)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func extension(f config.Format) string {
	switch f {
	case config.FormatDOT:
		return ".dot"
	case config.FormatSVG:
		return ".svg"
	default:
		return ".mmd"
	}
}
