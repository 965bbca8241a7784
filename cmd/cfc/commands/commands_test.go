package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/internal/log"
	"github.com/l3aro/cflowchart/pkg/cache"
	"github.com/l3aro/cflowchart/pkg/cast"
	"github.com/l3aro/cflowchart/pkg/dirty"
)

const helloSource = `#include <stdio.h>

int main() {
	printf("Hello\n");
	return 0;
}
`

const helloChart = `flowchart TB
    subgraph SG0[" "]
        direction TB
        n1_1["main()"]
        n1_2[/"Output: Hello"/]
        n1_1 --> n1_2
    end
`

const twoFunctions = `int square(int x) {
	return x * x;
}

int main(void) {
	int n;
	scanf("%d", &n);
	printf("%d\n", square(n));
	return 0;
}
`

func testEnv(t *testing.T) (*config.Config, context.Context, *bytes.Buffer) {
	t.Helper()
	c := config.DefaultConfig()
	c.CacheDir = filepath.Join(t.TempDir(), "cache")

	var logs bytes.Buffer
	l := log.New(log.LoggerConfig{Level: log.DebugLevel, Output: &logs})
	return c, log.WithContext(context.Background(), l), &logs
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestRunChart_SingleFile(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{}, &out))
	assert.Equal(t, helloChart, out.String())
}

func TestRunChart_OutputFile(t *testing.T) {
	c, ctx, _ := testEnv(t)
	dir := t.TempDir()
	path := writeSource(t, dir, "hello.c", helloSource)
	target := filepath.Join(dir, "charts", "hello.mmd")

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{Output: target}, &out))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, helloChart, string(data))
}

func TestRunChart_JSON(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "prog.c", twoFunctions)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{JSON: true}, &out))

	var res chartResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, path, res.File)
	assert.Equal(t, []string{"square", "main"}, res.Functions)
	assert.Equal(t, "mermaid", res.Format)
	assert.Contains(t, res.Chart, `subgraph SG1[" "]`)
	assert.Contains(t, res.Chart, `[/"Input: n"/]`)
	assert.False(t, res.Cached)
}

func TestRunChart_FunctionFilter(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "prog.c", twoFunctions)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{Function: "square"}, &out))
	assert.Contains(t, out.String(), `n1_1["square(x)"]`)
	assert.NotContains(t, out.String(), "main")
}

func TestRunChart_DOT(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{Format: config.FormatDOT}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "digraph G {"))
	assert.Contains(t, out.String(), `"cluster_SG0"`)
	assert.Contains(t, out.String(), `"n1_1" -> "n1_2"`)
}

func TestRunChart_SVG(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{Format: config.FormatSVG}, &out))
	assert.Contains(t, out.String(), "<svg")
}

func TestRunChart_InvalidFormat(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	err := runChart(ctx, c, path, chartOptions{Format: "png"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid format")
}

func TestRunChart_Strict(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "loop.c", "int main() {\n\tint i;\n\treturn 0;\n}\n")

	require.NoError(t, runChart(ctx, c, path, chartOptions{}, &bytes.Buffer{}))

	err := runChart(ctx, c, path, chartOptions{Strict: true, NoCache: true}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "declaration")
}

func TestRunChart_SyntaxError(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "broken.c", "int main( {\n")

	err := runChart(ctx, c, path, chartOptions{}, &bytes.Buffer{})
	var perr *cast.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestRunChart_NoFunctionsWarns(t *testing.T) {
	c, ctx, logs := testEnv(t)
	path := writeSource(t, t.TempDir(), "globals.c", "int counter = 0;\n")

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{}, &out))
	assert.Equal(t, "flowchart TB\n", out.String())
	assert.Contains(t, logs.String(), "no function definitions found")
}

func TestRunChart_MissingFile(t *testing.T) {
	c, ctx, _ := testEnv(t)
	err := runChart(ctx, c, filepath.Join(t.TempDir(), "nope.c"), chartOptions{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunChart_Cache(t *testing.T) {
	c, ctx, logs := testEnv(t)
	path := writeSource(t, t.TempDir(), "prog.c", twoFunctions)

	var first bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{JSON: true}, &first))
	assert.FileExists(t, filepath.Join(c.CacheDir, cache.FileName))

	var second bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{JSON: true}, &second))
	assert.Contains(t, logs.String(), "cache hit")

	var a, b chartResult
	require.NoError(t, json.Unmarshal(first.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Bytes(), &b))
	assert.True(t, b.Cached)
	assert.Equal(t, a.Chart, b.Chart)
	assert.Equal(t, a.Functions, b.Functions)

	// A different format is a different key.
	var third bytes.Buffer
	require.NoError(t, runChart(ctx, c, path, chartOptions{JSON: true, Format: config.FormatDOT}, &third))
	var d chartResult
	require.NoError(t, json.Unmarshal(third.Bytes(), &d))
	assert.False(t, d.Cached)
}

func TestRunChart_NoCache(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	require.NoError(t, runChart(ctx, c, path, chartOptions{NoCache: true}, &bytes.Buffer{}))
	assert.NoFileExists(t, filepath.Join(c.CacheDir, cache.FileName))

	c.CacheEnabled = false
	require.NoError(t, runChart(ctx, c, path, chartOptions{}, &bytes.Buffer{}))
	assert.NoFileExists(t, filepath.Join(c.CacheDir, cache.FileName))
}

func TestRunChart_Directory(t *testing.T) {
	c, ctx, _ := testEnv(t)
	src := t.TempDir()
	writeSource(t, src, "hello.c", helloSource)
	writeSource(t, src, filepath.Join("lib", "prog.c"), twoFunctions)
	writeSource(t, src, "notes.txt", "not C")
	outDir := filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, src, chartOptions{OutDir: outDir}, &out))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(filepath.Join(outDir, "hello.mmd"))
	require.NoError(t, err)
	assert.Equal(t, helloChart, string(data))
	assert.FileExists(t, filepath.Join(outDir, "lib", "prog.mmd"))
	assert.NoFileExists(t, filepath.Join(outDir, "notes.mmd"))
}

func TestRunChart_DirectoryJSON(t *testing.T) {
	c, ctx, _ := testEnv(t)
	src := t.TempDir()
	writeSource(t, src, "b.c", twoFunctions)
	writeSource(t, src, "a.c", helloSource)

	var out bytes.Buffer
	require.NoError(t, runChart(ctx, c, src, chartOptions{JSON: true, Format: config.FormatDOT}, &out))

	var results []chartResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "a.c", results[0].File)
	assert.Equal(t, []string{"main"}, results[0].Functions)
	assert.Equal(t, "b.c", results[1].File)
	assert.Equal(t, "dot", results[1].Format)
}

func TestRunChart_DirectoryNeedsOutDir(t *testing.T) {
	c, ctx, _ := testEnv(t)
	err := runChart(ctx, c, t.TempDir(), chartOptions{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--out-dir")
}

func TestRunChart_DirectoryPartialFailure(t *testing.T) {
	c, ctx, logs := testEnv(t)
	src := t.TempDir()
	writeSource(t, src, "good.c", helloSource)
	writeSource(t, src, "bad.c", "int main( {\n")
	outDir := t.TempDir()

	err := runChart(ctx, c, src, chartOptions{OutDir: outDir}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "1 of 2 files failed")
	assert.FileExists(t, filepath.Join(outDir, "good.mmd"))
	assert.Contains(t, logs.String(), "bad.c")
}

func TestListFunctions(t *testing.T) {
	path := writeSource(t, t.TempDir(), "prog.c", twoFunctions)

	funcs, err := listFunctions(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []functionInfo{
		{Name: "square", Params: []string{"x"}, Line: 1},
		{Name: "main", Params: []string{}, Line: 5},
	}, funcs)

	var out bytes.Buffer
	require.NoError(t, printFunctions(&out, funcs))
	assert.Equal(t, "    1  square(x)\n    5  main()\n", out.String())
}

func TestPrintFunctions_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printFunctions(&out, nil))
	assert.Equal(t, "No function definitions found.\n", out.String())
}

func TestCacheStatsAndClear(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)
	require.NoError(t, runChart(ctx, c, path, chartOptions{}, &bytes.Buffer{}))

	summary, err := cacheStats(c, true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Entries)
	assert.Equal(t, int64(len(strings.TrimSuffix(helloChart, "\n"))), summary.Bytes)
	require.Len(t, summary.Charts, 1)
	assert.Equal(t, path, summary.Charts[0].File)
	assert.Equal(t, []string{"main"}, summary.Charts[0].Functions)

	var out bytes.Buffer
	require.NoError(t, printCacheStats(&out, summary))
	assert.Contains(t, out.String(), "Charts:     1")

	removed, err := clearCache(c)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	summary, err = cacheStats(c, false)
	require.NoError(t, err)
	assert.Zero(t, summary.Entries)
	assert.Nil(t, summary.Charts)
}

func TestClearCache_NoFile(t *testing.T) {
	c, _, _ := testEnv(t)
	removed, err := clearCache(c)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoFileExists(t, filepath.Join(c.CacheDir, cache.FileName))
}

func TestBuildConfig(t *testing.T) {
	c := buildConfig(" log_msg , puts ", "", "dot", true, true, "~/charts")
	assert.Equal(t, []string{"log_msg", "puts"}, c.OutputRoutines)
	assert.Equal(t, []string{"scanf"}, c.InputRoutines)
	assert.Equal(t, config.FormatDOT, c.Format)
	assert.True(t, c.Strict)
	assert.Equal(t, "~/charts", c.CacheDir)
	assert.NoError(t, c.Validate())

	c = buildConfig("printf", "scanf", "mermaid", false, false, "")
	assert.False(t, c.CacheEnabled)
}

func TestRunChart_Changed(t *testing.T) {
	c, ctx, logs := testEnv(t)
	src := t.TempDir()
	writeSource(t, src, "a.c", helloSource)
	bPath := writeSource(t, src, "b.c", twoFunctions)
	outDir := t.TempDir()
	opts := chartOptions{OutDir: outDir, Changed: true, NoCache: true}

	require.NoError(t, runChart(ctx, c, src, opts, &bytes.Buffer{}))
	assert.FileExists(t, filepath.Join(outDir, "a.mmd"))
	assert.FileExists(t, filepath.Join(outDir, "b.mmd"))
	assert.FileExists(t, filepath.Join(outDir, dirty.DefaultStateFile))

	logs.Reset()
	require.NoError(t, runChart(ctx, c, src, opts, &bytes.Buffer{}))
	assert.Contains(t, logs.String(), "skipped=2")

	// Editing one source re-renders only that file.
	require.NoError(t, os.WriteFile(bPath, []byte("void g() {}\n"), 0644))
	logs.Reset()
	require.NoError(t, runChart(ctx, c, src, opts, &bytes.Buffer{}))
	assert.Contains(t, logs.String(), "skipped=1")
	data, err := os.ReadFile(filepath.Join(outDir, "b.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `n1_1["g()"]`)

	// A deleted chart is regenerated.
	require.NoError(t, os.Remove(filepath.Join(outDir, "a.mmd")))
	require.NoError(t, runChart(ctx, c, src, opts, &bytes.Buffer{}))
	assert.FileExists(t, filepath.Join(outDir, "a.mmd"))
}

func TestRunChart_ChangedNeedsOutDir(t *testing.T) {
	c, ctx, _ := testEnv(t)
	path := writeSource(t, t.TempDir(), "hello.c", helloSource)

	err := runChart(ctx, c, path, chartOptions{Changed: true}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--changed")
}
