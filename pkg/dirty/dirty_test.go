package dirty

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestTracker_New(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{
			name: "default state file",
			want: filepath.Join("out", DefaultStateFile),
		},
		{
			name: "custom state file",
			opts: []Option{WithStateFile("state.json")},
			want: filepath.Join("out", "state.json"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracker := New("out", tc.opts...)
			assert.Equal(t, tc.want, tracker.Path())
			assert.Equal(t, 0, tracker.Len())
		})
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	writeFile(t, a, "int main() {}")
	writeFile(t, b, "int main() {}")

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	writeFile(t, b, "void f() {}")
	hb, err = HashFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	_, err = HashFile(filepath.Join(dir, "missing.c"))
	assert.Error(t, err)
}

func TestTracker_Changed(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "main.mmd")
	writeFile(t, output, "flowchart TB")

	tracker := New(dir)
	assert.True(t, tracker.Changed("main.c", "h1", "mermaid"), "untracked file")

	tracker.Mark("main.c", "h1", "mermaid", output)
	assert.False(t, tracker.Changed("main.c", "h1", "mermaid"))
	assert.True(t, tracker.Changed("main.c", "h2", "mermaid"), "new content")
	assert.True(t, tracker.Changed("main.c", "h1", "dot"), "new options")

	require.NoError(t, os.Remove(output))
	assert.True(t, tracker.Changed("main.c", "h1", "mermaid"), "output deleted")
}

func TestTracker_ChangedContext(t *testing.T) {
	tracker := New(t.TempDir())
	tracker.Mark("a.c", "h", "fp", "")

	changed, err := tracker.ChangedContext(context.Background(), "a.c", "h", "fp")
	require.NoError(t, err)
	assert.False(t, changed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tracker.ChangedContext(ctx, "a.c", "h", "fp")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracker_RemoveAndPrune(t *testing.T) {
	tracker := New(t.TempDir())
	for _, rel := range []string{"a.c", "b.c", "lib/c.c"} {
		tracker.Mark(rel, "h", "fp", "")
	}

	tracker.Remove("a.c")
	_, ok := tracker.GetHash("a.c")
	assert.False(t, ok)

	dropped := tracker.Prune([]string{"lib/c.c"})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, tracker.Len())
	hash, ok := tracker.GetHash("lib/c.c")
	assert.True(t, ok)
	assert.Equal(t, "h", hash)
}

func TestTracker_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	tracker := New(dir)
	tracker.Mark("b.c", "h2", "fp", "")
	tracker.Mark("a.c", "h1", "fp", "")
	require.NoError(t, tracker.Save())
	assert.FileExists(t, filepath.Join(dir, DefaultStateFile))

	loaded, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.False(t, loaded.Changed("a.c", "h1", "fp"))
	assert.True(t, loaded.Changed("b.c", "h1", "fp"))
}

func TestTracker_SaveToSorted(t *testing.T) {
	tracker := New(t.TempDir())
	tracker.Mark("z.c", "h", "fp", "")
	tracker.Mark("a.c", "h", "fp", "")

	var buf bytes.Buffer
	require.NoError(t, tracker.SaveTo(&buf))
	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte(`"a.c"`)), bytes.Index([]byte(out), []byte(`"z.c"`)))
	assert.Contains(t, out, `"version": 1`)
}

func TestTracker_LoadMissingAndGarbage(t *testing.T) {
	dir := t.TempDir()
	tracker, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, tracker.Len())

	writeFile(t, filepath.Join(dir, DefaultStateFile), "not json")
	_, err = Open(dir)
	assert.Error(t, err)
}
