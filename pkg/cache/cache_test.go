package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	src := []byte(`int main() { puts("hi"); }`)

	k := Key(src, "mermaid")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key(src, "mermaid"))
	assert.NotEqual(t, k, Key(src, "dot"))
	assert.NotEqual(t, k, Key([]byte(`int main() { puts("ho"); }`), "mermaid"))
	assert.NotEqual(t, Key(src, "ab", "c"), Key(src, "a", "bc"), "parts are separated")
}

func TestChartCache_Basic(t *testing.T) {
	c := New(Options{MaxEntries: 3})

	c.Put("a", Entry{File: "a.c", Format: "mermaid", Chart: "chart_a"})
	c.Put("b", Entry{File: "b.c", Format: "mermaid", Chart: "chart_b"})
	c.Put("c", Entry{File: "c.c", Format: "dot", Chart: "chart_c"})

	assert.Equal(t, 3, c.Len())

	e, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "chart_a", e.Chart)
	assert.Equal(t, "a.c", e.File)
	assert.Equal(t, "mermaid", e.Format)
	assert.Equal(t, len("chart_a"), e.Size)

	e, found = c.Get("c")
	require.True(t, found)
	assert.Equal(t, "dot", e.Format)
}

func TestChartCache_LRU_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{MaxEntries: 3, OnEvict: func(e Entry) {
		evicted = append(evicted, e.Key)
	}})

	c.Put("a", Entry{Format: "mermaid", Chart: "1"})
	c.Put("b", Entry{Format: "mermaid", Chart: "2"})
	c.Put("c", Entry{Format: "mermaid", Chart: "3"})

	// Access 'a' to make it most recently used
	c.Get("a")

	// Should evict 'b' (least recently used)
	c.Put("d", Entry{Format: "mermaid", Chart: "4"})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)

	_, found := c.Get("b")
	assert.False(t, found, "b should have been evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, found = c.Get(k)
		assert.True(t, found, "%s should still be present", k)
	}
}

func TestChartCache_MaxBytes(t *testing.T) {
	c := New(Options{MaxBytes: 25})

	c.Put("a", Entry{Format: "mermaid", Chart: "1234567890"})
	c.Put("b", Entry{Format: "mermaid", Chart: "1234567890"})
	c.Put("c", Entry{Format: "mermaid", Chart: "1234567890"})

	assert.Equal(t, 2, c.Len())
	_, found := c.Get("a")
	assert.False(t, found)
	assert.Equal(t, int64(20), c.Stats().CurrentBytes)
}

func TestChartCache_OversizedEntryKept(t *testing.T) {
	c := New(Options{MaxBytes: 5})
	c.Put("big", Entry{Format: "svg", Chart: "1234567890"})

	e, found := c.Get("big")
	require.True(t, found)
	assert.Equal(t, "1234567890", e.Chart)
}

func TestChartCache_Update(t *testing.T) {
	c := New(Options{MaxEntries: 10})

	c.Put("a", Entry{File: "main.c", Format: "mermaid", Chart: "old"})
	c.Put("a", Entry{File: "main.c", Format: "mermaid", Chart: "newer"})

	e, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "newer", e.Chart)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(len("newer")), c.Stats().CurrentBytes)
}

func TestChartCache_DeleteClear(t *testing.T) {
	c := New(Options{MaxEntries: 10})

	c.Put("a", Entry{Format: "mermaid", Chart: "1"})
	c.Put("b", Entry{Format: "mermaid", Chart: "2"})
	c.Put("c", Entry{Format: "mermaid", Chart: "3"})

	c.Delete("b")
	c.Delete("missing")
	assert.Equal(t, 2, c.Len())
	_, found := c.Get("b")
	assert.False(t, found)

	keys := func() []string {
		var out []string
		for _, e := range c.Entries() {
			out = append(out, e.Key)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a"}, keys())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Entries())
	assert.Equal(t, int64(0), c.Stats().CurrentBytes)
}

func TestChartCache_Stats(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, Stats{}, c.Stats())

	c.Put("a", Entry{Format: "mermaid", Chart: "chart"})
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, 1, s.Length)
	assert.Equal(t, int64(3), s.HitCount)
	assert.Equal(t, int64(1), s.MissCount)
	assert.InDelta(t, 0.75, s.HitRate, 1e-9)
}

func TestChartCache_SaveLoad(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	c.Put("key1", Entry{File: "one.c", Format: "mermaid", Chart: "chart1"})
	c.Put("key2", Entry{File: "two.c", Format: "dot", Chart: "chart2"})
	c.Put("key3", Entry{File: "three.c", Format: "mermaid", Chart: "chart3"})
	c.Get("key1")

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	c2 := New(Options{MaxEntries: 10})
	require.NoError(t, c2.Load(&buf))
	assert.Equal(t, 3, c2.Len())

	var order []string
	for _, e := range c2.Entries() {
		order = append(order, e.Key)
	}
	assert.Equal(t, []string{"key1", "key3", "key2"}, order, "recency survives a round trip")

	e, found := c2.Get("key2")
	require.True(t, found)
	assert.Equal(t, "two.c", e.File)
	assert.Equal(t, "chart2", e.Chart)
}

func TestChartCache_LoadAppliesLimits(t *testing.T) {
	c := New(Options{})
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Put(k, Entry{Format: "mermaid", Chart: k})
	}

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	small := New(Options{MaxEntries: 2})
	require.NoError(t, small.Load(&buf))
	assert.Equal(t, 2, small.Len())
	_, found := small.Get("d")
	assert.True(t, found)
	_, found = small.Get("a")
	assert.False(t, found)
}

func TestChartCache_LoadGarbage(t *testing.T) {
	c := New(Options{})
	err := c.Load(bytes.NewReader([]byte{0xc1}))
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "charts.msgpack")

	c := New(Options{MaxEntries: 10})
	c.Put("k", Entry{File: "main.c", Format: "mermaid", Chart: "flowchart TB", Functions: []string{"main", "helper"}})
	require.NoError(t, PersistToFile(c, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	c2 := New(Options{MaxEntries: 10})
	require.NoError(t, LoadFromFile(c2, path))
	e, found := c2.Get("k")
	require.True(t, found)
	assert.Equal(t, "flowchart TB", e.Chart)
	assert.Equal(t, []string{"main", "helper"}, e.Functions)

	missing := New(Options{})
	require.NoError(t, LoadFromFile(missing, filepath.Join(dir, "absent.msgpack")))
	assert.Equal(t, 0, missing.Len())
}

func TestStore(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, 8)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
	assert.Equal(t, 0, s.Len())

	key := Key([]byte("int main() {}"), "mermaid")
	s.Put(key, Entry{File: "main.c", Format: "mermaid", Chart: "flowchart TB"})
	require.NoError(t, s.Save())

	reopened, err := Open(dir, 8)
	require.NoError(t, err)
	chart, ok := reopened.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "flowchart TB", chart)

	_, ok = reopened.Lookup("other")
	assert.False(t, ok)

	_, err = Open("", 8)
	assert.Error(t, err)
}
