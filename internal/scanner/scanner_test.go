package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, dir string) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(dir, "cache.msgpack"))
	require.NoError(t, err)
	return s
}

func TestScan_FirstRunMarksEverythingOutOfDate(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.c")
	objPath := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){}"), 0o644))

	g := graph.New()
	_, err := g.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)

	s := newCache(t, dir)
	require.NoError(t, New(g, s).Scan())

	assert.Equal(t, graph.OutOfDate, g.GetNode(srcPath).State())
	assert.Equal(t, graph.OutOfDate, g.GetNode(objPath).Producer().State())
}

func TestScan_UnchangedSourceAndFreshOutputIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.c")
	objPath := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){}"), 0o644))
	require.NoError(t, os.WriteFile(objPath, []byte("compiled"), 0o644))

	g := graph.New()
	_, err := g.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)

	s := newCache(t, dir)
	require.NoError(t, New(g, s).Scan())
	require.NoError(t, s.Flush())

	// Second scan with identical file contents: everything should now read
	// as up to date, since the cache recorded both hashes on the first pass.
	g2 := graph.New()
	_, err = g2.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)

	s2, err := cache.Open(filepath.Join(dir, "cache.msgpack"))
	require.NoError(t, err)
	require.NoError(t, New(g2, s2).Scan())

	assert.Equal(t, graph.UpToDate, g2.GetNode(srcPath).State())
	assert.Equal(t, graph.UpToDate, g2.GetNode(objPath).Producer().State())
}

func TestScan_ChangedSourceMarksRuleDirty(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.c")
	objPath := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(srcPath, []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(objPath, []byte("compiled"), 0o644))

	cachePath := filepath.Join(dir, "cache.msgpack")
	g := graph.New()
	_, err := g.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)
	s, err := cache.Open(cachePath)
	require.NoError(t, err)
	require.NoError(t, New(g, s).Scan())
	require.NoError(t, s.Flush())

	require.NoError(t, os.WriteFile(srcPath, []byte("v2 - changed"), 0o644))

	g2 := graph.New()
	_, err = g2.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)
	s2, err := cache.Open(cachePath)
	require.NoError(t, err)
	require.NoError(t, New(g2, s2).Scan())

	assert.Equal(t, graph.OutOfDate, g2.GetNode(srcPath).State())
	assert.Equal(t, graph.OutOfDate, g2.GetNode(objPath).Producer().State())
}

func TestScan_MissingOutputMarksRuleDirty(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.c")
	objPath := filepath.Join(dir, "a.o") // never created
	require.NoError(t, os.WriteFile(srcPath, []byte("v1"), 0o644))

	g := graph.New()
	_, err := g.AddRule([]string{srcPath}, []string{objPath}, "touch "+objPath, "")
	require.NoError(t, err)

	s := newCache(t, dir)
	require.NoError(t, New(g, s).Scan())

	assert.Equal(t, graph.OutOfDate, g.GetNode(objPath).Producer().State())
}

func TestScan_DepfileAttachesImplicitInputs(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.c")
	hdrPath := filepath.Join(dir, "a.h")
	objPath := filepath.Join(dir, "a.o")
	depfilePath := filepath.Join(dir, "a.d")

	require.NoError(t, os.WriteFile(srcPath, []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(hdrPath, []byte("header"), 0o644))
	require.NoError(t, os.WriteFile(depfilePath, []byte(hdrPath+"\n"), 0o644))

	g := graph.New()
	rule, err := g.AddRule([]string{srcPath}, []string{objPath}, "cc -c "+srcPath, depfilePath)
	require.NoError(t, err)

	s := newCache(t, dir)
	require.NoError(t, New(g, s).Scan())

	var implicitPaths []string
	for _, n := range rule.AllInputs() {
		implicitPaths = append(implicitPaths, n.Path())
	}
	assert.Contains(t, implicitPaths, hdrPath)
}
