package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.msgpack"))
	require.NoError(t, err)

	assert.False(t, s.Retrieve("anything"))
	assert.Nil(t, s.PreviousHash("anything"))
}

func TestHash_IsStableForSameContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s, err := Open(filepath.Join(dir, "cache.msgpack"))
	require.NoError(t, err)

	h1, err := s.Hash(path)
	require.NoError(t, err)
	h2, err := s.Hash(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestStoreHashAndFlush_RoundTripsThroughDisk(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.msgpack")
	srcPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello"), 0o644))

	s, err := Open(cachePath)
	require.NoError(t, err)

	hash, err := s.Hash(srcPath)
	require.NoError(t, err)
	require.NoError(t, s.StoreHash(srcPath, hash))
	require.NoError(t, s.Flush())

	reopened, err := Open(cachePath)
	require.NoError(t, err)
	assert.Equal(t, hash, reopened.PreviousHash(srcPath))
	assert.True(t, reopened.Retrieve(srcPath))
}

func TestFlush_NoopWhenNotDirty(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.msgpack")

	s, err := Open(cachePath)
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	_, err = os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err), "flush with nothing dirty should not create a file")
}
