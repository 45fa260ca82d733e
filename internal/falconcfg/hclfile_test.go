package falconcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFile_MissingFileIsANoop(t *testing.T) {
	cfg := Defaults()
	err := ApplyFile(&cfg, filepath.Join(t.TempDir(), "missing.hcl"), Defaults())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestApplyFile_LayersValuesUnderFlagDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "falcon.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
api_port    = 5000
log_level   = "debug"
`), 0o644))

	cfg := Defaults()
	require.NoError(t, ApplyFile(&cfg, path, Defaults()))

	assert.Equal(t, 5000, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyFile_DoesNotOverrideAnExplicitFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "falcon.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`api_port = 5000`), 0o644))

	cfg := Defaults()
	cfg.APIPort = 9999 // as if set explicitly on the command line

	require.NoError(t, ApplyFile(&cfg, path, Defaults()))
	assert.Equal(t, 9999, cfg.APIPort)
}
