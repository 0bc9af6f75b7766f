package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/trimline/internal/export"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Editor.SnapOffset)
	assert.Equal(t, 50*time.Millisecond, cfg.Editor.TickInterval)
	assert.Equal(t, "mp4", cfg.Export.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trimline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
temp_dir: /scratch
ffmpeg:
  threads: 2
  crf: 18
editor:
  snap_offset: 0.1
  tick_interval: 20ms
export:
  output_dir: /exports
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/scratch", cfg.TempDir)
	assert.Equal(t, 2, cfg.FFmpeg.Threads)
	assert.Equal(t, 20*time.Millisecond, cfg.Editor.TickInterval)
	assert.Equal(t, "/exports", cfg.Export.OutputDir)
	// untouched keys keep their defaults
	assert.Equal(t, 0.2, cfg.Editor.DefaultFraction)
	assert.Equal(t, "libx264", cfg.FFmpeg.VideoCodec)

	opts := cfg.EditorOptions()
	assert.Equal(t, 0.1, opts.SnapOffset)
	assert.Equal(t, 1.0, opts.MinGap)

	enc := cfg.EncodeOptions()
	assert.Equal(t, 18, enc.CRF)
	assert.Equal(t, "medium", enc.Preset)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  default_fraction: 3\nffmpeg:\n  crf: 80\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_fraction")
	assert.Contains(t, err.Error(), "crf")
}

func TestValidateRejectsFormatWithPath(t *testing.T) {
	cfg := Default()
	for _, bad := range []string{"mp4/../../escaped", "../mp4", "m p4", `mp4\x`} {
		cfg.Export.Format = bad
		err := cfg.Validate()
		require.Error(t, err, bad)
		assert.ErrorIs(t, err, export.ErrInvalidFormat, bad)
	}

	cfg.Export.Format = ".MKV"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  format: mov\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mov", cfg.Export.Format)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Editor.TickInterval = 75 * time.Millisecond
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.Export.Format = "mkv"
	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, "mp4", FromContext(context.Background()).Export.Format)
}
