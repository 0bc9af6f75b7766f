package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/trimline/internal/editor"
	"github.com/kikiluvv/trimline/internal/export"
	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/playback"
)

type contextKey string

const configKey contextKey = "config"

// EnvConfigPath names a config file that takes precedence over discovery.
const EnvConfigPath = "TRIMLINE_CONFIG"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir string `yaml:"temp_dir"`
	DataDir string `yaml:"data_dir"`

	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Editor  EditorConfig  `yaml:"editor"`
	Export  ExportConfig  `yaml:"export"`
	Suggest SuggestConfig `yaml:"suggest"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
}

// EditorConfig times are in seconds unless typed as a duration.
type EditorConfig struct {
	MinInterval     float64       `yaml:"min_interval"`
	SnapOffset      float64       `yaml:"snap_offset"`
	DefaultFraction float64       `yaml:"default_fraction"`
	MinDefault      float64       `yaml:"min_default"`
	MinGap          float64       `yaml:"min_gap"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	PreviewWidth    int           `yaml:"preview_width"`
}

type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
}

type SuggestConfig struct {
	SilenceNoiseDB     float64 `yaml:"silence_noise_db"`
	SilenceMinDuration float64 `yaml:"silence_min_duration"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the editor or encoder cannot work with.
func (c *Config) Validate() error {
	var errs []error
	e := c.Editor
	if e.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("editor.min_interval must not be negative"))
	}
	if e.SnapOffset < 0 {
		errs = append(errs, fmt.Errorf("editor.snap_offset must not be negative"))
	}
	if e.DefaultFraction < 0 || e.DefaultFraction > 1 {
		errs = append(errs, fmt.Errorf("editor.default_fraction must be within [0,1]"))
	}
	if e.MinDefault < 0 || e.MinGap < 0 {
		errs = append(errs, fmt.Errorf("editor.min_default and editor.min_gap must not be negative"))
	}
	if e.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("editor.tick_interval must not be negative"))
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		errs = append(errs, fmt.Errorf("ffmpeg.crf must be within [0,51]"))
	}
	if c.FFmpeg.Threads < 0 {
		errs = append(errs, fmt.Errorf("ffmpeg.threads must not be negative"))
	}
	if _, err := export.NormalizeFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	}
	return errors.Join(errs...)
}

// EditorOptions maps the editor section onto controller tuning. Zero
// values fall back to the controller defaults.
func (c *Config) EditorOptions() editor.Options {
	return editor.Options{
		MinLength:       c.Editor.MinInterval,
		SnapOffset:      c.Editor.SnapOffset,
		DefaultFraction: c.Editor.DefaultFraction,
		MinDefault:      c.Editor.MinDefault,
		MinGap:          c.Editor.MinGap,
	}
}

// FFmpegOptions locates the ffmpeg binaries.
func (c *Config) FFmpegOptions() ffmpeg.Options {
	return ffmpeg.Options{
		FFmpegPath:  c.FFmpeg.BinaryPath,
		FFprobePath: c.FFmpeg.ProbePath,
		Threads:     c.FFmpeg.Threads,
	}
}

// EncodeOptions returns the export encoder settings.
func (c *Config) EncodeOptions() ffmpeg.EncodeOptions {
	return ffmpeg.EncodeOptions{
		VideoCodec: c.FFmpeg.VideoCodec,
		AudioCodec: c.FFmpeg.AudioCodec,
		CRF:        c.FFmpeg.CRF,
		Preset:     c.FFmpeg.Preset,
	}.WithDefaults()
}

// SettingsPath is where the settings database lives.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.db")
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		TempDir: os.TempDir(),
		DataDir: filepath.Join(homeDir(), ".trimline"),
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     ffmpeg.DefaultPreset,
			CRF:        ffmpeg.DefaultCRF,
			VideoCodec: ffmpeg.DefaultVideoCodec,
			AudioCodec: ffmpeg.DefaultAudioCodec,
		},
		Editor: EditorConfig{
			MinInterval:     0.1,
			SnapOffset:      0.05,
			DefaultFraction: 0.2,
			MinDefault:      1,
			MinGap:          1,
			TickInterval:    playback.DefaultTickInterval,
			PreviewWidth:    640,
		},
		Export: ExportConfig{
			Format: "mp4",
		},
		Suggest: SuggestConfig{
			SilenceNoiseDB:     -35,
			SilenceMinDuration: 1,
		},
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func findConfigFile() string {
	candidates := []string{
		"./trimline.yaml",
		"./config.yaml",
		"./config.yml",
		filepath.Join(homeDir(), ".trimline", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
