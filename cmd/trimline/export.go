package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/trimline/internal/config"
	"github.com/kikiluvv/trimline/internal/editor"
	"github.com/kikiluvv/trimline/internal/export"
	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/notify"
	"github.com/kikiluvv/trimline/internal/playback"
	"github.com/kikiluvv/trimline/internal/settings"
	"github.com/kikiluvv/trimline/internal/suggest"
	"github.com/kikiluvv/trimline/pkg/util"
)

var exportFlags struct {
	cuts        []string
	suggestions string
	silence     bool
	outputDir   string
	name        string
	format      string
}

var exportCmd = &cobra.Command{
	Use:   "export [video]",
	Short: "Delete ranges from a video and export the rest",
	Example: `  trimline export talk.mp4 --cut 0-4.5 --cut 1:02-1:10
  trimline export talk.mp4 --suggestions analysis.json -o out/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()
		source := args[0]

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpegOptions())
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(ctx, source)
		if err != nil {
			return err
		}

		clock := playback.New(log.Logger, info.Seconds(), cfg.Editor.TickInterval)
		defer clock.Close()

		sink := notify.NewLog(log.Logger)
		ctrl := editor.NewController(log.Logger, clock, sink, cfg.EditorOptions())
		if err := ctrl.Load(info.Seconds()); err != nil {
			return err
		}

		for _, c := range exportFlags.cuts {
			start, end, err := suggest.ParseRange(c)
			if err != nil {
				return fmt.Errorf("--cut %q: %w", c, err)
			}
			if _, err := ctrl.Place(start, end); err != nil {
				return fmt.Errorf("--cut %q: %w", c, err)
			}
		}

		var proposals []suggest.Suggestion
		if exportFlags.suggestions != "" {
			data, err := os.ReadFile(exportFlags.suggestions)
			if err != nil {
				return err
			}
			found, err := suggest.ParseAnalysis(data)
			if err != nil {
				return fmt.Errorf("%s: %w", exportFlags.suggestions, err)
			}
			proposals = append(proposals, found...)
		}
		if exportFlags.silence {
			found, err := detectSilence(ctx, exec, cfg, source)
			if err != nil {
				return err
			}
			proposals = append(proposals, found...)
		}
		logReport(suggest.Apply(ctrl, proposals))

		kept, err := ctrl.Kept()
		if err != nil {
			return err
		}

		outDir := exportFlags.outputDir
		if outDir == "" {
			outDir = cfg.Export.OutputDir
		}
		format := exportFlags.format
		if format == "" {
			format = cfg.Export.Format
		}

		pipe := export.New(log.Logger, export.NewFFmpegEngine(exec, cfg.EncodeOptions()), export.Options{
			TempDir:  cfg.TempDir,
			Notifier: sink,
		})
		res, err := pipe.Run(ctx, export.Job{
			Source:    source,
			Kept:      kept,
			HasAudio:  info.HasAudio,
			Format:    format,
			OutputDir: outDir,
			Name:      exportFlags.name,
		})
		if err != nil {
			return err
		}

		rememberOutput(ctx, cfg, res.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.Path, util.FormatSeconds(res.Duration))
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringArrayVar(&exportFlags.cuts, "cut", nil, "range to delete, e.g. 1:02-1:10 (repeatable)")
	f.StringVar(&exportFlags.suggestions, "suggestions", "", "scene analysis JSON whose Trim/Cut scenes are deleted")
	f.BoolVar(&exportFlags.silence, "silence", false, "delete detected silences")
	f.StringVarP(&exportFlags.outputDir, "output", "o", "", "output directory (default: next to the source)")
	f.StringVar(&exportFlags.name, "name", "", "output file name without extension")
	f.StringVar(&exportFlags.format, "format", "", "output container (default from config)")
}

func detectSilence(ctx context.Context, exec *ffmpeg.Executor, cfg *config.Config, source string) ([]suggest.Suggestion, error) {
	segs, err := exec.DetectSilence(ctx, source, cfg.Suggest.SilenceNoiseDB, cfg.Suggest.SilenceMinDuration)
	if err != nil {
		return nil, fmt.Errorf("detect silence: %w", err)
	}
	return suggest.FromSilence(segs, cfg.Suggest.SilenceMinDuration), nil
}

func logReport(r suggest.Report) {
	for _, o := range r.Accepted {
		log.Info().Str("suggestion", o.Suggestion.String()).Str("reason", o.Suggestion.Reason).Msg("cut placed")
	}
	for _, o := range r.Rejected {
		ev := log.Warn()
		if errors.Is(o.Err, editor.ErrNoSpace) {
			ev = log.Info()
		}
		ev.Err(o.Err).Str("suggestion", o.Suggestion.String()).Msg("suggestion skipped")
	}
}

// rememberOutput records the last export directory; failures only log.
func rememberOutput(ctx context.Context, cfg *config.Config, path string) {
	store, err := settings.Open(cfg.SettingsPath(), log.Logger)
	if err != nil {
		log.Debug().Err(err).Msg("settings unavailable")
		return
	}
	defer store.Close()
	if err := store.Set(ctx, settings.KeyLastOutputDir, filepath.Dir(path)); err != nil {
		log.Debug().Err(err).Msg("failed to save output dir")
	}
}
