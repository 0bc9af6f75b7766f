package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/trimline/internal/config"
	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/gui"
	"github.com/kikiluvv/trimline/internal/logging"
	"github.com/kikiluvv/trimline/internal/settings"
	"github.com/kikiluvv/trimline/pkg/util"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "trimline",
	Short:        "trimline - non-destructive video trimmer",
	Long:         "Mark the parts of a video to delete, preview the result gaplessly and export what is left.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonLogs})

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./trimline.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON lines")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(configCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit [video]",
	Short: "Open the editor window",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpegOptions())
		if err != nil {
			return err
		}

		store, err := settings.Open(cfg.SettingsPath(), log.Logger)
		if err != nil {
			// the editor works without remembered settings
			log.Warn().Err(err).Msg("settings unavailable")
		} else {
			defer store.Close()
		}

		var initial string
		if len(args) == 1 {
			initial = args[0]
			if !util.FileExists(initial) {
				return fmt.Errorf("video not found: %s", initial)
			}
		}

		return gui.Run(gui.Deps{
			Logger:   log.Logger,
			Config:   cfg,
			FFmpeg:   exec,
			Settings: store,
		}, initial)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Print video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpegOptions())
		if err != nil {
			return err
		}
		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:     %s\n", info.FilePath)
		fmt.Fprintf(out, "duration: %s (%.3fs)\n", util.FormatSeconds(info.Seconds()), info.Seconds())
		fmt.Fprintf(out, "video:    %s %dx%d @ %.2f fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
		if info.HasAudio {
			fmt.Fprintf(out, "audio:    %s\n", info.AudioCodec)
		} else {
			fmt.Fprintln(out, "audio:    none")
		}
		return nil
	},
}
