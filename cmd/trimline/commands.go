package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/trimline/internal/config"
	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/settings"
	"github.com/kikiluvv/trimline/internal/suggest"
	"github.com/kikiluvv/trimline/pkg/util"
)

var suggestSilence bool

var suggestCmd = &cobra.Command{
	Use:   "suggest [analysis.json | video]",
	Short: "List proposed cuts from an analysis file or detected silence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		var found []suggest.Suggestion
		if suggestSilence {
			exec, err := ffmpeg.New(log.Logger, cfg.FFmpegOptions())
			if err != nil {
				return err
			}
			found, err = detectSilence(cmd.Context(), exec, cfg, args[0])
			if err != nil {
				return err
			}
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			found, err = suggest.ParseAnalysis(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "START\tEND\tSOURCE\tREASON")
		for _, s := range found {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", util.FormatSeconds(s.Start), util.FormatSeconds(s.End), s.Source, s.Reason)
		}
		return tw.Flush()
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Remembered settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: withSettings(func(cmd *cobra.Command, store *settings.Store, args []string) error {
		v, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}),
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: withSettings(func(cmd *cobra.Command, store *settings.Store, args []string) error {
		return store.Set(cmd.Context(), args[0], args[1])
	}),
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	RunE: withSettings(func(cmd *cobra.Command, store *settings.Store, args []string) error {
		return store.Delete(cmd.Context(), args[0])
	}),
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List settings and recent files",
	Args:  cobra.NoArgs,
	RunE: withSettings(func(cmd *cobra.Command, store *settings.Store, args []string) error {
		all, err := store.All(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range settings.Keys(all) {
			fmt.Fprintf(out, "%s = %s\n", k, settings.Mask(k, all[k]))
		}

		recent, err := store.Recent(cmd.Context())
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			fmt.Fprintln(out, "\nrecent:")
			for _, p := range recent {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	}),
}

func withSettings(fn func(*cobra.Command, *settings.Store, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		store, err := settings.Open(cfg.SettingsPath(), log.Logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, store, args)
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "trimline.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestSilence, "silence", false, "treat the argument as a video and propose its silences")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsUnsetCmd, settingsListCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
