package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kikiluvv/trimline/internal/timeline"
)

// TrimConcat renders the kept spans of a single input into one output,
// re-encoding through a trim/concat filter graph.
func (e *Executor) TrimConcat(ctx context.Context, opts TrimConcatOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	args, err := trimConcatArgs(opts)
	if err != nil {
		return err
	}

	total := timeline.TotalLength(opts.Spans)
	e.logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Int("spans", len(opts.Spans)).
		Bool("audio", opts.HasAudio).
		Float64("duration", total).
		Msg("trimming and concatenating")

	runOpts := RunOptions{
		Args:            args,
		Duration:        time.Duration(total * float64(time.Second)),
		ProgressHandler: opts.Progress,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("trim concat")
		},
	}

	return e.Run(ctx, runOpts)
}

func trimConcatArgs(opts TrimConcatOptions) ([]string, error) {
	graph, err := TrimConcatGraph(opts.Spans, opts.HasAudio)
	if err != nil {
		return nil, err
	}
	enc := opts.Encode.WithDefaults()

	args := []string{
		"-i", opts.Input,
		"-filter_complex", graph,
		"-map", VideoOut,
	}
	if opts.HasAudio {
		args = append(args, "-map", AudioOut)
	}

	args = append(args,
		"-c:v", enc.VideoCodec,
		"-crf", strconv.Itoa(enc.CRF),
		"-preset", enc.Preset,
	)
	if opts.HasAudio {
		args = append(args, "-c:a", enc.AudioCodec)
	}

	args = append(args, "-movflags", "+faststart", opts.Output)
	return args, nil
}
