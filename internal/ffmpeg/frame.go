package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kikiluvv/trimline/pkg/util"
)

// ExtractFrame writes a single JPEG frame at the given time in seconds.
// A positive width scales the frame, keeping the aspect ratio.
func (e *Executor) ExtractFrame(ctx context.Context, input, output string, at float64, width int) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if math.IsNaN(at) || at < 0 {
		at = 0
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Float64("at", at).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatDuration(time.Duration(at * float64(time.Second))),
		"-i", input,
		"-frames:v", "1",
	}
	if vf := NewFilterBuilder().Scale(width, 0).Build(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-q:v", "2", output)

	return e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame extraction")
		},
	})
}
