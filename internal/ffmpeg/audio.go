package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SilenceSegment represents a period of silence in audio
type SilenceSegment struct {
	Start    float64
	End      float64
	Duration float64
}

// DetectSilence finds silence segments in audio/video file
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseThreshold float64, minDuration float64) ([]SilenceSegment, error) {
	e.logger.Info().
		Str("input", input).
		Float64("noise_threshold", noiseThreshold).
		Float64("min_duration", minDuration).
		Msg("detecting silence")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vn",
			"-af", fmt.Sprintf("silencedetect=noise=%.6fdB:d=%.6f", noiseThreshold, minDuration),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !benignNullOutput(err) {
			return nil, fmt.Errorf("silence detection failed: %w", err)
		}
	}

	if output == "" {
		return nil, fmt.Errorf("silence detection produced no output")
	}

	segments := parseSilenceOutput(output)
	e.logger.Info().Int("segments", len(segments)).Msg("silence detection complete")
	return segments, nil
}

// parseSilenceOutput extracts silence segments from ffmpeg output. A
// silence still open at end of stream has no silence_end line and is
// dropped.
func parseSilenceOutput(output string) []SilenceSegment {
	var segments []SilenceSegment
	var currentStart float64
	open := false

	for _, line := range strings.Split(output, "\n") {
		if _, after, ok := strings.Cut(line, "silence_start:"); ok {
			fields := strings.Fields(after)
			if len(fields) == 0 {
				continue
			}
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
				currentStart, open = v, true
			}
			continue
		}

		_, after, ok := strings.Cut(line, "silence_end:")
		if !ok || !open {
			continue
		}
		fields := strings.Fields(after)
		if len(fields) == 0 {
			continue
		}
		end, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}

		duration := end - currentStart
		if _, d, ok := strings.Cut(line, "silence_duration:"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil {
				duration = v
			}
		}

		segments = append(segments, SilenceSegment{
			Start:    currentStart,
			End:      end,
			Duration: duration,
		})
		open = false
	}

	return segments
}
