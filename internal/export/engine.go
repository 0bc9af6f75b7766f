package export

import (
	"context"

	"github.com/kikiluvv/trimline/internal/ffmpeg"
)

// FFmpegEngine renders through a local ffmpeg binary.
type FFmpegEngine struct {
	exec   *ffmpeg.Executor
	encode ffmpeg.EncodeOptions
}

// NewFFmpegEngine wraps an executor with fixed encode settings.
func NewFFmpegEngine(exec *ffmpeg.Executor, encode ffmpeg.EncodeOptions) *FFmpegEngine {
	return &FFmpegEngine{exec: exec, encode: encode}
}

// Transcode implements Engine.
func (f *FFmpegEngine) Transcode(ctx context.Context, req TranscodeRequest) error {
	opts := ffmpeg.TrimConcatOptions{
		Input:    req.Input,
		Output:   req.Output,
		Spans:    req.Spans,
		HasAudio: req.HasAudio,
		Encode:   f.encode,
	}
	if req.Progress != nil {
		opts.Progress = func(p *ffmpeg.Progress) { req.Progress(p.Percentage) }
	}
	return f.exec.TrimConcat(ctx, opts)
}
