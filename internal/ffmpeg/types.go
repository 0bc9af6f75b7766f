package ffmpeg

import (
	"time"

	"github.com/kikiluvv/trimline/internal/timeline"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Seconds returns the duration as used by the editor.
func (v *VideoInfo) Seconds() float64 {
	return v.Duration.Seconds()
}

// Progress represents one ffmpeg -progress block
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	OutTime    time.Duration
	Speed      string
	Percentage float64
	Done       bool
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per -progress block as the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args []string
	// Duration of the expected output, used to compute Percentage.
	Duration        time.Duration
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// EncodeOptions selects codecs and quality for re-encoding.
type EncodeOptions struct {
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
}

// WithDefaults fills unset fields with the package defaults.
func (o EncodeOptions) WithDefaults() EncodeOptions {
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.AudioCodec == "" {
		o.AudioCodec = DefaultAudioCodec
	}
	if o.CRF <= 0 {
		o.CRF = DefaultCRF
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	return o
}

// TrimConcatOptions configures a trim-and-concatenate render.
type TrimConcatOptions struct {
	Input    string
	Output   string
	Spans    []timeline.Span
	HasAudio bool
	Encode   EncodeOptions
	Progress ProgressFunc
}
