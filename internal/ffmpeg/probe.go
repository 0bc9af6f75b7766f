package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/kikiluvv/trimline/pkg/util"
)

// ErrNoVideoStream is returned for inputs without a playable video stream.
var ErrNoVideoStream = errors.New("no video stream")

type probeStream struct {
	CodecType   string `json:"codec_type"`
	CodecName   string `json:"codec_name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RFrameRate  string `json:"r_frame_rate"`
	BitRate     string `json:"bit_rate"`
	Duration    string `json:"duration"`
	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

// ProbeVideo reads duration and stream layout with ffprobe. Cover art is
// not counted as video. Duration falls back to the video stream's when the
// container does not report one; it stays zero when neither does.
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}
	info, err := parseProbe(output)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}
	info.FilePath = filePath

	e.logger.Debug().
		Str("path", filePath).
		Dur("duration", info.Duration).
		Str("video", info.VideoCodec).
		Bool("audio", info.HasAudio).
		Msg("probed")
	return info, nil
}

func parseProbe(data []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse output: %w", err)
	}

	info := &VideoInfo{
		Duration: seconds(probe.Format.Duration),
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	var video *probeStream
	for i := range probe.Streams {
		st := &probe.Streams[i]
		switch st.CodecType {
		case "video":
			if video == nil && st.Disposition.AttachedPic == 0 {
				video = st
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = st.CodecName
				if br, err := strconv.ParseInt(st.BitRate, 10, 64); err == nil {
					info.AudioBitrate = br
				}
			}
		}
	}
	if video == nil {
		return nil, ErrNoVideoStream
	}

	info.Width = video.Width
	info.Height = video.Height
	info.VideoCodec = video.CodecName
	info.FPS = util.ParseFrameRate(video.RFrameRate)
	if info.Duration <= 0 {
		info.Duration = seconds(video.Duration)
	}
	return info, nil
}

func seconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
