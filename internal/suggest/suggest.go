// Package suggest turns external analyses into candidate cuts.
package suggest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/timeline"
	"github.com/kikiluvv/trimline/pkg/util"
)

// Sources of a suggestion.
const (
	SourceAnalysis = "analysis"
	SourceSilence  = "silence"
)

// ErrNoAnalysis is returned when the input holds no JSON object.
var ErrNoAnalysis = errors.New("no analysis object found")

// Suggestion is a proposed deletion range in seconds. Reason is free text
// from the analysis and only ever displayed.
type Suggestion struct {
	Start  float64
	End    float64
	Reason string
	Source string
}

func (s Suggestion) String() string {
	return fmt.Sprintf("%s–%s (%s)", util.FormatSeconds(s.Start), util.FormatSeconds(s.End), s.Source)
}

type scene struct {
	Timestamp      string `json:"timestamp"`
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason"`
}

type analysis struct {
	Results *struct {
		Scenes []scene `json:"scenes"`
	} `json:"results"`
	Scenes []scene `json:"scenes"`
}

// ParseAnalysis reads a scene analysis, either the bare object or model
// output with the object wrapped in a ```json fence or surrounding prose.
// Scenes recommended for "Trim" or "Cut" become suggestions; scenes with
// an unreadable timestamp are skipped.
func ParseAnalysis(data []byte) ([]Suggestion, error) {
	raw, err := extractObject(data)
	if err != nil {
		return nil, err
	}

	var a analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	scenes := a.Scenes
	if a.Results != nil && len(a.Results.Scenes) > 0 {
		scenes = a.Results.Scenes
	}

	var out []Suggestion
	for _, sc := range scenes {
		switch strings.TrimSpace(sc.Recommendation) {
		case "Trim", "Cut":
		default:
			continue
		}
		start, end, err := ParseRange(sc.Timestamp)
		if err != nil {
			continue
		}
		out = append(out, Suggestion{
			Start:  start,
			End:    end,
			Reason: strings.TrimSpace(sc.Recommendation + ": " + sc.Reason),
			Source: SourceAnalysis,
		})
	}
	return out, nil
}

func extractObject(data []byte) ([]byte, error) {
	text := bytes.TrimSpace(data)

	if i := bytes.Index(text, []byte("```")); i >= 0 {
		body := text[i+3:]
		// skip the language tag line
		if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if j := bytes.Index(body, []byte("```")); j >= 0 {
			body = body[:j]
		}
		text = bytes.TrimSpace(body)
	}

	start := bytes.IndexByte(text, '{')
	end := bytes.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrNoAnalysis
	}
	return text[start : end+1], nil
}

// ParseRange parses "m:ss-m:ss" (hyphen, en dash or em dash; any
// timestamp form ParseTimestamp accepts) into seconds.
func ParseRange(s string) (float64, float64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, isDash)
	if i <= 0 {
		return 0, 0, fmt.Errorf("invalid range %q", s)
	}
	_, width := utf8.DecodeRuneInString(s[i:])

	start, err := util.ParseTimestamp(s[:i])
	if err != nil {
		return 0, 0, err
	}
	end, err := util.ParseTimestamp(s[i+width:])
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: %q", timeline.ErrInvalidRange, s)
	}
	return start.Seconds(), end.Seconds(), nil
}

func isDash(r rune) bool {
	return r == '-' || r == '–' || r == '—'
}

// FromSilence proposes every silence at least minLen seconds long.
func FromSilence(segments []ffmpeg.SilenceSegment, minLen float64) []Suggestion {
	var out []Suggestion
	for _, seg := range segments {
		if seg.End-seg.Start < minLen || seg.End <= seg.Start {
			continue
		}
		out = append(out, Suggestion{
			Start:  seg.Start,
			End:    seg.End,
			Reason: fmt.Sprintf("silence %.1fs", seg.End-seg.Start),
			Source: SourceSilence,
		})
	}
	return out
}
