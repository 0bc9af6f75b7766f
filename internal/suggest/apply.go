package suggest

import "github.com/kikiluvv/trimline/internal/timeline"

// Placer inserts an explicit deletion range.
type Placer interface {
	Place(start, end float64) (timeline.Interval, error)
}

// Outcome is the result of placing one suggestion.
type Outcome struct {
	Suggestion Suggestion
	Interval   timeline.Interval
	Err        error
}

// Report splits suggestions by whether they were placed.
type Report struct {
	Accepted []Outcome
	Rejected []Outcome
}

// Apply places each suggestion in order. A suggestion that overlaps an
// existing cut or falls outside the video is rejected and the rest still
// go through.
func Apply(p Placer, suggestions []Suggestion) Report {
	var r Report
	for _, s := range suggestions {
		iv, err := p.Place(s.Start, s.End)
		if err != nil {
			r.Rejected = append(r.Rejected, Outcome{Suggestion: s, Err: err})
			continue
		}
		r.Accepted = append(r.Accepted, Outcome{Suggestion: s, Interval: iv})
	}
	return r
}
