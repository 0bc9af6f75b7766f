// Package export renders the kept spans of an edit session into a single
// output file.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimline/internal/logging"
	"github.com/kikiluvv/trimline/internal/notify"
	"github.com/kikiluvv/trimline/internal/timeline"
	"github.com/kikiluvv/trimline/pkg/util"
)

var (
	ErrBusy            = errors.New("an export is already in progress")
	ErrNothingToExport = errors.New("nothing left to export")
	ErrInvalidFormat   = errors.New("invalid output format")
)

// formats are bare container extensions.
var formatPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)

// DefaultFormat is the container used when a job names none.
const DefaultFormat = "mp4"

// maxNameLen caps the sanitised output name in runes.
const maxNameLen = 120

// TranscodeError reports a failed engine run. The job produced no output.
type TranscodeError struct {
	Err error
}

func (e *TranscodeError) Error() string { return "transcode failed: " + e.Err.Error() }

func (e *TranscodeError) Unwrap() error { return e.Err }

// TranscodeRequest is one engine invocation.
type TranscodeRequest struct {
	Input    string
	Output   string
	Spans    []timeline.Span
	HasAudio bool
	// Duration is the expected output length in seconds.
	Duration float64
	Progress func(percent float64)
}

// Engine turns an ordered list of kept spans into an output file.
type Engine interface {
	Transcode(ctx context.Context, req TranscodeRequest) error
}

// Job describes one export.
type Job struct {
	Source   string
	Kept     []timeline.Span
	HasAudio bool
	// Format is the output container extension, "mp4" when empty.
	Format string
	// OutputDir defaults to the source's directory.
	OutputDir string
	// Name is the output file name without extension. Defaults to the
	// source name with a "_trimmed" suffix.
	Name     string
	Progress func(percent float64)
}

// Result describes a finished export.
type Result struct {
	Path     string
	Duration float64
	Size     int64
	Spans    []timeline.Span
}

// Options configure a Pipeline.
type Options struct {
	// TempDir holds per-job workspaces. Empty means os.TempDir.
	TempDir  string
	Notifier notify.Notifier
}

// Pipeline runs at most one export at a time.
type Pipeline struct {
	logger   zerolog.Logger
	engine   Engine
	notifier notify.Notifier
	tempDir  string
	busy     atomic.Bool
}

// New creates a pipeline around engine.
func New(logger zerolog.Logger, engine Engine, opts Options) *Pipeline {
	return &Pipeline{
		logger:   logging.WithComponent(logger, "export"),
		engine:   engine,
		notifier: notify.OrDiscard(opts.Notifier),
		tempDir:  opts.TempDir,
	}
}

// Busy reports whether a job is in flight.
func (p *Pipeline) Busy() bool { return p.busy.Load() }

// Run executes job synchronously. A second call while a job is in flight
// fails with ErrBusy and leaves the running job alone.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if !p.acquire() {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)
	return p.run(ctx, job)
}

// Start runs job on a background goroutine and reports through done,
// which may be nil. ErrBusy is returned synchronously.
func (p *Pipeline) Start(ctx context.Context, job Job, done func(*Result, error)) error {
	if !p.acquire() {
		return ErrBusy
	}
	go func() {
		defer p.busy.Store(false)
		res, err := p.run(ctx, job)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

func (p *Pipeline) acquire() bool {
	if p.busy.CompareAndSwap(false, true) {
		return true
	}
	p.logger.Warn().Msg("export rejected, another job is running")
	p.notifier.Notify("Already processing an export, please wait.", notify.Warning)
	return false
}

func (p *Pipeline) run(ctx context.Context, job Job) (*Result, error) {
	res, err := p.export(ctx, job)
	if err != nil {
		p.logger.Error().Err(err).Str("source", job.Source).Msg("export failed")
		switch {
		case errors.Is(err, ErrNothingToExport):
			p.notifier.Notify("Nothing left to export: the whole video is marked for deletion.", notify.Error)
		default:
			p.notifier.Notify("Export failed: "+err.Error(), notify.Error)
		}
		return nil, err
	}

	p.logger.Info().
		Str("path", res.Path).
		Float64("duration", res.Duration).
		Int64("size", res.Size).
		Msg("export finished")
	p.notifier.Notify("Export finished: "+res.Path, notify.Success)
	return res, nil
}

func (p *Pipeline) export(ctx context.Context, job Job) (*Result, error) {
	spans := normalize(job.Kept)
	if len(spans) == 0 {
		return nil, ErrNothingToExport
	}
	if job.Source == "" {
		return nil, fmt.Errorf("source file is required")
	}

	format, err := NormalizeFormat(job.Format)
	if err != nil {
		return nil, err
	}
	outDir := job.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(job.Source)
	}
	if err := util.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("prepare output dir: %w", err)
	}

	ws, err := newWorkspace(p.tempDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			p.logger.Warn().Err(err).Str("dir", ws.dir).Msg("failed to remove workspace")
		}
	}()

	input, err := ws.Stage(job.Source)
	if err != nil {
		return nil, err
	}
	output := ws.Path("output." + format)
	total := timeline.TotalLength(spans)

	p.logger.Info().
		Str("source", job.Source).
		Int("spans", len(spans)).
		Float64("duration", total).
		Msg("export started")

	err = p.engine.Transcode(ctx, TranscodeRequest{
		Input:    input,
		Output:   output,
		Spans:    spans,
		HasAudio: job.HasAudio,
		Duration: total,
		Progress: p.progress(job.Progress),
	})
	if err != nil {
		return nil, &TranscodeError{Err: err}
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return nil, &TranscodeError{Err: errors.New("engine produced no output")}
	}

	dest := util.UniquePath(outDir, outputName(job), "."+format)
	if err := util.MoveFile(output, dest); err != nil {
		return nil, fmt.Errorf("publish output: %w", err)
	}

	return &Result{
		Path:     dest,
		Duration: total,
		Size:     info.Size(),
		Spans:    spans,
	}, nil
}

// progress logs every 10% step and forwards all updates to fn.
func (p *Pipeline) progress(fn func(float64)) func(float64) {
	last := -1
	return func(pct float64) {
		if step := int(pct) / 10; step > last {
			last = step
			p.logger.Info().Float64("percent", pct).Msg("export progress")
		}
		if fn != nil {
			fn(pct)
		}
	}
}

// normalize drops empty spans and orders the rest by start.
func normalize(spans []timeline.Span) []timeline.Span {
	out := make([]timeline.Span, 0, len(spans))
	for _, sp := range spans {
		if sp.End > sp.Start {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// NormalizeFormat lower-cases a container extension and drops a leading
// dot. Empty means DefaultFormat; anything but a bare extension is
// rejected with ErrInvalidFormat.
func NormalizeFormat(format string) (string, error) {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if f == "" {
		return DefaultFormat, nil
	}
	if !formatPattern.MatchString(f) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	return f, nil
}

func outputName(job Job) string {
	name := job.Name
	if strings.TrimSpace(name) == "" {
		name = util.StemName(job.Source) + "_trimmed"
	}
	name = SanitizeName(name, maxNameLen)
	if name == "" || strings.Trim(name, ".") == "" {
		name = "export"
	}
	return name
}
