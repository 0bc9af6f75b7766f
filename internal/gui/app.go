// Package gui is the desktop editor window.
package gui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimline/internal/config"
	"github.com/kikiluvv/trimline/internal/editor"
	"github.com/kikiluvv/trimline/internal/export"
	"github.com/kikiluvv/trimline/internal/ffmpeg"
	"github.com/kikiluvv/trimline/internal/logging"
	"github.com/kikiluvv/trimline/internal/notify"
	"github.com/kikiluvv/trimline/internal/playback"
	"github.com/kikiluvv/trimline/internal/settings"
	"github.com/kikiluvv/trimline/internal/suggest"
	"github.com/kikiluvv/trimline/pkg/util"
)

var videoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v"}

// Deps are the services the window drives.
type Deps struct {
	Logger   zerolog.Logger
	Config   *config.Config
	FFmpeg   *ffmpeg.Executor
	Settings *settings.Store
}

// window holds the state of one editor window. Fields below mu are
// touched from background goroutines.
type window struct {
	deps   Deps
	logger zerolog.Logger
	win    fyne.Window

	ctrl     *editor.Controller
	pipeline *export.Pipeline
	track    *timelineTrack

	fileLabel   *widget.Label
	timeLabel   *widget.Label
	keptLabel   *widget.Label
	statusLabel *widget.Label
	progress    *widget.ProgressBar
	preview     *canvas.Image
	playButton  *widget.Button

	mu            sync.Mutex
	source        string
	info          *ffmpeg.VideoInfo
	clock         *playback.Clock
	previewCancel context.CancelFunc
	previewFile   string
}

// Run opens the editor and blocks until it is closed. initial, when set,
// is loaded on start.
func Run(deps Deps, initial string) error {
	a := app.NewWithID("io.github.kikiluvv.trimline")
	w := &window{
		deps:   deps,
		logger: logging.WithComponent(deps.Logger, "gui"),
		win:    a.NewWindow("trimline"),
	}
	w.build()

	if initial != "" {
		w.load(initial)
	}

	w.win.SetOnClosed(w.close)
	w.win.ShowAndRun()
	return nil
}

func (w *window) build() {
	sink := notify.Multi(notify.NewLog(w.logger), notify.Func(w.show))
	w.ctrl = editor.NewController(w.logger, &clockSource{w: w}, sink, w.deps.Config.EditorOptions())

	engine := export.NewFFmpegEngine(w.deps.FFmpeg, w.deps.Config.EncodeOptions())
	w.pipeline = export.New(w.logger, engine, export.Options{
		TempDir:  w.deps.Config.TempDir,
		Notifier: sink,
	})

	w.track = newTimelineTrack(w.ctrl)
	w.track.onError = func(err error) { w.logger.Debug().Err(err).Msg("gesture ignored") }
	w.track.onDrop = w.refreshPreview

	w.fileLabel = widget.NewLabel("No video loaded")
	w.timeLabel = widget.NewLabel(util.FormatSeconds(0))
	w.keptLabel = widget.NewLabel("")
	w.statusLabel = widget.NewLabel("")
	w.statusLabel.Wrapping = fyne.TextWrapWord
	w.progress = widget.NewProgressBar()
	w.progress.Hide()

	w.preview = canvas.NewImageFromResource(nil)
	w.preview.FillMode = canvas.ImageFillContain
	w.preview.SetMinSize(fyne.NewSize(480, 270))

	w.playButton = widget.NewButton("Play", w.ctrl.TogglePlay)

	w.ctrl.Subscribe(func(st editor.State) {
		fyne.Do(func() { w.render(st) })
	})

	openButton := widget.NewButton("Open…", w.openDialog)
	addButton := widget.NewButton("Add Cut", func() {
		// ErrNoSpace is already notified by the controller
		if _, err := w.ctrl.Add(); err != nil && !errors.Is(err, editor.ErrNoSpace) {
			w.report(err)
		}
	})
	saveButton := widget.NewButton("Save Change", w.ctrl.Commit)
	removeButton := widget.NewButton("Remove", func() { w.report(w.ctrl.RemoveActive()) })
	undoButton := widget.NewButton("Undo All", func() { w.report(w.ctrl.UndoAll()) })
	suggestButton := widget.NewButton("Load Suggestions…", w.suggestionsDialog)
	silenceButton := widget.NewButton("Detect Silence", w.detectSilence)
	exportButton := widget.NewButton("Export", w.export)

	w.win.SetContent(container.NewBorder(
		container.NewVBox(
			container.NewHBox(openButton, w.fileLabel),
			w.preview,
		),
		container.NewVBox(
			w.track,
			container.NewHBox(w.playButton, w.timeLabel, w.keptLabel),
			container.NewHBox(addButton, saveButton, removeButton, undoButton),
			container.NewHBox(suggestButton, silenceButton, exportButton),
			w.progress,
			w.statusLabel,
		),
		nil, nil,
	))
	w.win.Resize(fyne.NewSize(900, 620))
}

// render mirrors controller state into the widgets. UI goroutine only.
func (w *window) render(st editor.State) {
	w.track.SetState(st)
	if !st.Loaded {
		w.timeLabel.SetText(util.FormatSeconds(0))
		w.keptLabel.SetText("")
		return
	}
	w.timeLabel.SetText(fmt.Sprintf("%s / %s", util.FormatSeconds(st.CurrentTime), util.FormatSeconds(st.Duration)))

	var kept float64
	for _, sp := range st.Kept {
		kept += sp.Length()
	}
	w.keptLabel.SetText(fmt.Sprintf("%d cuts, %s kept", len(st.Intervals), util.FormatSeconds(kept)))

	if st.Playing {
		w.playButton.SetText("Pause")
	} else {
		w.playButton.SetText("Play")
	}
}

// show is the notification sink for the window.
func (w *window) show(msg string, sev notify.Severity) {
	fyne.Do(func() {
		if sev == notify.Error {
			dialog.ShowError(errors.New(msg), w.win)
		}
		w.statusLabel.SetText(msg)
	})
}

func (w *window) report(err error) {
	if err != nil {
		w.show(err.Error(), notify.Warning)
	}
}

func (w *window) openDialog() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			w.show(err.Error(), notify.Error)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		w.load(path)
	}, w.win)
	fd.SetFilter(storage.NewExtensionFileFilter(videoExtensions))
	if dir := w.settingsValue(settings.KeyLastOpenDir); dir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			fd.SetLocation(lister)
		}
	}
	fd.Show()
}

// load probes path off the UI goroutine and starts a new session.
func (w *window) load(path string) {
	w.stopClock()
	w.ctrl.Reset()
	w.setStatus("Loading " + filepath.Base(path) + "…")

	go func() {
		ctx := context.Background()
		info, err := w.deps.FFmpeg.ProbeVideo(ctx, path)
		if err != nil {
			w.logger.Error().Err(err).Str("path", path).Msg("probe failed")
			w.show("Could not read the video: "+err.Error(), notify.Error)
			return
		}

		clock := playback.New(w.logger, info.Seconds(), w.deps.Config.Editor.TickInterval)
		clock.OnTick(func(float64) { w.ctrl.Tick() })

		w.mu.Lock()
		w.source = path
		w.info = info
		w.clock = clock
		w.mu.Unlock()

		if err := w.ctrl.Load(info.Seconds()); err != nil {
			return
		}

		if w.deps.Settings != nil {
			if err := w.deps.Settings.AddRecent(ctx, path); err != nil {
				w.logger.Warn().Err(err).Msg("failed to record recent file")
			}
			_ = w.deps.Settings.Set(ctx, settings.KeyLastOpenDir, filepath.Dir(path))
		}

		fyne.Do(func() {
			w.fileLabel.SetText(fmt.Sprintf("%s  (%dx%d, %s)", filepath.Base(path), info.Width, info.Height, util.FormatSeconds(info.Seconds())))
			w.statusLabel.SetText("")
		})
		w.refreshPreview()
	}()
}

// refreshPreview renders the frame under the playhead.
func (w *window) refreshPreview() {
	w.mu.Lock()
	source := w.source
	if source == "" {
		w.mu.Unlock()
		return
	}
	if w.previewCancel != nil {
		w.previewCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.previewCancel = cancel
	w.mu.Unlock()

	at := w.ctrl.Snapshot().CurrentTime
	go func() {
		f, err := util.TempFile(w.deps.Config.TempDir, "trimline-preview-", ".jpg")
		if err != nil {
			w.logger.Warn().Err(err).Msg("preview temp file")
			return
		}
		out := f.Name()
		f.Close()

		if err := w.deps.FFmpeg.ExtractFrame(ctx, source, out, at, w.deps.Config.Editor.PreviewWidth); err != nil {
			os.Remove(out)
			if ctx.Err() == nil {
				w.logger.Warn().Err(err).Float64("at", at).Msg("preview failed")
			}
			return
		}

		w.mu.Lock()
		old := w.previewFile
		w.previewFile = out
		w.mu.Unlock()
		if old != "" {
			os.Remove(old)
		}

		fyne.Do(func() {
			w.preview.File = out
			w.preview.Refresh()
		})
	}()
}

func (w *window) suggestionsDialog() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		buf, err := io.ReadAll(rc)
		if err != nil {
			w.show("Could not read suggestions: "+err.Error(), notify.Error)
			return
		}
		sugs, err := suggest.ParseAnalysis(buf)
		if err != nil {
			w.show("Could not parse suggestions: "+err.Error(), notify.Error)
			return
		}
		w.applySuggestions(sugs)
	}, w.win)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json", ".txt"}))
	fd.Show()
}

func (w *window) detectSilence() {
	w.mu.Lock()
	source, info := w.source, w.info
	w.mu.Unlock()
	if source == "" {
		w.show("Open a video first.", notify.Warning)
		return
	}
	if !info.HasAudio {
		w.show("This video has no audio track.", notify.Warning)
		return
	}

	cfg := w.deps.Config.Suggest
	w.setStatus("Detecting silence…")
	go func() {
		segs, err := w.deps.FFmpeg.DetectSilence(context.Background(), source, cfg.SilenceNoiseDB, cfg.SilenceMinDuration)
		if err != nil {
			w.show("Silence detection failed: "+err.Error(), notify.Error)
			return
		}
		w.applySuggestions(suggest.FromSilence(segs, cfg.SilenceMinDuration))
	}()
}

func (w *window) applySuggestions(sugs []suggest.Suggestion) {
	report := suggest.Apply(w.ctrl, sugs)
	for _, r := range report.Rejected {
		w.logger.Info().Err(r.Err).Str("suggestion", r.Suggestion.String()).Msg("suggestion skipped")
	}
	sev := notify.Success
	if len(report.Accepted) == 0 {
		sev = notify.Warning
	}
	w.show(fmt.Sprintf("Applied %d of %d suggested cuts.", len(report.Accepted), len(sugs)), sev)
}

func (w *window) export() {
	w.mu.Lock()
	source, info := w.source, w.info
	w.mu.Unlock()
	if source == "" {
		w.show("Open a video first.", notify.Warning)
		return
	}

	kept, err := w.ctrl.Kept()
	if err != nil {
		w.report(err)
		return
	}

	outDir := w.deps.Config.Export.OutputDir
	if outDir == "" {
		outDir = w.settingsValue(settings.KeyLastOutputDir)
	}

	job := export.Job{
		Source:    source,
		Kept:      kept,
		HasAudio:  info.HasAudio,
		Format:    w.deps.Config.Export.Format,
		OutputDir: outDir,
		Progress: func(pct float64) {
			fyne.Do(func() { w.progress.SetValue(pct / 100) })
		},
	}

	err = w.pipeline.Start(context.Background(), job, func(res *export.Result, err error) {
		fyne.Do(w.progress.Hide)
		if err != nil || w.deps.Settings == nil {
			return
		}
		_ = w.deps.Settings.Set(context.Background(), settings.KeyLastOutputDir, filepath.Dir(res.Path))
	})
	if err != nil {
		// ErrBusy is notified by the pipeline
		return
	}
	w.progress.SetValue(0)
	w.progress.Show()
	w.setStatus("Exporting…")
}

func (w *window) setStatus(msg string) {
	fyne.Do(func() { w.statusLabel.SetText(msg) })
}

func (w *window) settingsValue(key string) string {
	if w.deps.Settings == nil {
		return ""
	}
	return w.deps.Settings.GetOr(context.Background(), key, "")
}

func (w *window) stopClock() {
	w.mu.Lock()
	clock := w.clock
	w.clock = nil
	w.source = ""
	w.info = nil
	w.mu.Unlock()
	if clock != nil {
		clock.Close()
	}
}

func (w *window) close() {
	w.stopClock()
	w.mu.Lock()
	if w.previewCancel != nil {
		w.previewCancel()
	}
	preview := w.previewFile
	w.mu.Unlock()
	if preview != "" {
		os.Remove(preview)
	}
}
