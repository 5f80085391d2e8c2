package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"mstream-dl/internal/console"
	"mstream-dl/internal/hls"
	"mstream-dl/internal/model"
	"mstream-dl/internal/runstore"
	"mstream-dl/internal/session"
	"mstream-dl/internal/stream"
	"mstream-dl/internal/tools"
)

const (
	reportSchemaV1 = 1
	toolsLogName   = "tools.log"
)

// Config is fixed for the lifetime of a Pipeline.
type Config struct {
	OutputDir   string
	Connections int
	// Quality is the preferred rendition index; nil asks the Chooser.
	Quality    *int
	DatePrefix bool
	// Origin identifies the site the credential is requested for.
	Origin    string
	RawOutput bool
	Progress  bool
}

// VideoAPI is the metadata and manifest source.
type VideoAPI interface {
	GetVideo(ctx context.Context, videoID string, cred session.Credential) (model.VideoMetadata, error)
	Fetch(ctx context.Context, rawURL string, cred session.Credential) ([]byte, error)
	FetchKey(ctx context.Context, rawURL string, cred session.Credential) ([]byte, error)
}

type Downloader interface {
	Download(ctx context.Context, opts tools.DownloadOptions) ([]string, error)
}

type Remuxer interface {
	Remux(ctx context.Context, opts tools.RemuxOptions) ([]string, error)
}

type Deps struct {
	API         VideoAPI
	Credentials session.Provider
	Chooser     hls.Chooser
	Downloader  Downloader
	Remuxer     Remuxer
	Log         console.Logger
	// Stdout receives raw tool output; Stderr receives progress bars.
	Stdout io.Writer
	Stderr io.Writer
	// SkipPreflight disables the aria2c/ffmpeg PATH check.
	SkipPreflight bool
	Now           func() time.Time
}

type Pipeline struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	abs, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory %s: %w", cfg.OutputDir, err)
	}
	cfg.OutputDir = abs
	cfg.Connections = tools.ClampConnections(cfg.Connections)
	if cfg.Quality != nil {
		q := *cfg.Quality
		cfg.Quality = &q
	}

	if deps.API == nil || deps.Credentials == nil || deps.Downloader == nil || deps.Remuxer == nil {
		return nil, fmt.Errorf("pipeline requires an api client, credential provider, downloader and remuxer")
	}
	if deps.Log == nil {
		deps.Log = console.Discard{}
	}
	if deps.Stdout == nil {
		deps.Stdout = io.Discard
	}
	if deps.Stderr == nil {
		deps.Stderr = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run downloads every video in order. A failed video is recorded as aborted
// and the batch moves on; only startup problems and cancellation return an error.
func (p *Pipeline) Run(ctx context.Context, videoURLs []string) (model.BatchReport, error) {
	if len(videoURLs) == 0 {
		return model.BatchReport{}, fmt.Errorf("at least one video url is required")
	}
	if err := p.preflight(); err != nil {
		return model.BatchReport{}, err
	}

	lock, err := runstore.AcquireRunLock(p.cfg.OutputDir)
	if err != nil {
		return model.BatchReport{}, err
	}
	defer func() {
		_ = lock.Release()
	}()

	cred, err := p.deps.Credentials.Credential(ctx, p.cfg.Origin)
	if err != nil {
		return model.BatchReport{}, fmt.Errorf("get session credential: %w", err)
	}
	if cred.Empty() {
		return model.BatchReport{}, session.ErrNoCredential
	}

	report := model.BatchReport{
		SchemaVersion: reportSchemaV1,
		RunID:         uuid.New().String(),
		StartedAt:     p.timestamp(),
		OutputDir:     p.cfg.OutputDir,
		Jobs:          make([]model.Job, 0, len(videoURLs)),
	}
	for i, u := range videoURLs {
		report.Jobs = append(report.Jobs, model.Job{
			Index:    i + 1,
			VideoURL: strings.TrimSpace(u),
			Stage:    model.StageQueued,
		})
	}
	report.Recount()
	if err := p.saveReport(&report); err != nil {
		return report, err
	}

	var runErr error
	for i := range report.Jobs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		job := &report.Jobs[i]
		p.deps.Log.Successf("Start downloading video: %s", job.VideoURL)
		if err := p.runJob(ctx, &report, job, cred); err != nil {
			if model.IsTerminalStage(job.Stage) {
				return report, err
			}
			reason := abortReason(err)
			job.LastError = err.Error()
			if tErr := model.TransitionJob(job, model.StageAborted, reason); tErr != nil {
				return report, tErr
			}
			job.FinishedAt = p.timestamp()
			p.logAbort(job, err)
			if saveErr := p.saveReport(&report); saveErr != nil {
				return report, saveErr
			}
			if reason == ReasonCanceled {
				runErr = ctx.Err()
				if runErr == nil {
					runErr = err
				}
				break
			}
		}
	}

	report.FinishedAt = p.timestamp()
	if err := p.saveReport(&report); err != nil {
		return report, err
	}
	return report, runErr
}

func (p *Pipeline) preflight() error {
	if !p.deps.SkipPreflight {
		if err := tools.CheckDependencies(); err != nil {
			return err
		}
	}
	if err := runstore.Mkdir(p.cfg.OutputDir); err != nil {
		return err
	}
	probe, err := os.CreateTemp(p.cfg.OutputDir, ".mstream-dl-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", p.cfg.OutputDir, err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}

func (p *Pipeline) runJob(ctx context.Context, report *model.BatchReport, job *model.Job, cred session.Credential) error {
	job.StartedAt = p.timestamp()
	advance := func(stage string) error {
		if err := model.TransitionJob(job, stage, ""); err != nil {
			return err
		}
		return p.saveReport(report)
	}

	if err := advance(model.StageFetchingMetadata); err != nil {
		return err
	}
	videoID, err := stream.VideoIDFromURL(job.VideoURL)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidVideoURL, err)
	}
	job.VideoID = videoID
	meta, err := p.deps.API.GetVideo(ctx, videoID, cred)
	if err != nil {
		return err
	}
	job.Title = meta.Title
	p.deps.Log.Infof("Video title is: %s", meta.Title)
	if p.cfg.DatePrefix && meta.PublishedDate == nil {
		p.deps.Log.Warnf("No usable published date for %s; saving without the date prefix.", videoID)
	}

	if err := advance(model.StageFetchingManifest); err != nil {
		return err
	}
	masterText, err := p.deps.API.Fetch(ctx, meta.HLSManifestURL, cred)
	if err != nil {
		return err
	}
	master, err := hls.ParseMaster(string(masterText))
	if err != nil {
		return err
	}

	if err := advance(model.StageSelectingRendition); err != nil {
		return err
	}
	sel, err := hls.Select(ctx, master, p.cfg.Quality, p.deps.Chooser)
	if err != nil {
		return err
	}
	job.Resolution = sel.Video.Label()
	if sel.Clamped {
		p.deps.Log.Warnf("Desired quality is not available for this video (available range: 0-%d). Using the best resolution available: %s",
			len(master.Renditions)-1, sel.Video.Label())
	} else {
		p.deps.Log.Warnf("Selected resolution: %s", sel.Video.Label())
	}

	if err := advance(model.StageFetchingKey); err != nil {
		return err
	}
	playlistBase := hls.BaseURL(meta.HLSManifestURL)
	videoURL := hls.ResolveURI(playlistBase, sel.Video.URI)
	videoText, err := p.deps.API.Fetch(ctx, videoURL, cred)
	if err != nil {
		return err
	}
	videoTrack, err := hls.ParseMedia(string(videoText))
	if err != nil {
		return err
	}
	key, err := p.deps.API.FetchKey(ctx, hls.ResolveURI(hls.BaseURL(videoURL), videoTrack.Key.URI), cred)
	if err != nil {
		var authErr *stream.AuthorizationError
		if errors.As(err, &authErr) && authErr.VideoID == "" {
			authErr.VideoID = videoID
		}
		return err
	}

	wd, err := runstore.NewWorkDir(p.cfg.OutputDir, videoID)
	if err != nil {
		return err
	}
	if err := wd.Reset(); err != nil {
		return err
	}
	if err := runstore.WriteBytes(wd.KeyPath(), key); err != nil {
		return err
	}

	if err := advance(model.StageRewriting); err != nil {
		return err
	}
	videoPair, err := hls.Rewrite(videoTrack.Text, videoTrack.Key.URI, wd.KeyPath(), hls.BaseURL(videoURL), runstore.VideoSegmentsDirName)
	if err != nil {
		return err
	}
	if err := writePair(wd.VideoFetchPath(), wd.VideoPlayPath(), videoPair); err != nil {
		return err
	}
	audioURL := hls.ResolveURI(playlistBase, sel.Audio.URI)
	audioText, err := p.deps.API.Fetch(ctx, audioURL, cred)
	if err != nil {
		return err
	}
	audioTrack, err := hls.ParseMedia(string(audioText))
	if err != nil {
		return err
	}
	audioPair, err := hls.Rewrite(audioTrack.Text, videoTrack.Key.URI, wd.KeyPath(), hls.BaseURL(audioURL), runstore.AudioSegmentsDirName)
	if err != nil {
		return err
	}
	if err := writePair(wd.AudioFetchPath(), wd.AudioPlayPath(), audioPair); err != nil {
		return err
	}

	toolLog, err := os.OpenFile(filepath.Join(wd.Root, toolsLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open tool log: %w", err)
	}
	defer toolLog.Close()

	if err := advance(model.StageDownloadingVideo); err != nil {
		return err
	}
	if err := p.download(ctx, "video", wd.VideoFetchPath(), wd.VideoSegmentsDir(), len(videoTrack.Segments), cred, toolLog); err != nil {
		return err
	}
	if err := advance(model.StageDownloadingAudio); err != nil {
		return err
	}
	if err := p.download(ctx, "audio", wd.AudioFetchPath(), wd.AudioSegmentsDir(), len(audioTrack.Segments), cred, toolLog); err != nil {
		return err
	}

	if err := advance(model.StageRemuxing); err != nil {
		return err
	}
	out, err := outputPath(p.cfg.OutputDir, meta.OutputStem(p.cfg.DatePrefix), p.deps.Now)
	if err != nil {
		return err
	}
	if _, err := p.deps.Remuxer.Remux(ctx, tools.RemuxOptions{
		WorkDir:       wd.Root,
		AudioManifest: wd.AudioPlayPath(),
		VideoManifest: wd.VideoPlayPath(),
		OutputPath:    out,
		Run:           p.runOptions(toolLog, nil),
	}); err != nil {
		return err
	}
	job.OutputPath = out

	if err := advance(model.StageCleaningUp); err != nil {
		return err
	}
	_ = toolLog.Close()
	if err := wd.Remove(); err != nil {
		return err
	}
	if size, err := runstore.FileSize(out); err == nil {
		job.OutputBytes = size
	}

	if err := model.TransitionJob(job, model.StageDone, ""); err != nil {
		return err
	}
	job.FinishedAt = p.timestamp()
	p.deps.Log.Successf("Saved %s (%s)", out, humanize.Bytes(uint64(job.OutputBytes)))
	return p.saveReport(report)
}

func (p *Pipeline) download(ctx context.Context, label, input, dest string, segments int, cred session.Credential, toolLog io.Writer) error {
	var bar *segmentProgress
	var observe func(tools.OutputStream, string)
	if p.cfg.Progress {
		bar = newSegmentProgress(p.deps.Stderr, label, segments)
		observe = bar.Observe
	}
	_, err := p.deps.Downloader.Download(ctx, tools.DownloadOptions{
		InputFile:   input,
		DestDir:     dest,
		Cookie:      cred.Header,
		Connections: p.cfg.Connections,
		Quiet:       p.cfg.Progress,
		Run:         p.runOptions(toolLog, observe),
	})
	if bar != nil && err == nil {
		bar.Finish()
	}
	return err
}

func (p *Pipeline) runOptions(toolLog io.Writer, observe func(tools.OutputStream, string)) tools.RunOptions {
	return tools.RunOptions{
		Stdout:     p.deps.Stdout,
		Stderr:     p.deps.Stdout,
		LogWriter:  toolLog,
		EchoOutput: p.cfg.RawOutput,
		Progress:   observe,
	}
}

func (p *Pipeline) logAbort(job *model.Job, err error) {
	var authErr *stream.AuthorizationError
	switch {
	case errors.As(err, &authErr):
		p.deps.Log.Errorf("%s", authErr.Error())
	case job.Reason == ReasonCanceled:
		p.deps.Log.Warnf("Interrupted while downloading %s; working files left in place.", job.VideoURL)
	default:
		p.deps.Log.Errorf("Error downloading this video (%s): %v", job.Reason, err)
	}
	if job.VideoID == "" || job.Reason == ReasonCanceled {
		return
	}
	toolLog := filepath.Join(p.cfg.OutputDir, job.VideoID, toolsLogName)
	if ok, _ := runstore.Exists(toolLog); ok {
		p.deps.Log.Warnf("Working files kept in %s; aria2c and ffmpeg output is in %s.", filepath.Dir(toolLog), toolLog)
	}
}

func (p *Pipeline) saveReport(report *model.BatchReport) error {
	report.Recount()
	if err := runstore.WriteJSON(runstore.LastReportPath(p.cfg.OutputDir), report); err != nil {
		return fmt.Errorf("save batch report: %w", err)
	}
	return nil
}

func (p *Pipeline) timestamp() string {
	return p.deps.Now().UTC().Format(time.RFC3339)
}

func writePair(fetchPath, playPath string, pair hls.RewrittenPair) error {
	if err := runstore.WriteBytes(fetchPath, []byte(pair.Fetch)); err != nil {
		return err
	}
	return runstore.WriteBytes(playPath, []byte(pair.Play))
}
