package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mstream-dl/internal/acquire"
	"mstream-dl/internal/console"
	"mstream-dl/internal/hls"
	"mstream-dl/internal/session"
	"mstream-dl/internal/stream"
	"mstream-dl/internal/tools"
	"mstream-dl/internal/workspace"
)

type downloadFlags struct {
	videos       stringList
	outputDir    string
	quality      int
	qualitySet   bool
	conn         int
	connSet      bool
	cookie       string
	identity     string
	config       string
	envDir       string
	apiBase      string
	noDatePrefix bool
	rawOutput    bool
	progress     bool
	logFormat    string
	logLevel     string
	jsonOut      bool
}

func parseDownloadFlags(args []string) (downloadFlags, error) {
	var f downloadFlags
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.Var(&f.videos, "v", "video URL (repeatable)")
	fs.Var(&f.videos, "video", "video URL (repeatable)")
	fs.StringVar(&f.outputDir, "output-dir", "", "output directory (default from settings)")
	fs.StringVar(&f.outputDir, "o", "", "shorthand for --output-dir")
	fs.IntVar(&f.quality, "quality", 0, "rendition index, 0 = lowest; out of range picks the best (default from settings, else ask)")
	fs.IntVar(&f.quality, "q", 0, "shorthand for --quality")
	fs.IntVar(&f.conn, "conn", 0, "simultaneous aria2c connections, clamped to 1-16 (default from settings)")
	fs.IntVar(&f.conn, "c", 0, "shorthand for --conn")
	fs.StringVar(&f.cookie, "cookie", "", "session Cookie header (Authorization=...; Signature=...)")
	fs.StringVar(&f.identity, "identity", "", "account label to save and show (replaces the saved one)")
	fs.StringVar(&f.identity, "u", "", "shorthand for --identity")
	fs.StringVar(&f.config, "config", workspace.DefaultConfigPath, "settings file path")
	fs.StringVar(&f.envDir, "env-dir", "", "directory holding .env/.env.local (default: current directory)")
	fs.StringVar(&f.apiBase, "api-base", stream.DefaultAPIBase, "video API base URL")
	fs.BoolVar(&f.noDatePrefix, "no-date-prefix", false, "do not prefix file names with the lesson date")
	fs.BoolVar(&f.rawOutput, "raw-output", false, "echo aria2c and ffmpeg output")
	fs.BoolVar(&f.progress, "progress", false, "show segment progress bars")
	fs.StringVar(&f.logFormat, "log-format", workspace.DefaultLogFormat, "log format: text|json")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.BoolVar(&f.jsonOut, "json", false, "print the batch report as JSON")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return downloadFlags{}, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "quality", "q":
			f.qualitySet = true
		case "conn", "c":
			f.connSet = true
		}
	})

	for _, a := range fs.Args() {
		if strings.TrimSpace(a) != "" {
			f.videos = append(f.videos, a)
		}
	}
	if len(f.videos) == 0 {
		return downloadFlags{}, errors.New("at least one video URL is required (-v <url>)")
	}
	switch f.logFormat {
	case "text", "json":
	default:
		return downloadFlags{}, fmt.Errorf("--log-format must be text or json")
	}
	return f, nil
}

func runDownload(args []string) error {
	f, err := parseDownloadFlags(args)
	if err != nil {
		return err
	}

	saved, err := workspace.ReadSettings(f.config)
	if err != nil {
		return err
	}
	overrides := workspace.Overrides{
		Identity:     f.identity,
		OutputDir:    f.outputDir,
		NoDatePrefix: f.noDatePrefix,
	}
	if f.connSet {
		overrides.Connections = intPtr(f.conn)
	}
	if f.qualitySet {
		overrides.Quality = intPtr(f.quality)
	}
	resolved := workspace.Resolve(saved, overrides)

	logOut := io.Writer(os.Stdout)
	if f.jsonOut {
		logOut = os.Stderr
	}
	log := newLogger(f.logFormat, f.logLevel, logOut)

	if id := strings.TrimSpace(f.identity); id != "" && id != saved.Identity {
		saved.Identity = id
		if _, err := workspace.SaveSettings(f.config, saved); err != nil {
			log.Warnf("There has been an error saving your identity offline. Continuing... (%v)", err)
		}
	}
	if resolved.Identity != "" {
		log.Infof("Using identity: %s", resolved.Identity)
	}

	var chooser hls.Chooser
	if resolved.Quality == nil {
		if stdinIsTTY() {
			chooser = teaChooser{out: os.Stderr}
		} else {
			chooser = hls.LineChooser{In: os.Stdin, Out: logOut}
		}
	}

	pipeline, err := acquire.New(acquire.Config{
		OutputDir:   resolved.OutputDir,
		Connections: resolved.Connections,
		Quality:     resolved.Quality,
		DatePrefix:  resolved.DatePrefix,
		Origin:      f.apiBase,
		RawOutput:   f.rawOutput,
		Progress:    f.progress,
	}, acquire.Deps{
		API: stream.NewClient(f.apiBase),
		Credentials: session.Chain{
			session.Static{Header: f.cookie},
			session.Env{Dir: f.envDir},
		},
		Chooser:    chooser,
		Downloader: tools.Aria2c{},
		Remuxer:    tools.FFmpeg{},
		Log:        log,
		Stdout:     logOut,
		Stderr:     os.Stderr,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := pipeline.Run(ctx, f.videos)
	if f.jsonOut && report.RunID != "" {
		if err := printJSON(report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if !f.jsonOut {
		log.Successf("Done! completed=%d aborted=%d (report: %s)", report.Completed, report.Aborted, reportPath(pipeline.Config().OutputDir))
	}
	if report.Aborted > 0 {
		return fmt.Errorf("%d of %d videos aborted", report.Aborted, report.Total)
	}
	return nil
}

func newLogger(format, level string, out io.Writer) console.Logger {
	if format == "json" {
		return console.NewJSON(out, level)
	}
	return console.NewStyled(out, strings.EqualFold(strings.TrimSpace(level), "debug"))
}
