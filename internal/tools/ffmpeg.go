package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"mstream-dl/internal/runstore"
)

const (
	protocolWhitelist        = "file,http,https,tcp,tls,crypto"
	protocolWhitelistWindows = protocolWhitelist + ",data"
)

type FFmpeg struct {
	Binary string
	// GOOS overrides runtime.GOOS; empty means the host platform.
	GOOS string
}

type RemuxOptions struct {
	WorkDir       string
	AudioManifest string
	VideoManifest string
	OutputPath    string
	Run           RunOptions
}

type RemuxError struct {
	OutputPath string
	Command    []string
	Err        error
}

func (e *RemuxError) Error() string {
	return fmt.Sprintf("remux %s: %v", e.OutputPath, e.Err)
}

func (e *RemuxError) Unwrap() error {
	return e.Err
}

var ErrOutputExists = errors.New("output file already exists")

func (f FFmpeg) binary() string {
	if strings.TrimSpace(f.Binary) != "" {
		return f.Binary
	}
	return "ffmpeg"
}

func (f FFmpeg) goos() string {
	if f.GOOS != "" {
		return f.GOOS
	}
	return runtime.GOOS
}

// Command returns argv and the directory to run it in. On Windows ffmpeg only
// resolves the segment paths when started inside the working directory.
func (f FFmpeg) Command(opts RemuxOptions) ([]string, string) {
	whitelist := protocolWhitelist
	audio := opts.AudioManifest
	video := opts.VideoManifest
	dir := ""
	if f.goos() == "windows" {
		whitelist = protocolWhitelistWindows
		dir = opts.WorkDir
		audio = relativeTo(opts.WorkDir, audio)
		video = relativeTo(opts.WorkDir, video)
	}
	argv := []string{
		f.binary(),
		"-protocol_whitelist", whitelist, "-allowed_extensions", "ALL", "-i", audio,
		"-protocol_whitelist", whitelist, "-allowed_extensions", "ALL", "-i", video,
		"-async", "1",
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-n",
		opts.OutputPath,
	}
	return argv, dir
}

// Remux combines the audio and video play manifests into OutputPath without
// re-encoding. An existing OutputPath is never overwritten.
func (f FFmpeg) Remux(ctx context.Context, opts RemuxOptions) ([]string, error) {
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, fmt.Errorf("remux output path is required")
	}
	exists, err := runstore.Exists(opts.OutputPath)
	if err != nil {
		return nil, &RemuxError{OutputPath: opts.OutputPath, Err: err}
	}
	if exists {
		return nil, &RemuxError{OutputPath: opts.OutputPath, Err: ErrOutputExists}
	}

	argv, dir := f.Command(opts)
	run := opts.Run
	if dir != "" {
		run.Dir = dir
	}
	if err := runCommand(ctx, argv, run); err != nil {
		return argv, &RemuxError{OutputPath: opts.OutputPath, Command: argv, Err: err}
	}
	return argv, nil
}

func relativeTo(dir, path string) string {
	if dir == "" {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}
