package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinConnections     = 1
	MaxConnections     = 16
	DefaultConnections = 16
)

type Aria2c struct {
	Binary string
}

type DownloadOptions struct {
	InputFile   string
	DestDir     string
	Cookie      string
	Connections int
	// Quiet drops aria2c's own progress readout when we render progress ourselves.
	Quiet bool
	Run   RunOptions
}

type DownloadError struct {
	InputFile string
	Command   []string
	Err       error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download segments from %s: %v", e.InputFile, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ClampConnections bounds n to what aria2c accepts for -j/-x.
func ClampConnections(n int) int {
	if n > MaxConnections {
		return MaxConnections
	}
	if n < MinConnections {
		return MinConnections
	}
	return n
}

func (a Aria2c) binary() string {
	if strings.TrimSpace(a.Binary) != "" {
		return a.Binary
	}
	return "aria2c"
}

func (a Aria2c) Command(opts DownloadOptions) []string {
	n := strconv.Itoa(ClampConnections(opts.Connections))
	argv := []string{a.binary(), "-i", opts.InputFile, "-j", n, "-x", n, "-d", opts.DestDir}
	if strings.TrimSpace(opts.Cookie) != "" {
		argv = append(argv, "--header=Cookie:"+opts.Cookie)
	}
	if opts.Quiet {
		argv = append(argv, "--show-console-readout=false", "--summary-interval=0", "--download-result=hide")
	}
	return argv
}

// Download blocks until aria2c has fetched every URI listed in InputFile.
func (a Aria2c) Download(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if strings.TrimSpace(opts.InputFile) == "" {
		return nil, fmt.Errorf("aria2c input file is required")
	}
	if strings.TrimSpace(opts.DestDir) == "" {
		return nil, fmt.Errorf("aria2c destination directory is required")
	}
	argv := a.Command(opts)
	if err := runCommand(ctx, argv, opts.Run); err != nil {
		return argv, &DownloadError{InputFile: opts.InputFile, Command: argv, Err: err}
	}
	return argv, nil
}
