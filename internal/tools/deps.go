package tools

import (
	"fmt"
	"os/exec"
)

type DependencyReport struct {
	Aria2cFound bool   `json:"aria2c_found"`
	Aria2cPath  string `json:"aria2c_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("aria2c"); err == nil {
		report.Aria2cFound = true
		report.Aria2cPath = path
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

func CheckDependencies() error {
	report := DependencyStatus()
	if !report.Aria2cFound {
		return fmt.Errorf("missing dependency: aria2c is not installed or not on PATH (https://aria2.github.io)")
	}
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is not installed or not on PATH (https://ffmpeg.org)")
	}
	return nil
}
