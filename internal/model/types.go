package model

import (
	"fmt"
	"strings"
	"time"
)

// VideoMetadata is the subset of the video API response the pipeline needs.
type VideoMetadata struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
	HLSManifestURL string     `json:"hls_manifest_url"`
}

// BatchReport is the per-run record persisted next to the downloads.
type BatchReport struct {
	SchemaVersion int    `json:"schema_version"`
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
	OutputDir     string `json:"output_dir"`
	Total         int    `json:"total"`
	Completed     int    `json:"completed"`
	Aborted       int    `json:"aborted"`
	Jobs          []Job  `json:"jobs"`
}

type Job struct {
	Index       int    `json:"index"`
	VideoURL    string `json:"video_url"`
	VideoID     string `json:"video_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
	OutputBytes int64  `json:"output_bytes,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

var illegalTitleChars = strings.NewReplacer(
	"/", "-", `\`, "-", "?", "-", "%", "-", "*", "-",
	":", "-", ";", "-", "|", "-", `"`, "-", "<", "-", ">", "-",
)

// SanitizeTitle replaces characters that are not allowed in file names.
func SanitizeTitle(title string) string {
	return illegalTitleChars.Replace(strings.TrimSpace(title))
}

// OutputStem returns the file name (without extension) for the finished video.
func (m VideoMetadata) OutputStem(datePrefix bool) string {
	stem := SanitizeTitle(m.Title)
	if stem == "" {
		stem = m.ID
	}
	if datePrefix && m.PublishedDate != nil && !m.PublishedDate.IsZero() {
		d := m.PublishedDate.Local()
		stem = fmt.Sprintf("Lesson %02d_%02d_%04d - %s", d.Day(), int(d.Month()), d.Year(), stem)
	}
	return stem
}

func (r *BatchReport) Recount() {
	completed := 0
	aborted := 0
	for _, j := range r.Jobs {
		switch j.Stage {
		case StageDone:
			completed++
		case StageAborted:
			aborted++
		}
	}
	r.Total = len(r.Jobs)
	r.Completed = completed
	r.Aborted = aborted
}
