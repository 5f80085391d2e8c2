package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mstream-dl/internal/runstore"
	"mstream-dl/internal/tools"
)

const (
	DefaultConfigPath    = "config/mstream-dl.json"
	DefaultOutputDir     = "videos"
	settingsSchemaV1     = 1
	DefaultDatePrefix    = true
	DefaultLogFormat     = "text"
	DefaultConnections   = tools.DefaultConnections
)

// Settings is what `settings set` persists between runs.
type Settings struct {
	SchemaVersion int    `json:"schema_version"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	Identity      string `json:"identity,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
	Connections   int    `json:"connections,omitempty"`
	Quality       *int   `json:"quality,omitempty"`
	DatePrefix    *bool  `json:"date_prefix,omitempty"`
}

// Overrides are command-line values; empty strings and nil pointers mean
// "not given".
type Overrides struct {
	Identity     string
	OutputDir    string
	Connections  *int
	Quality      *int
	NoDatePrefix bool
}

// Resolved is the effective configuration for one download run.
type Resolved struct {
	Identity    string
	OutputDir   string
	Connections int
	Quality     *int
	DatePrefix  bool
}

func DefaultSettings() Settings {
	datePrefix := DefaultDatePrefix
	return Settings{
		SchemaVersion: settingsSchemaV1,
		OutputDir:     DefaultOutputDir,
		Connections:   DefaultConnections,
		DatePrefix:    &datePrefix,
	}
}

func NormalizeConfigPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultConfigPath
	}
	return filepath.Clean(p)
}

func normalizeSettings(raw Settings) Settings {
	norm := raw
	norm.SchemaVersion = settingsSchemaV1
	norm.Identity = strings.TrimSpace(norm.Identity)
	norm.OutputDir = strings.TrimSpace(norm.OutputDir)
	if norm.OutputDir == "" {
		norm.OutputDir = DefaultOutputDir
	}
	if norm.Connections <= 0 {
		norm.Connections = DefaultConnections
	}
	norm.Connections = tools.ClampConnections(norm.Connections)
	if norm.DatePrefix == nil {
		v := DefaultDatePrefix
		norm.DatePrefix = &v
	}
	return norm
}

// ReadSettings returns defaults when the file does not exist yet.
func ReadSettings(configPath string) (Settings, error) {
	path := NormalizeConfigPath(configPath)
	var s Settings
	if err := runstore.ReadJSON(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}
	if s.SchemaVersion > settingsSchemaV1 {
		return Settings{}, fmt.Errorf("unsupported settings schema_version %d in %s", s.SchemaVersion, path)
	}
	return normalizeSettings(s), nil
}

func SaveSettings(configPath string, s Settings) (Settings, error) {
	path := NormalizeConfigPath(configPath)
	norm := normalizeSettings(s)
	norm.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := runstore.WriteJSON(path, norm); err != nil {
		return Settings{}, err
	}
	return norm, nil
}

// Resolve layers flags over saved settings over defaults. A given connection
// count is clamped to 1-16; a given quality index is kept as is and clamped
// against the renditions of each video.
func Resolve(saved Settings, o Overrides) Resolved {
	norm := normalizeSettings(saved)

	connections := firstPositive(norm.Connections, DefaultConnections)
	if o.Connections != nil {
		connections = tools.ClampConnections(*o.Connections)
	}
	quality := norm.Quality
	if o.Quality != nil {
		q := *o.Quality
		quality = &q
	}
	return Resolved{
		Identity:    firstNonEmpty(o.Identity, norm.Identity),
		OutputDir:   firstNonEmpty(o.OutputDir, norm.OutputDir, DefaultOutputDir),
		Connections: connections,
		Quality:     quality,
		DatePrefix:  *norm.DatePrefix && !o.NoDatePrefix,
	}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
