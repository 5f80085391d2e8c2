package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"mstream-dl/internal/runstore"
	"mstream-dl/internal/tools"
)

type DoctorOptions struct {
	OutputDir  string
	ConfigPath string
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Doctor(opts DoctorOptions) DoctorResult {
	outputDir := firstNonEmpty(opts.OutputDir, DefaultOutputDir)
	configPath := NormalizeConfigPath(opts.ConfigPath)

	checks := make([]DoctorCheck, 0, 4)
	dep := tools.DependencyStatus()
	checks = append(checks, DoctorCheck{
		Name:    "dependency:aria2c",
		OK:      dep.Aria2cFound,
		Message: dependencyMessage(dep.Aria2cFound, dep.Aria2cPath, "aria2c"),
	})
	checks = append(checks, DoctorCheck{
		Name:    "dependency:ffmpeg",
		OK:      dep.FFmpegFound,
		Message: dependencyMessage(dep.FFmpegFound, dep.FFmpegPath, "ffmpeg"),
	})

	outOK, outMessage := EnsureWritableDir(outputDir)
	checks = append(checks, DoctorCheck{Name: "directory:output", OK: outOK, Message: outMessage})

	cfgOK, cfgMessage := EnsureWritableDir(filepath.Dir(configPath))
	checks = append(checks, DoctorCheck{Name: "directory:config", OK: cfgOK, Message: cfgMessage})

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH"
}

// EnsureWritableDir creates path if needed and probes it with a temp file.
func EnsureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "mstream-dl-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
