package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSettingsDefaultsWhenMissing(t *testing.T) {
	s, err := ReadSettings(filepath.Join(t.TempDir(), "config", "mstream-dl.json"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if s.OutputDir != DefaultOutputDir || s.Connections != DefaultConnections {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.DatePrefix == nil || !*s.DatePrefix {
		t.Fatalf("expected date prefix enabled by default")
	}
}

func TestSaveSettingsNormalizesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "mstream-dl.json")
	q := 2
	saved, err := SaveSettings(path, Settings{Identity: " student@uni.example ", Connections: 40, Quality: &q})
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if saved.Connections != 16 {
		t.Fatalf("expected connections clamped to 16, got %d", saved.Connections)
	}
	if saved.UpdatedAt == "" {
		t.Fatalf("expected updated_at to be set")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"identity": "student@uni.example"`) {
		t.Fatalf("identity not persisted:\n%s", raw)
	}

	back, err := ReadSettings(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if back.Quality == nil || *back.Quality != 2 || back.Identity != "student@uni.example" {
		t.Fatalf("unexpected settings after reload: %+v", back)
	}
}

func TestReadSettingsRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte(`{"schema_version": 9}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSettings(path); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestResolveFlagsWinOverSaved(t *testing.T) {
	savedQ := 1
	flagQ := 0
	saved := Settings{OutputDir: "saved-out", Connections: 4, Quality: &savedQ, Identity: "saved@x"}

	r := Resolve(saved, Overrides{OutputDir: "flag-out", Quality: &flagQ, NoDatePrefix: true})
	if r.OutputDir != "flag-out" || r.Connections != 4 || r.Identity != "saved@x" {
		t.Fatalf("unexpected resolution: %+v", r)
	}
	if r.Quality == nil || *r.Quality != 0 {
		t.Fatalf("expected flag quality 0, got %v", r.Quality)
	}
	if r.DatePrefix {
		t.Fatalf("expected date prefix disabled by flag")
	}

	r = Resolve(saved, Overrides{})
	if r.Quality == nil || *r.Quality != 1 || !r.DatePrefix {
		t.Fatalf("expected saved values, got %+v", r)
	}

}

func TestResolveClampsGivenConnections(t *testing.T) {
	saved := Settings{Connections: 4}
	for _, tc := range []struct {
		given int
		want  int
	}{
		{0, 1},
		{-3, 1},
		{30, 16},
		{8, 8},
	} {
		given := tc.given
		if got := Resolve(saved, Overrides{Connections: &given}).Connections; got != tc.want {
			t.Fatalf("connections %d: got %d want %d", tc.given, got, tc.want)
		}
	}
	if got := Resolve(Settings{}, Overrides{}).Connections; got != DefaultConnections {
		t.Fatalf("expected default connections, got %d", got)
	}
}

func TestSavedQualityOutOfRangeIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	q := 99
	if _, err := SaveSettings(path, Settings{Quality: &q}); err != nil {
		t.Fatal(err)
	}
	back, err := ReadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Quality == nil || *back.Quality != 99 {
		t.Fatalf("expected saved quality 99 kept for clamping, got %v", back.Quality)
	}
	if r := Resolve(back, Overrides{}); r.Quality == nil || *r.Quality != 99 {
		t.Fatalf("expected resolved quality 99, got %v", r.Quality)
	}
}

func TestDoctorReportsToolsAndDirectories(t *testing.T) {
	tmp := t.TempDir()
	bin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte("#!/usr/bin/env bash\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin)

	res := Doctor(DoctorOptions{
		OutputDir:  filepath.Join(tmp, "videos"),
		ConfigPath: filepath.Join(tmp, "config", "mstream-dl.json"),
	})
	if res.OK {
		t.Fatalf("expected doctor to fail without aria2c")
	}
	byName := map[string]DoctorCheck{}
	for _, c := range res.Checks {
		byName[c.Name] = c
	}
	if byName["dependency:aria2c"].OK || !byName["dependency:ffmpeg"].OK {
		t.Fatalf("unexpected dependency checks: %+v", res.Checks)
	}
	if !byName["directory:output"].OK || !byName["directory:config"].OK {
		t.Fatalf("expected directories writable: %+v", res.Checks)
	}
}
