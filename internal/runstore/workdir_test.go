package runstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkDirResetRecreatesLayout(t *testing.T) {
	outputRoot := t.TempDir()
	wd, err := NewWorkDir(outputRoot, "9611baf5-8a32-4f4e-b1b6-0a6d2c6f7e11")
	if err != nil {
		t.Fatalf("new workdir: %v", err)
	}

	if err := wd.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	leftover := filepath.Join(wd.VideoSegmentsDir(), "Fragments(video=0)")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}

	if err := wd.Reset(); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if ok, _ := Exists(leftover); ok {
		t.Fatalf("expected leftover segment to be removed")
	}
	for _, dir := range []string{wd.VideoSegmentsDir(), wd.AudioSegmentsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
	if got := filepath.Base(wd.KeyPath()); got != KeyFileName {
		t.Fatalf("unexpected key file name: got %q want %q", got, KeyFileName)
	}

	if err := wd.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := Exists(wd.Root); ok {
		t.Fatalf("expected working directory to be removed")
	}
}

func TestNewWorkDirRejectsPathSeparators(t *testing.T) {
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := NewWorkDir(t.TempDir(), id); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}

func TestWriteJSONRoundTripsThroughReadJSON(t *testing.T) {
	path := LastReportPath(t.TempDir())
	in := map[string]int{"completed": 2}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out map[string]int
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out["completed"] != 2 {
		t.Fatalf("unexpected value: %v", out)
	}
}
