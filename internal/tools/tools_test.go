package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFakeTool(t *testing.T, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func fakeBinDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	return dir
}

func TestClampConnections(t *testing.T) {
	cases := map[int]int{30: 16, 16: 16, 8: 8, 1: 1, 0: 1, -4: 1}
	for in, want := range cases {
		if got := ClampConnections(in); got != want {
			t.Fatalf("ClampConnections(%d): got %d want %d", in, got, want)
		}
	}
}

func TestAria2cCommandShape(t *testing.T) {
	argv := Aria2c{}.Command(DownloadOptions{
		InputFile:   "/w/video_full.m3u8",
		DestDir:     "/w/video_segments",
		Cookie:      "Authorization=a; Signature=b",
		Connections: 30,
	})
	want := []string{
		"aria2c", "-i", "/w/video_full.m3u8", "-j", "16", "-x", "16", "-d", "/w/video_segments",
		"--header=Cookie:Authorization=a; Signature=b",
	}
	if strings.Join(argv, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected argv:\n got %q\nwant %q", argv, want)
	}
}

func TestAria2cDownloadStreamsOutputAndFailsOnNonZeroExit(t *testing.T) {
	bin := fakeBinDir(t)
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	writeFakeTool(t, bin, "aria2c", `#!/usr/bin/env bash
set -euo pipefail
printf '%s\n' "$@" > "`+argsFile+`"
echo "[#1 SIZE:1.0MiB/2.0MiB(50%)]"
echo "Download complete: /w/video_segments/seg0"
`)

	var mu sync.Mutex
	var lines []string
	_, err := Aria2c{}.Download(context.Background(), DownloadOptions{
		InputFile:   "/w/video_full.m3u8",
		DestDir:     "/w/video_segments",
		Connections: 0,
		Run: RunOptions{Progress: func(_ OutputStream, line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		}},
	})
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "-j\n1\n-x\n1\n") {
		t.Fatalf("expected connections clamped to 1, got args:\n%s", raw)
	}
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "Download complete:") {
		t.Fatalf("unexpected progress lines: %q", lines)
	}

	writeFakeTool(t, bin, "aria2c", `#!/usr/bin/env bash
echo "errorCode=3 Resource not found" >&2
exit 3
`)
	_, err = Aria2c{}.Download(context.Background(), DownloadOptions{InputFile: "/x", DestDir: "/y"})
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "Resource not found") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestFFmpegCommandPerPlatform(t *testing.T) {
	opts := RemuxOptions{
		WorkDir:       filepath.Join("/out", "id"),
		AudioManifest: filepath.Join("/out", "id", "audio_tmp.m3u8"),
		VideoManifest: filepath.Join("/out", "id", "video_tmp.m3u8"),
		OutputPath:    "/out/title.mp4",
	}

	argv, dir := FFmpeg{GOOS: "linux"}.Command(opts)
	want := "ffmpeg -protocol_whitelist file,http,https,tcp,tls,crypto -allowed_extensions ALL -i /out/id/audio_tmp.m3u8 " +
		"-protocol_whitelist file,http,https,tcp,tls,crypto -allowed_extensions ALL -i /out/id/video_tmp.m3u8 " +
		"-async 1 -c copy -bsf:a aac_adtstoasc -n /out/title.mp4"
	if got := strings.Join(argv, " "); got != want {
		t.Fatalf("unexpected argv:\n got %s\nwant %s", got, want)
	}
	if dir != "" {
		t.Fatalf("expected no working directory override, got %q", dir)
	}

	argv, dir = FFmpeg{GOOS: "windows"}.Command(opts)
	if dir != opts.WorkDir {
		t.Fatalf("expected windows run dir %q, got %q", opts.WorkDir, dir)
	}
	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "crypto,data -allowed_extensions ALL -i audio_tmp.m3u8 ") {
		t.Fatalf("expected relative inputs with data protocol, got %s", joined)
	}
}

func TestFFmpegRemuxRefusesExistingOutput(t *testing.T) {
	bin := fakeBinDir(t)
	marker := filepath.Join(t.TempDir(), "ran")
	writeFakeTool(t, bin, "ffmpeg", `#!/usr/bin/env bash
touch "`+marker+`"
`)

	out := filepath.Join(t.TempDir(), "lesson.mp4")
	if err := os.WriteFile(out, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := FFmpeg{}.Remux(context.Background(), RemuxOptions{OutputPath: out, AudioManifest: "a", VideoManifest: "v"})
	var remuxErr *RemuxError
	if !errors.As(err, &remuxErr) || !errors.Is(err, ErrOutputExists) {
		t.Fatalf("expected RemuxError wrapping ErrOutputExists, got %v", err)
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Fatalf("ffmpeg must not run when output exists")
	}
	data, _ := os.ReadFile(out)
	if string(data) != "existing" {
		t.Fatalf("existing output was modified: %q", data)
	}
}

func TestFFmpegRemuxWritesOutput(t *testing.T) {
	bin := fakeBinDir(t)
	writeFakeTool(t, bin, "ffmpeg", `#!/usr/bin/env bash
set -euo pipefail
out="${@: -1}"
printf 'mp4' > "$out"
`)

	out := filepath.Join(t.TempDir(), "lesson.mp4")
	if _, err := (FFmpeg{GOOS: "linux"}).Remux(context.Background(), RemuxOptions{OutputPath: out, AudioManifest: "a", VideoManifest: "v"}); err != nil {
		t.Fatalf("remux failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "mp4" {
		t.Fatalf("unexpected output: %q err=%v", data, err)
	}
}

func TestCheckDependenciesReportsMissingTools(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin)

	if err := CheckDependencies(); err == nil || !strings.Contains(err.Error(), "aria2c") {
		t.Fatalf("expected missing aria2c, got %v", err)
	}
	writeFakeTool(t, bin, "aria2c", "#!/usr/bin/env bash\n")
	if err := CheckDependencies(); err == nil || !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("expected missing ffmpeg, got %v", err)
	}
	writeFakeTool(t, bin, "ffmpeg", "#!/usr/bin/env bash\n")
	if err := CheckDependencies(); err != nil {
		t.Fatalf("expected dependencies satisfied, got %v", err)
	}
}

func TestCommandLineQuotesArguments(t *testing.T) {
	got := CommandLine([]string{"aria2c", "--header=Cookie:a=1; b=2"})
	if got != "aria2c '--header=Cookie:a=1; b=2'" {
		t.Fatalf("unexpected command line: %s", got)
	}
}
