package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	KeyFileName          = "my.key"
	VideoFetchName       = "video_full.m3u8"
	VideoPlayName        = "video_tmp.m3u8"
	AudioFetchName       = "audio_full.m3u8"
	AudioPlayName        = "audio_tmp.m3u8"
	VideoSegmentsDirName = "video_segments"
	AudioSegmentsDirName = "audio_segments"
)

// WorkDir is the scratch directory for one video: {outputRoot}/{videoID}.
type WorkDir struct {
	Root string
}

func NewWorkDir(outputRoot, videoID string) (WorkDir, error) {
	id := strings.TrimSpace(videoID)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return WorkDir{}, fmt.Errorf("invalid video id for working directory: %q", videoID)
	}
	return WorkDir{Root: filepath.Join(outputRoot, id)}, nil
}

func (w WorkDir) KeyPath() string        { return filepath.Join(w.Root, KeyFileName) }
func (w WorkDir) VideoFetchPath() string { return filepath.Join(w.Root, VideoFetchName) }
func (w WorkDir) VideoPlayPath() string  { return filepath.Join(w.Root, VideoPlayName) }
func (w WorkDir) AudioFetchPath() string { return filepath.Join(w.Root, AudioFetchName) }
func (w WorkDir) AudioPlayPath() string  { return filepath.Join(w.Root, AudioPlayName) }
func (w WorkDir) VideoSegmentsDir() string {
	return filepath.Join(w.Root, VideoSegmentsDirName)
}
func (w WorkDir) AudioSegmentsDir() string {
	return filepath.Join(w.Root, AudioSegmentsDirName)
}

// Reset destroys any previous contents and recreates the layout.
func (w WorkDir) Reset() error {
	if err := w.Remove(); err != nil {
		return err
	}
	for _, dir := range []string{w.Root, w.VideoSegmentsDir(), w.AudioSegmentsDir()} {
		if err := Mkdir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (w WorkDir) Remove() error {
	if strings.TrimSpace(w.Root) == "" {
		return fmt.Errorf("working directory is not set")
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("remove working directory %s: %w", w.Root, err)
	}
	return nil
}
