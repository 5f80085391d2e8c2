package acquire

import (
	"path/filepath"
	"strconv"
	"time"

	"mstream-dl/internal/runstore"
)

// outputPath returns {stem}.mp4 in dir, or {stem}-{unix millis}.mp4 when that
// name is taken, bumping the suffix until nothing exists at the path.
func outputPath(dir, stem string, now func() time.Time) (string, error) {
	candidate := filepath.Join(dir, stem+".mp4")
	exists, err := runstore.Exists(candidate)
	if err != nil {
		return "", err
	}
	if !exists {
		return candidate, nil
	}
	ms := now().UnixMilli()
	for {
		candidate = filepath.Join(dir, stem+"-"+strconv.FormatInt(ms, 10)+".mp4")
		exists, err = runstore.Exists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		ms++
	}
}
