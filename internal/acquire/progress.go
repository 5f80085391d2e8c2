package acquire

import (
	"io"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"mstream-dl/internal/tools"
)

const segmentDoneMarker = "Download complete:"

// segmentProgress counts finished segments from aria2c's notices.
type segmentProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newSegmentProgress(w io.Writer, label string, total int) *segmentProgress {
	bar := progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
	return &segmentProgress{bar: bar}
}

func (p *segmentProgress) Observe(_ tools.OutputStream, line string) {
	if !strings.Contains(line, segmentDoneMarker) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Add(1)
}

func (p *segmentProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}
