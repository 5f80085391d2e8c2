package console

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Logger is the user-facing output of a download run.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Successf(format string, v ...any)
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Styled writes colored lines for a terminal.
type Styled struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

func NewStyled(out io.Writer, debug bool) *Styled {
	return &Styled{out: out, debug: debug}
}

func (l *Styled) Debugf(format string, v ...any) {
	if !l.debug {
		return
	}
	l.write(debugStyle, format, v...)
}

func (l *Styled) Infof(format string, v ...any) {
	l.write(lipgloss.NewStyle(), format, v...)
}

func (l *Styled) Warnf(format string, v ...any) {
	l.write(warnStyle, format, v...)
}

func (l *Styled) Errorf(format string, v ...any) {
	l.write(errorStyle, format, v...)
}

func (l *Styled) Successf(format string, v ...any) {
	l.write(successStyle, format, v...)
}

func (l *Styled) write(style lipgloss.Style, format string, v ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.out, style.Render(msg))
}

// JSON emits one slog record per message.
type JSON struct {
	*slog.Logger
}

func NewJSON(out io.Writer, level string) *JSON {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &JSON{slog.New(handler)}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *JSON) Debugf(format string, v ...any) {
	l.Debug(fmt.Sprintf(format, v...))
}

func (l *JSON) Infof(format string, v ...any) {
	l.Info(fmt.Sprintf(format, v...))
}

func (l *JSON) Warnf(format string, v ...any) {
	l.Warn(fmt.Sprintf(format, v...))
}

func (l *JSON) Errorf(format string, v ...any) {
	l.Error(fmt.Sprintf(format, v...))
}

func (l *JSON) Successf(format string, v ...any) {
	l.Info(fmt.Sprintf(format, v...), slog.Bool("success", true))
}

// Discard drops everything.
type Discard struct{}

func (Discard) Debugf(string, ...any)   {}
func (Discard) Infof(string, ...any)    {}
func (Discard) Warnf(string, ...any)    {}
func (Discard) Errorf(string, ...any)   {}
func (Discard) Successf(string, ...any) {}
