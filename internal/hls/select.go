package hls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Chooser asks the user for a rendition. It must return an index in [0, len(labels)-1].
type Chooser interface {
	Choose(ctx context.Context, labels []string) (int, error)
}

type Selection struct {
	Index   int
	Video   Rendition
	Audio   AudioRendition
	Clamped bool
}

type SelectionError struct {
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("select rendition: %s: %v", e.Reason, e.Err)
	}
	return "select rendition: " + e.Reason
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// Select picks the preferred rendition, clamping an out-of-range index to the
// last (best) one. With no preference the chooser decides.
func Select(ctx context.Context, master MasterManifest, preferred *int, chooser Chooser) (Selection, error) {
	n := len(master.Renditions)
	if n == 0 {
		return Selection{}, &SelectionError{Reason: "no renditions"}
	}

	pick := func(i int, clamped bool) Selection {
		return Selection{Index: i, Video: master.Renditions[i], Audio: master.Audio, Clamped: clamped}
	}

	if preferred != nil {
		if *preferred < 0 || *preferred > n-1 {
			return pick(n-1, true), nil
		}
		return pick(*preferred, false), nil
	}

	if chooser == nil {
		return Selection{}, &SelectionError{Reason: "no quality given and no interactive chooser available"}
	}
	labels := make([]string, n)
	for i, r := range master.Renditions {
		labels[i] = r.Label()
	}
	choice, err := chooser.Choose(ctx, labels)
	if err != nil {
		return Selection{}, &SelectionError{Reason: "chooser failed", Err: err}
	}
	if choice < 0 || choice > n-1 {
		return Selection{}, &SelectionError{Reason: fmt.Sprintf("chooser returned %d outside 0-%d", choice, n-1)}
	}
	return pick(choice, false), nil
}

var ErrNoChoice = errors.New("no rendition chosen")

// LineChooser prompts on Out and reads one answer per line from In until it gets
// a valid index.
type LineChooser struct {
	In  io.Reader
	Out io.Writer
}

func (c LineChooser) Choose(ctx context.Context, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, ErrNoChoice
	}
	var menu strings.Builder
	menu.WriteString("\n")
	for i, label := range labels {
		fmt.Fprintf(&menu, "[%d] %s\n", i, label)
	}
	_, _ = io.WriteString(c.Out, menu.String())

	scanner := bufio.NewScanner(c.In)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		_, _ = io.WriteString(c.Out, "Choose the desired resolution: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("read choice: %w", err)
			}
			return 0, ErrNoChoice
		}
		if i, ok := ParseChoice(scanner.Text(), len(labels)); ok {
			return i, nil
		}
		fmt.Fprintf(c.Out, "Wrong choice, enter a number between 0 and %d.\n", len(labels)-1)
	}
}

// ParseChoice accepts a decimal index in [0, n-1].
func ParseChoice(raw string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || i < 0 || i > n-1 {
		return 0, false
	}
	return i, true
}
