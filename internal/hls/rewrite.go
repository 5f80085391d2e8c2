package hls

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

const keyTagPrefix = "#EXT-X-KEY:"

// RewrittenPair holds the manifest handed to the downloader (Fetch) and the
// one handed to the remuxer (Play).
type RewrittenPair struct {
	Fetch string
	Play  string
}

type RewriteError struct {
	KeyURI string
	Reason string
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite manifest: %s (key uri %q)", e.Reason, e.KeyURI)
}

// Rewrite relocates segment references and the key URI line by line. Tags,
// comments and blank lines are copied untouched.
//
// Fetch: relative segment URIs become baseURL+uri.
// Play: the EXT-X-KEY URI equal to keyURI points at localKeyPath and segment
// URIs point at segmentDir/<file name>.
func Rewrite(text, keyURI, localKeyPath, baseURL, segmentDir string) (RewrittenPair, error) {
	if keyURI == "" {
		return RewrittenPair{}, &RewriteError{Reason: "empty key uri"}
	}
	localKey := FileURL(localKeyPath)
	segmentDir = strings.TrimRight(segmentDir, "/")

	lines := strings.Split(text, "\n")
	fetch := make([]string, len(lines))
	play := make([]string, len(lines))
	keyFound := false

	for i, line := range lines {
		body, eol := splitEOL(line)
		trimmed := strings.TrimSpace(body)
		switch {
		case trimmed == "":
			fetch[i], play[i] = line, line
		case strings.HasPrefix(trimmed, keyTagPrefix):
			fetch[i] = line
			rewritten, ok := replaceKeyURI(body, keyURI, localKey)
			if ok {
				keyFound = true
			}
			play[i] = rewritten + eol
		case strings.HasPrefix(trimmed, "#"):
			fetch[i], play[i] = line, line
		default:
			fetch[i] = ResolveURI(baseURL, trimmed) + eol
			play[i] = segmentDir + "/" + segmentFileName(trimmed) + eol
		}
	}

	if !keyFound {
		return RewrittenPair{}, &RewriteError{KeyURI: keyURI, Reason: "no EXT-X-KEY carries the key uri"}
	}
	return RewrittenPair{
		Fetch: strings.Join(fetch, "\n"),
		Play:  strings.Join(play, "\n"),
	}, nil
}

// FileURL renders an absolute local path the way ffmpeg expects it in a key URI.
func FileURL(path string) string {
	return fileURL(runtime.GOOS, path)
}

func fileURL(goos, path string) string {
	if goos == "windows" {
		return "file:" + strings.ReplaceAll(path, `\`, "/")
	}
	return "file://" + filepath.ToSlash(path)
}

// replaceKeyURI swaps the quoted URI attribute of an EXT-X-KEY tag when it
// matches keyURI exactly.
func replaceKeyURI(tag, keyURI, replacement string) (string, bool) {
	const attr = `URI="`
	start := attributeStart(tag, attr)
	if start < 0 {
		return tag, false
	}
	valueStart := start + len(attr)
	end := strings.IndexByte(tag[valueStart:], '"')
	if end < 0 {
		return tag, false
	}
	if tag[valueStart:valueStart+end] != keyURI {
		return tag, false
	}
	return tag[:valueStart] + replacement + tag[valueStart+end:], true
}

// attributeStart finds attr at an attribute boundary so KEYFORMATURI="..." style
// names do not match.
func attributeStart(tag, attr string) int {
	offset := 0
	for {
		i := strings.Index(tag[offset:], attr)
		if i < 0 {
			return -1
		}
		pos := offset + i
		if pos > 0 {
			prev := tag[pos-1]
			if prev == ':' || prev == ',' || prev == ' ' {
				return pos
			}
		}
		offset = pos + len(attr)
	}
}

func splitEOL(line string) (string, string) {
	if strings.HasSuffix(line, "\r") {
		return line[:len(line)-1], "\r"
	}
	return line, ""
}

// segmentFileName is the name aria2c saves a segment under: the last path
// element without query or fragment.
func segmentFileName(uri string) string {
	name := uri
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func isAbsoluteURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
