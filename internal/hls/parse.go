package hls

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

const (
	KindMaster = "master"
	KindMedia  = "media"
)

// ParseError reports a manifest that cannot drive a download.
type ParseError struct {
	Kind   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s manifest: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s manifest: %s", e.Kind, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Rendition is a video variant carrying a RESOLUTION attribute.
type Rendition struct {
	Index  int
	Width  int
	Height int
	URI    string
}

func (r Rendition) Label() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

type AudioRendition struct {
	URI string
}

type MasterManifest struct {
	Renditions []Rendition
	Audio      AudioRendition
}

type Segment struct {
	URI string
}

type KeyReference struct {
	Method string
	URI    string
}

// TrackManifest is a media playlist plus its verbatim text, kept for rewriting.
type TrackManifest struct {
	Text     string
	Segments []Segment
	Key      KeyReference
}

// ParseMaster lists video renditions in manifest order. The first variant
// without a RESOLUTION is the audio track; an audio EXT-X-MEDIA rendition is
// used when no such variant exists.
func ParseMaster(text string) (MasterManifest, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return MasterManifest{}, &ParseError{Kind: KindMaster, Reason: "decode failed", Err: err}
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if listType != m3u8.MASTER || !ok {
		return MasterManifest{}, &ParseError{Kind: KindMaster, Reason: "expected master playlist but got media playlist"}
	}

	out := MasterManifest{}
	var alternativeAudio string
	for _, variant := range master.Variants {
		if variant == nil {
			continue
		}
		if strings.TrimSpace(variant.Resolution) == "" {
			if out.Audio.URI == "" {
				out.Audio.URI = variant.URI
			}
			continue
		}
		width, height, err := parseResolution(variant.Resolution)
		if err != nil {
			return MasterManifest{}, &ParseError{Kind: KindMaster, Reason: "invalid resolution", Err: err}
		}
		out.Renditions = append(out.Renditions, Rendition{
			Index:  len(out.Renditions),
			Width:  width,
			Height: height,
			URI:    variant.URI,
		})
		if alternativeAudio == "" {
			alternativeAudio = audioAlternative(variant.Alternatives)
		}
	}
	if out.Audio.URI == "" {
		out.Audio.URI = alternativeAudio
	}

	if len(out.Renditions) == 0 {
		return MasterManifest{}, &ParseError{Kind: KindMaster, Reason: "no video renditions"}
	}
	if out.Audio.URI == "" {
		return MasterManifest{}, &ParseError{Kind: KindMaster, Reason: "no audio rendition"}
	}
	return out, nil
}

// ParseMedia extracts segment URIs and the encryption key. Every segment must
// be encrypted with the same key URI.
func ParseMedia(text string) (TrackManifest, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return TrackManifest{}, &ParseError{Kind: KindMedia, Reason: "decode failed", Err: err}
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if listType != m3u8.MEDIA || !ok {
		return TrackManifest{}, &ParseError{Kind: KindMedia, Reason: "expected media playlist but got master playlist"}
	}

	out := TrackManifest{Text: text}
	current := media.Key
	for i, seg := range media.Segments {
		if seg == nil {
			break
		}
		if seg.Key != nil {
			current = seg.Key
		}
		if current == nil || strings.TrimSpace(current.URI) == "" {
			return TrackManifest{}, &ParseError{Kind: KindMedia, Reason: fmt.Sprintf("segment %d has no encryption key", i)}
		}
		if i == 0 {
			out.Key = KeyReference{Method: current.Method, URI: current.URI}
		} else if current.URI != out.Key.URI {
			return TrackManifest{}, &ParseError{Kind: KindMedia, Reason: fmt.Sprintf("segment %d uses key %q, expected %q", i, current.URI, out.Key.URI)}
		}
		out.Segments = append(out.Segments, Segment{URI: seg.URI})
	}
	if len(out.Segments) == 0 {
		return TrackManifest{}, &ParseError{Kind: KindMedia, Reason: "no segments"}
	}
	return out, nil
}

func parseResolution(raw string) (int, int, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(raw), "x")
	if !ok {
		return 0, 0, fmt.Errorf("resolution %q is not WIDTHxHEIGHT", raw)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("resolution width %q: %w", raw, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("resolution height %q: %w", raw, err)
	}
	return width, height, nil
}

func audioAlternative(alts []*m3u8.Alternative) string {
	for _, alt := range alts {
		if alt != nil && strings.EqualFold(alt.Type, "AUDIO") && alt.URI != "" {
			return alt.URI
		}
	}
	return ""
}

// BaseURL returns everything up to and including the last "/" of a manifest URL.
func BaseURL(manifestURL string) string {
	path := manifestURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path[:strings.LastIndex(path, "/")+1]
}

// ResolveURI joins a manifest-relative reference onto base by concatenation.
func ResolveURI(base, uri string) string {
	if isAbsoluteURI(uri) {
		return uri
	}
	return base + uri
}
