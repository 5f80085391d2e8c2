package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"mstream-dl/internal/model"
	"mstream-dl/internal/session"
)

const (
	hlsMimeType  = "application/vnd.apple.mpegurl"
	videoIDLen   = 36
	videoPathSeg = "/video/"
)

var ErrNoHLSPlayback = errors.New("video has no HLS playback url")

// AuthorizationError is returned when the API answers with an error object.
type AuthorizationError struct {
	VideoID string
	Code    string
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Forbidden() {
		return "You are not authorized to access this video."
	}
	if e.Code != "" {
		return fmt.Sprintf("error downloading video %s: %s", e.VideoID, e.Code)
	}
	return fmt.Sprintf("error downloading video %s", e.VideoID)
}

func (e *AuthorizationError) Forbidden() bool {
	return e.Code == "Forbidden"
}

type videoResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	PublishedDate *string        `json:"publishedDate"`
	PlaybackURLs  []playbackURL  `json:"playbackUrls"`
	Error         *responseError `json:"error"`
}

type playbackURL struct {
	MimeType    string `json:"mimeType"`
	PlaybackURL string `json:"playbackUrl"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VideoIDFromURL returns the 36 characters following "/video/".
func VideoIDFromURL(videoURL string) (string, error) {
	idx := strings.Index(videoURL, videoPathSeg)
	if idx < 0 {
		return "", fmt.Errorf("not a video url (missing %q): %s", videoPathSeg, videoURL)
	}
	rest := videoURL[idx+len(videoPathSeg):]
	if len(rest) < videoIDLen {
		return "", fmt.Errorf("video id too short in url: %s", videoURL)
	}
	return rest[:videoIDLen], nil
}

func (c *Client) VideoURL(videoID string) string {
	return c.APIBase + "/api/videos/" + url.PathEscape(videoID) + "?api-version=1.0-private"
}

func (c *Client) GetVideo(ctx context.Context, videoID string, cred session.Credential) (model.VideoMetadata, error) {
	body, err := c.Fetch(ctx, c.VideoURL(videoID), cred)
	if err != nil {
		return model.VideoMetadata{}, err
	}
	return decodeVideo(videoID, body)
}

func decodeVideo(videoID string, body []byte) (model.VideoMetadata, error) {
	var resp videoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.VideoMetadata{}, fmt.Errorf("parse video metadata for %s: %w", videoID, err)
	}
	if resp.Error != nil {
		return model.VideoMetadata{}, &AuthorizationError{VideoID: videoID, Code: resp.Error.Code, Message: resp.Error.Message}
	}

	meta := model.VideoMetadata{
		ID:    firstNonEmpty(resp.ID, videoID),
		Title: strings.TrimSpace(resp.Name),
	}
	// An unreadable date only costs the file name prefix.
	if resp.PublishedDate != nil {
		if published, err := time.Parse(time.RFC3339, strings.TrimSpace(*resp.PublishedDate)); err == nil {
			meta.PublishedDate = &published
		}
	}

	hlsURL, err := hlsManifestURL(resp.PlaybackURLs)
	if err != nil {
		return model.VideoMetadata{}, fmt.Errorf("video %s: %w", videoID, err)
	}
	meta.HLSManifestURL = hlsURL
	return meta, nil
}

func hlsManifestURL(entries []playbackURL) (string, error) {
	for _, entry := range entries {
		if entry.MimeType != hlsMimeType {
			continue
		}
		u, err := url.Parse(entry.PlaybackURL)
		if err != nil {
			return "", fmt.Errorf("parse playback url: %w", err)
		}
		manifest := u.Query().Get("playbackurl")
		if manifest == "" {
			return "", ErrNoHLSPlayback
		}
		return manifest, nil
	}
	return "", ErrNoHLSPlayback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
