package acquire

import (
	"context"
	"errors"

	"mstream-dl/internal/hls"
	"mstream-dl/internal/stream"
	"mstream-dl/internal/tools"
)

const (
	ReasonUnauthorized   = "unauthorized"
	ReasonForbidden      = "forbidden"
	ReasonInvalidURL     = "invalid_url"
	ReasonNoHLSPlayback  = "no_hls_playback"
	ReasonFetchError     = "fetch_error"
	ReasonParseError     = "parse_error"
	ReasonSelectionError = "selection_error"
	ReasonRewriteError   = "rewrite_error"
	ReasonDownloadError  = "download_error"
	ReasonRemuxError     = "remux_error"
	ReasonCanceled       = "canceled"
	ReasonIOError        = "io_error"
)

var errInvalidVideoURL = errors.New("invalid video url")

func abortReason(err error) string {
	var (
		authErr    *stream.AuthorizationError
		fetchErr   *stream.FetchError
		parseErr   *hls.ParseError
		selectErr  *hls.SelectionError
		rewriteErr *hls.RewriteError
		dlErr      *tools.DownloadError
		remuxErr   *tools.RemuxError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case errors.As(err, &authErr):
		if authErr.Forbidden() {
			return ReasonForbidden
		}
		return ReasonUnauthorized
	case errors.Is(err, errInvalidVideoURL):
		return ReasonInvalidURL
	case errors.Is(err, stream.ErrNoHLSPlayback):
		return ReasonNoHLSPlayback
	case errors.As(err, &fetchErr):
		return ReasonFetchError
	case errors.As(err, &parseErr):
		return ReasonParseError
	case errors.As(err, &selectErr):
		return ReasonSelectionError
	case errors.As(err, &rewriteErr):
		return ReasonRewriteError
	case errors.As(err, &dlErr):
		return ReasonDownloadError
	case errors.As(err, &remuxErr):
		return ReasonRemuxError
	default:
		return ReasonIOError
	}
}
