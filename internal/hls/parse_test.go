package hls

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMasterSplitsVideoAndAudio(t *testing.T) {
	master, err := ParseMaster(masterFixture)
	require.NoError(t, err)

	require.Len(t, master.Renditions, 2)
	assert.Equal(t, Rendition{Index: 0, Width: 720, Height: 480, URI: "a.m3u8"}, master.Renditions[0])
	assert.Equal(t, Rendition{Index: 1, Width: 1920, Height: 1080, URI: "b.m3u8"}, master.Renditions[1])
	assert.Equal(t, "c.m3u8", master.Audio.URI)
	assert.Equal(t, "1920x1080", master.Renditions[1].Label())
}

func TestParseMasterRequiresAudio(t *testing.T) {
	text := `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=720x480
a.m3u8
`
	_, err := ParseMaster(text)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Equal(t, KindMaster, parseErr.Kind)
	assert.Equal(t, "no audio rendition", parseErr.Reason)
}

func TestParseMasterRejectsMediaPlaylist(t *testing.T) {
	_, err := ParseMaster(mediaFixture)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
}

func TestParseMediaTakesKeyFromFirstSegment(t *testing.T) {
	track, err := ParseMedia(mediaFixture)
	require.NoError(t, err)

	assert.Equal(t, mediaFixture, track.Text)
	assert.Equal(t, KeyReference{Method: "AES-128", URI: keyURIFixture}, track.Key)
	require.Len(t, track.Segments, 3)
	assert.Equal(t, "Fragments(video=0,format=m3u8-aapl)", track.Segments[0].URI)
}

func TestParseMediaRejectsInconsistentKeys(t *testing.T) {
	text := strings.Replace(mediaFixture,
		"#EXTINF:3.500000,no-desc\n",
		"#EXT-X-KEY:METHOD=AES-128,URI=\"https://keys.example.com/api/key?kid=43\"\n#EXTINF:3.500000,no-desc\n", 1)

	_, err := ParseMedia(text)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Equal(t, KindMedia, parseErr.Kind)
	assert.Contains(t, parseErr.Reason, "segment 2")
}

func TestParseMediaRequiresKey(t *testing.T) {
	text := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.000000,
seg0.ts
#EXT-X-ENDLIST
`
	_, err := ParseMedia(text)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Contains(t, parseErr.Reason, "no encryption key")
}

func TestBaseURLAndResolve(t *testing.T) {
	base := BaseURL("https://cdn.example.com/v1/abc.ism/manifest(format=m3u8-aapl)?token=x/y")
	assert.Equal(t, "https://cdn.example.com/v1/abc.ism/", base)
	assert.Equal(t, base+"b.m3u8", ResolveURI(base, "b.m3u8"))
	assert.Equal(t, "https://other.example.com/x.m3u8", ResolveURI(base, "https://other.example.com/x.m3u8"))
}
