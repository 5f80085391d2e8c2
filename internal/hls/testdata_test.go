package hls

const masterFixture = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=720x480,CODECS="avc1.4d401e"
a.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080,CODECS="avc1.640028"
b.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=128000,CODECS="mp4a.40.2"
c.m3u8
`

const keyURIFixture = "https://keys.example.com/api/key?kid=42"

const mediaFixture = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-KEY:METHOD=AES-128,URI="https://keys.example.com/api/key?kid=42",IV=0x00000000000000000000000000000001
#EXTINF:6.000000,no-desc
Fragments(video=0,format=m3u8-aapl)
#EXTINF:6.000000,no-desc
Fragments(video=60000000,format=m3u8-aapl)
#EXTINF:3.500000,no-desc
Fragments(video=120000000,format=m3u8-aapl)
#EXT-X-ENDLIST
`
