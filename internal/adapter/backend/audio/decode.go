package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/nuveplayer/nuve/internal/domain"
)

// maxRemoteSize bounds a remote source held in memory.
const maxRemoteSize = 64 << 20

// SupportedFormats lists the file extensions the backend decodes.
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

func (b *Backend) decode(ctx context.Context, rawURL string) (beep.StreamSeekCloser, beep.Format, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil, beep.Format{}, err
	}

	ext := strings.ToLower(path.Ext(u.Path))
	decoder, ok := decoders[ext]
	if !ok {
		return nil, beep.Format{}, fmt.Errorf("%q: %w", ext, domain.ErrUnsupportedFormat)
	}

	rc, err := b.open(ctx, u)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err := decoder(rc)
	if err != nil {
		_ = rc.Close()
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}

var decoders = map[string]func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error){
	".mp3": mp3.Decode,
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	".flac": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	},
}

// open returns a seekable reader of the source. Remote sources are read
// into memory.
func (b *Backend) open(ctx context.Context, u *neturl.URL) (io.ReadCloser, error) {
	switch u.Scheme {
	case "", "file":
		return os.Open(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("scheme %q: %w", u.Scheme, domain.ErrUnsupportedFormat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
	if err != nil {
		return nil, err
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
