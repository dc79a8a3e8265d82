package catalog

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// UnknownArtist labels local files without an artist tag.
const UnknownArtist = "Unknown Artist"

// supportedFormats are the containers the native audio backend decodes.
var supportedFormats = []string{".mp3", ".wav"}

// trackNamespace seeds the ids of local tracks, so a file keeps its id
// across scans and sessions.
var trackNamespace = uuid.MustParse("6f1c8e2a-3b7d-4c59-9a0e-5d2f41b7c8e3")

// TagScanner reads local audio files into internal audio tracks.
type TagScanner struct{}

// NewTagScanner creates a tag scanner.
func NewTagScanner() *TagScanner {
	return &TagScanner{}
}

// SupportedFormats returns the readable extensions.
func (s *TagScanner) SupportedFormats() []string {
	return slices.Clone(supportedFormats)
}

// ReadTrack builds a track from a file's tags. Files without tags fall back
// to the file name as title.
func (s *TagScanner) ReadTrack(path string) (domain.Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(supportedFormats, ext) {
		return domain.Track{}, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedFormat)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Track{}, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return domain.Track{}, err
	}
	defer file.Close()

	source := "file://" + filepath.ToSlash(abs)
	track := domain.Track{
		ID:        LocalTrackID(abs),
		Title:     strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Artist:    UnknownArtist,
		MediaType: domain.MediaAudio,
		Kind:      domain.SourceInternal,
		Sources:   map[domain.StreamQuality]string{domain.QualityHigh: source},
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		// Untagged files still play.
		return track, nil
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		track.Artist = artist
	} else if albumArtist := strings.TrimSpace(metadata.AlbumArtist()); albumArtist != "" {
		track.Artist = albumArtist
	}
	if picture := metadata.Picture(); picture != nil && len(picture.Data) > 0 {
		track.CoverURL = coverDataURL(picture)
	}

	return track, nil
}

// LocalTrackID derives a stable track id from an absolute path.
func LocalTrackID(absPath string) string {
	return "local-" + uuid.NewSHA1(trackNamespace, []byte(filepath.ToSlash(absPath))).String()
}

func coverDataURL(picture *tag.Picture) string {
	mime := picture.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(picture.Data)
}

var _ ports.LibraryScanner = (*TagScanner)(nil)
