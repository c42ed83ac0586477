// Package media classifies managed files and probes the details shown by
// `mrank show`: file size and times, embedded tags, and video stream
// properties when ffprobe is installed.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/franz/media-ranker/internal/util"
)

// Kind is the media class of a file
type Kind string

const (
	KindImage   Kind = "IMAGE"
	KindVideo   Kind = "VIDEO"
	KindUnknown Kind = "OTHER"
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".wmv": true, ".flv": true,
	".avi": true, ".m4v": true, ".webm": true,
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true,
	".tiff": true, ".tif": true, ".webp": true, ".heic": true,
}

// KindOf classifies a file name by extension
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case videoExts[ext]:
		return KindVideo
	case imageExts[ext]:
		return KindImage
	default:
		return KindUnknown
	}
}

// Tags holds the embedded tags of a tag-bearing container
type Tags struct {
	Format   string
	FileType string
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	Comment  string
}

// Info describes one file on disk
type Info struct {
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
	Tags    *Tags  // nil when the container carries no tags
	Video   *Video // nil unless ffprobe is available and the file is a video
}

// Probe stats path and reads whatever embedded metadata it carries.
// Missing tags are not an error.
func Probe(path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	info := &Info{
		Path:    path,
		Kind:    KindOf(path),
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
	}

	tags, err := ReadTags(path)
	if err != nil {
		return nil, err
	}
	info.Tags = tags

	if info.Kind == KindVideo && FFprobeAvailable() {
		video, err := ProbeVideo(path)
		if err == nil {
			info.Video = video
		}
	}

	return info, nil
}

// ReadTags reads embedded tags with dhowden/tag. Files the library does not
// recognise, or that carry no tags, yield nil without an error.
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			util.DebugLog("Unreadable tags in %s: %v", path, err)
		}
		return nil, nil
	}

	return &Tags{
		Format:   string(m.Format()),
		FileType: string(m.FileType()),
		Title:    m.Title(),
		Artist:   m.Artist(),
		Album:    m.Album(),
		Genre:    m.Genre(),
		Year:     m.Year(),
		Comment:  m.Comment(),
	}, nil
}
