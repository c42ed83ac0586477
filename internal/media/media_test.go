package media

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"a.jpg", KindImage},
		{"dir/B.JPEG", KindImage},
		{"shot.png", KindImage},
		{"clip.MP4", KindVideo},
		{"movie.mkv", KindVideo},
		{"Q506_clip.mov", KindVideo},
		{"notes.txt", KindUnknown},
		{"noext", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.name); got != tt.want {
				t.Errorf("KindOf(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestProbe_PlainImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	// JPEG SOI marker followed by junk: no tag format dhowden/tag knows
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Kind != KindImage {
		t.Errorf("expected IMAGE, got %s", info.Kind)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), info.Size)
	}
	if info.Tags != nil {
		t.Errorf("expected no tags, got %+v", info.Tags)
	}
	if time.Since(info.ModTime) > time.Minute {
		t.Errorf("unexpected mod time %v", info.ModTime)
	}
}

func TestProbe_Missing(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "gone.jpg")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestVideoFrom(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"index": 0, "codec_name": "aac", "codec_type": "audio", "duration": "12.5"},
			{"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "duration": "N/A"}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.500000"}
	}`)

	info, err := parseFFprobe(output)
	if err != nil {
		t.Fatalf("parseFFprobe failed: %v", err)
	}
	v, err := videoFrom(info)
	if err != nil {
		t.Fatalf("videoFrom failed: %v", err)
	}

	if v.Codec != "h264" || v.Width != 1920 || v.Height != 1080 {
		t.Errorf("unexpected stream: %+v", v)
	}
	if v.Duration != 12500*time.Millisecond {
		t.Errorf("expected 12.5s from the container, got %v", v.Duration)
	}
}

func TestVideoFrom_NoVideoStream(t *testing.T) {
	info := &FFprobeInfo{Streams: []FFprobeStream{{CodecType: "audio"}}}
	if _, err := videoFrom(info); err == nil {
		t.Error("expected an error without a video stream")
	}
}
