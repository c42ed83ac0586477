package media

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/franz/media-ranker/internal/util"
)

// FFprobeInfo represents the output from ffprobe
type FFprobeInfo struct {
	Streams []FFprobeStream `json:"streams"`
	Format  *FFprobeFormat  `json:"format"`
}

// FFprobeStream represents one stream of a container
type FFprobeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
	BitRate   string `json:"bit_rate"`
}

// FFprobeFormat represents container format metadata
type FFprobeFormat struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// Video holds the properties of the first video stream
type Video struct {
	Codec    string
	Width    int
	Height   int
	Duration time.Duration
	Format   string
}

// FFprobeAvailable checks if ffprobe is available in PATH
func FFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// RunFFprobe executes ffprobe and parses the JSON output
func RunFFprobe(path string) (*FFprobeInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, util.ErrNotFound
	}

	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseFFprobe(output)
}

func parseFFprobe(output []byte) (*FFprobeInfo, error) {
	var info FFprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &info, nil
}

// ProbeVideo returns the first video stream of path
func ProbeVideo(path string) (*Video, error) {
	info, err := RunFFprobe(path)
	if err != nil {
		return nil, err
	}
	return videoFrom(info)
}

func videoFrom(info *FFprobeInfo) (*Video, error) {
	for _, s := range info.Streams {
		if s.CodecType != "video" {
			continue
		}
		v := &Video{
			Codec:    s.CodecName,
			Width:    s.Width,
			Height:   s.Height,
			Duration: parseSeconds(s.Duration),
		}
		if info.Format != nil {
			v.Format = info.Format.FormatName
			if v.Duration == 0 {
				v.Duration = parseSeconds(info.Format.Duration)
			}
		}
		return v, nil
	}
	return nil, fmt.Errorf("no video stream: %w", util.ErrNotFound)
}

// parseSeconds parses ffprobe's decimal seconds ("12.345000"); "N/A" and
// malformed values give zero
func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
