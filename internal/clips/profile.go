package clips

import (
	"fmt"
	"strconv"
)

// Encoding profile for extracted clips. Speed is prioritized over quality:
// the clips feed automated visual analysis, not playback, so audio is
// dropped, the encoder runs its fastest preset at a fixed quality, and the
// bitrate is capped low.
const (
	clipEncoder = "libx264"
	clipPreset  = "ultrafast"
	clipCRF     = 30
	clipMaxrate = "1M"
	clipBufsize = "2M"
)

// BuildArgs returns the ffmpeg arguments to extract the sub-range
// [start, start+duration] of fullVideo into outPath. The range is clamped
// to totalDuration so every extracted clip lies within the recording.
// Exported for argument-level tests without an ffmpeg binary.
func BuildArgs(fullVideo string, start, duration, totalDuration float64, outPath string) []string {
	if start < 0 {
		start = 0
	}
	if totalDuration > 0 {
		if start > totalDuration {
			start = totalDuration
		}
		if start+duration > totalDuration {
			duration = totalDuration - start
		}
	}
	if duration < 0 {
		duration = 0
	}

	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", fullVideo,
		"-an",
		"-c:v", clipEncoder,
		"-preset", clipPreset,
		"-crf", strconv.Itoa(clipCRF),
		"-maxrate", clipMaxrate,
		"-bufsize", clipBufsize,
		"-movflags", "+faststart",
		outPath,
	}
}

// formatSeconds renders a seek offset the way ffmpeg expects, with
// millisecond precision and no exponent notation.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
