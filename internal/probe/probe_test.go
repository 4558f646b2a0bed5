package probe

import (
	"testing"
)

// Realistic ffprobe JSON for a WebM screen recording with:
//   - 1 VP9 video stream (1920x1080, 30fps)
//   - 1 attached pic (should be skipped as primary video)
const sampleRecording = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "width": 600,
      "height": 900,
      "disposition": { "default": 0, "attached_pic": 1 }
    },
    {
      "index": 1,
      "codec_name": "vp9",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30/1",
      "disposition": { "default": 1, "attached_pic": 0 }
    },
    {
      "index": 2,
      "codec_name": "opus",
      "codec_type": "audio",
      "channels": 2,
      "disposition": { "default": 1 }
    }
  ],
  "format": {
    "filename": "/recordings/01JB5QAH.webm",
    "format_name": "matroska,webm",
    "duration": "1205.480000",
    "size": "734003200",
    "bit_rate": "4870000"
  }
}`

func TestParseJSON_Recording(t *testing.T) {
	res, err := ParseJSON([]byte(sampleRecording))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	if res.Video == nil {
		t.Fatal("Video is nil, want the vp9 stream")
	}
	if res.Video.Index != 1 || res.Video.Codec != "vp9" {
		t.Errorf("Video = index %d codec %q, want index 1 vp9 (attached pic skipped)",
			res.Video.Index, res.Video.Codec)
	}
	if got := res.Resolution(); got != "1920x1080" {
		t.Errorf("Resolution() = %q, want 1920x1080", got)
	}
	if res.Format.Duration != 1205.48 {
		t.Errorf("Duration = %v, want 1205.48", res.Format.Duration)
	}
	if res.Format.Size != 734003200 {
		t.Errorf("Size = %d, want 734003200", res.Format.Size)
	}
}

func TestParseJSON_NoVideo(t *testing.T) {
	res, err := ParseJSON([]byte(`{"streams": [], "format": {"duration": "3.2"}}`))
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if res.Video != nil {
		t.Error("Video should be nil for a streamless container")
	}
	if got := res.Resolution(); got != "unknown" {
		t.Errorf("Resolution() = %q, want unknown", got)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	if _, err := ParseJSON([]byte("not json")); err == nil {
		t.Error("ParseJSON should fail on invalid input")
	}
}
