package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps the remote analysis API. Every JSON response uses the
// uniform {success, data, error} envelope; the raw video transfer is the
// one non-JSON request.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a client for baseURL. The video PUT gets a longer
// deadline than timeout since payloads run to hundreds of megabytes.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// CreateRecording creates the remote recording container and returns its id.
func (c *Client) CreateRecording(ctx context.Context, req CreateRecordingRequest) (string, error) {
	var data struct {
		RecordingID string `json:"recordingId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/recordings/upload-url", req, &data); err != nil {
		return "", err
	}
	if data.RecordingID == "" {
		return "", fmt.Errorf("analysis api: empty recording id")
	}
	return data.RecordingID, nil
}

// UploadVideo transfers the full raw video payload against a container.
func (c *Client) UploadVideo(ctx context.Context, recordingID string, video []byte) error {
	url := fmt.Sprintf("%s/recordings/%s/upload", c.baseURL, recordingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(video))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "video/webm")
	req.ContentLength = int64(len(video))

	// No per-request timeout here beyond the client's: large uploads are
	// expected to be slow.
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("analysis api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis api: video upload returned %d", resp.StatusCode)
	}
	return nil
}

// UploadClip pushes one clip's metadata and frame set, returning the clip id.
func (c *Client) UploadClip(ctx context.Context, recordingID string, req ClipUploadRequest) (string, error) {
	var data struct {
		ClipID string `json:"clipId"`
	}
	path := fmt.Sprintf("/recordings/%s/clips", recordingID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &data); err != nil {
		return "", err
	}
	return data.ClipID, nil
}

// CheckRecording reports whether the remote side already knows a match id.
func (c *Client) CheckRecording(ctx context.Context, matchID string) (bool, error) {
	var data struct {
		Exists bool `json:"exists"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/recordings/check/"+matchID, nil, &data); err != nil {
		return false, err
	}
	return data.Exists, nil
}

// GetAnalysisByMatch returns the analysis id for a match, or "" when none
// exists yet.
func (c *Client) GetAnalysisByMatch(ctx context.Context, matchID string) (string, error) {
	var data struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/analysis/match/"+matchID, nil, &data)
	if err != nil {
		return "", err
	}
	return data.ID, nil
}

// CreateAnalysis creates the analysis record and returns its id.
func (c *Client) CreateAnalysis(ctx context.Context, req AnalysisRequest) (string, error) {
	var data struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/analysis", req, &data); err != nil {
		return "", err
	}
	if data.ID == "" {
		return "", fmt.Errorf("analysis api: empty analysis id")
	}
	return data.ID, nil
}

// StartAnalysis triggers the remote analysis run.
func (c *Client) StartAnalysis(ctx context.Context, analysisID string) error {
	return c.doJSON(ctx, http.MethodPost, "/analysis/"+analysisID+"/start", nil, nil)
}

// Reanalyze triggers a fresh analysis of an existing record.
func (c *Client) Reanalyze(ctx context.Context, analysisID string) error {
	return c.doJSON(ctx, http.MethodPost, "/analysis/"+analysisID+"/reanalyze", nil, nil)
}

// doJSON performs a JSON request, unwraps the envelope, and decodes the
// data payload into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("analysis api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("analysis api: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis api: %s %s returned %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("analysis api: decode envelope: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("analysis api: %s", env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("analysis api: decode data: %w", err)
		}
	}
	return nil
}
