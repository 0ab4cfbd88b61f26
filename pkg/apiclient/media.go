package apiclient

import "context"

// TrimRequest cuts a window out of an uploaded file. StartTime and
// Duration use ffmpeg time syntax ("5", "00:00:05", "5.5").
type TrimRequest struct {
	FileName   string `json:"fileName"`
	StartTime  string `json:"start_time"`
	Duration   string `json:"duration"`
	OutputFile string `json:"outputFile"`
}

// TrimVideo cuts a segment out of a published file on the server.
// A 503 APIError means the server runs without media processing.
func (c *Client) TrimVideo(ctx context.Context, req TrimRequest) error {
	return c.postJSON(ctx, "/api/video/trim", req, nil)
}

// JoinVideos concatenates previously published files, in order, into
// outputFile on the server.
func (c *Client) JoinVideos(ctx context.Context, parts []string, outputFile string) error {
	req := struct {
		Parts      []string `json:"parts"`
		OutputFile string   `json:"outputFile"`
	}{Parts: parts, OutputFile: outputFile}

	return c.postJSON(ctx, "/api/video/join", req, nil)
}
