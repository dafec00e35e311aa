package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/lane.driver/internal/drive"
	"github.com/banshee-data/lane.driver/internal/httputil"
)

// Client talks to a running driver the way the browser simulator does.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient creates a client for the driver at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

// Reset starts a new driving session.
func (c *Client) Reset(ctx context.Context) error {
	var status map[string]string
	if err := c.post(ctx, "/reset", nil, &status); err != nil {
		return err
	}
	if status["STATUS"] != "OK" {
		return fmt.Errorf("reset: unexpected status %q", status["STATUS"])
	}
	return nil
}

// Drive sends one encoded image and returns the driver's full command.
func (c *Client) Drive(ctx context.Context, encodedImage []byte) (drive.Command, error) {
	body := []byte(base64.StdEncoding.EncodeToString(encodedImage))

	var cmd drive.Command
	if err := c.post(ctx, "/drive", body, &cmd); err != nil {
		return drive.Command{}, err
	}
	if !cmd.Full() {
		return drive.Command{}, fmt.Errorf("drive: incomplete command %s", cmd)
	}
	return cmd, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %d: %s", path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", path, err)
	}
	return nil
}
