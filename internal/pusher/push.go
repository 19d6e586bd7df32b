package pusher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrTargetNotFound = errors.New("target not found")
	ErrQueueFull      = errors.New("target queue full")
)

// Receipt is the hub's acknowledgement that a file was queued.
// It does not mean the target has received it.
type Receipt struct {
	ID       uuid.UUID `json:"id"`
	Target   string    `json:"target"`
	Filename string    `json:"filename"`
	Size     int       `json:"size"`
	QueuedAt time.Time `json:"queued_at"`
}

// Push uploads the file at path to target, using its base name.
func (c *Client) Push(ctx context.Context, target, path string) (Receipt, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("read %s: %w", path, err)
	}
	return c.PushBytes(ctx, target, filepath.Base(path), payload)
}

// PushBytes uploads payload to target under filename.
func (c *Client) PushBytes(ctx context.Context, target, filename string, payload []byte) (Receipt, error) {
	body, contentType, err := buildUpload(target, filename, payload)
	if err != nil {
		return Receipt{}, err
	}

	respBody, err := c.doWithRetry(ctx, http.MethodPost, "/upload", body, contentType)
	if err != nil {
		return Receipt{}, classify(err, target)
	}

	var receipt Receipt
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("unmarshal receipt: %w", err)
	}

	c.logger.Info("file pushed",
		"target", target,
		"filename", filename,
		"bytes", receipt.Size,
		"delivery_id", receipt.ID,
	)
	return receipt, nil
}

// Clients returns the identities currently online at the hub.
func (c *Client) Clients(ctx context.Context) ([]string, error) {
	respBody, err := c.doWithRetry(ctx, http.MethodGet, "/clients", nil, "")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Count   int      `json:"count"`
		Clients []string `json:"clients"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal clients: %w", err)
	}
	if resp.Clients == nil {
		resp.Clients = []string{}
	}
	return resp.Clients, nil
}

func buildUpload(target, filename string, payload []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("target", target); err != nil {
		return nil, "", fmt.Errorf("write target field: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// classify maps hub statuses onto sentinel errors, keeping the APIError.
func classify(err error, target string) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %q: %w", ErrTargetNotFound, target, err)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %q: %w", ErrQueueFull, target, err)
	}
	return err
}
