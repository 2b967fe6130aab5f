// Package ocr talks to the HTTP OCR engine.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// Response is the OCR engine's JSON body.
type Response struct {
	Text         string `json:"text"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Client uploads an image as multipart form data and returns the extracted text.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func New(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// ExtractText posts the image in the "file" field with the API key header.
func (c *Client) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="document"`)
	h.Set("Content-Type", contentType)
	fw, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(image); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e Response
		if json.Unmarshal(body, &e) == nil && e.ErrorMessage != "" {
			return "", fmt.Errorf("ocr error (%d): %s", resp.StatusCode, e.ErrorMessage)
		}
		return "", fmt.Errorf("ocr http error (%d)", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	// some engines report failures with a 200
	if out.ErrorMessage != "" {
		return "", errors.New(out.ErrorMessage)
	}
	return out.Text, nil
}
