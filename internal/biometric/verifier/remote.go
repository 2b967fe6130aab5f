package verifier

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
	"strconv"
	"time"

	"medbridge/internal/biometric/models"
)

// MatchResult is the face match service's verdict for one comparison.
type MatchResult struct {
	Confidence   float64 `json:"confidence"`
	IsSamePerson string  `json:"isSamePerson"`
}

// MatchResponse is the face match service's JSON body.
type MatchResponse struct {
	Total        MatchResult `json:"total"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// RemoteMatcher compares the live frame against the uploaded identity
// document using an HTTP face match service.
type RemoteMatcher struct {
	url       string
	apiKey    string
	threshold float64
	http      *http.Client
}

func NewRemoteMatcher(url, apiKey string, threshold float64, timeout time.Duration) *RemoteMatcher {
	return &RemoteMatcher{
		url:       url,
		apiKey:    apiKey,
		threshold: threshold,
		http:      &http.Client{Timeout: timeout},
	}
}

// Verify fails with models.ErrFaceMismatch when there is no reference image,
// when the service says the faces differ, or when confidence is below the
// threshold. Transport failures wrap models.ErrMatcherUnavailable.
func (m *RemoteMatcher) Verify(ctx context.Context, frame models.Frame, reference *models.Reference) error {
	if reference == nil || len(reference.Data) == 0 {
		return fmt.Errorf("%w: no identity document to compare against", models.ErrFaceMismatch)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writePart(w, "file0", "selfie", frame.ContentType, frame.Data); err != nil {
		return err
	}
	if err := writePart(w, "file1", "document", reference.ContentType, reference.Data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if m.apiKey != "" {
		req.Header.Set("apikey", m.apiKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrMatcherUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", models.ErrMatcherUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", models.ErrMatcherUnavailable, resp.StatusCode)
	}

	var out MatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrMatcherUnavailable, err)
	}
	if out.ErrorMessage != "" {
		return fmt.Errorf("%w: %s", models.ErrMatcherUnavailable, out.ErrorMessage)
	}

	same, _ := strconv.ParseBool(out.Total.IsSamePerson)
	if !same || out.Total.Confidence < m.threshold {
		return errors.Join(models.ErrFaceMismatch,
			fmt.Errorf("confidence %.2f below threshold %.2f", out.Total.Confidence, m.threshold))
	}
	return nil
}

func writePart(w *multipart.Writer, field, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
