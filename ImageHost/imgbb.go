package ImageHost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"TeleCare/Models"
)

// ImgBB uploads to the ImgBB API with a multipart form of key and image.
type ImgBB struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewImgBB(apiKey, endpoint string) *ImgBB {
	return &ImgBB{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type imgbbResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (u *ImgBB) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if u.apiKey == "" {
		return "", fmt.Errorf("imgbb: %w", Models.ErrNotConfigured)
	}
	if _, _, err := DetectType(data); err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("key", u.apiKey); err != nil {
		return "", err
	}
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}
	var out imgbbResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding upload response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || !out.Success || out.Data.URL == "" {
		msg := http.StatusText(res.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("image upload failed: %s", msg)
	}
	return out.Data.URL, nil
}
