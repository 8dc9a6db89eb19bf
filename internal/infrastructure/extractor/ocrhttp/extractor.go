package ocrhttp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Extractor sends staged images to an external OCR service and returns
// the recognized text. The service contract is a single JSON endpoint,
// which keeps the heavy recognition dependency out of this process.
type Extractor struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Extractor {
	return &Extractor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type ocrRequest struct {
	Filename string `json:"filename"`
	Image    string `json:"image"`
	Language string `json:"language"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image file: %w", err)
	}

	body, err := json.Marshal(ocrRequest{
		Filename: filepath.Base(path),
		Image:    base64.StdEncoding.EncodeToString(raw),
		Language: "spa",
	})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return "", fmt.Errorf("ocr status: %s: %s", resp.Status, msg)
		}
		return "", fmt.Errorf("ocr status: %s", resp.Status)
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}
