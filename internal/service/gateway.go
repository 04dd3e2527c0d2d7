package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type ImageResult struct {
	InputSketchURL    string `json:"input_sketch_url"`
	GeneratedImageURL string `json:"generated_image_url"`
}

type ModelResult struct {
	GeneratedModelURL string `json:"generated_model_url"`
}

// Gateway is the external AI service turning sketches into images and
// images into 3D models
type Gateway interface {
	GenerateImage(ctx context.Context, filename string, sketch io.Reader) (*ImageResult, error)
	GenerateModel(ctx context.Context, filename string, image io.Reader) (*ModelResult, error)
}

type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (g *HTTPGateway) GenerateImage(ctx context.Context, filename string, sketch io.Reader) (*ImageResult, error) {
	var res ImageResult
	if err := g.post(ctx, "/generate", filename, sketch, &res); err != nil {
		return nil, err
	}

	if res.GeneratedImageURL == "" {
		return nil, fmt.Errorf("%w, gateway returned no image", ErrUpstream)
	}

	return &res, nil
}

func (g *HTTPGateway) GenerateModel(ctx context.Context, filename string, image io.Reader) (*ModelResult, error) {
	var res ModelResult
	if err := g.post(ctx, "/generate-model", filename, image, &res); err != nil {
		return nil, err
	}

	if res.GeneratedModelURL == "" {
		return nil, fmt.Errorf("%w, gateway returned no model", ErrUpstream)
	}

	return &res, nil
}

// post sends f as the multipart field "file" and decodes the JSON reply into out
func (g *HTTPGateway) post(ctx context.Context, path, filename string, f io.Reader, out any) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file, %w", err)
	}

	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy upload, %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body, %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create gateway request, %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w, %w", ErrUpstreamTimeout, err)
		}

		return fmt.Errorf("%w, %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w, gateway %s returned %d: %s", ErrUpstream, path, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w, %w", ErrUpstreamTimeout, err)
		}

		return fmt.Errorf("%w, failed to decode gateway response: %w", ErrUpstream, err)
	}

	return nil
}
