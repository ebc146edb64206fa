package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"classic-jersey-studio/internal/media"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the generateContent REST endpoint directly.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// GenerateImage sends one multi-part request to the image model.
func (c *Client) GenerateImage(ctx context.Context, parts []Part, opts ImageOptions) (Response, error) {
	if len(parts) == 0 {
		return Response{}, errors.New("no prompt parts")
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: toWireParts(parts)}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if opts.AspectRatio != "" {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: opts.AspectRatio}
	}

	start := time.Now()
	resp, err := c.generateContent(ctx, c.model, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil {
		if isUnknownFieldError(err, "imageConfig") {
			c.logger.Warn("imageConfig rejected, retrying without aspect ratio", "model", c.model)
			req.GenerationConfig.ImageConfig = nil
			resp, err = c.generateContent(ctx, c.model, req)
		}
	}
	if err != nil {
		return Response{}, err
	}

	c.logger.Info("gemini image generated", "model", c.model, "images", len(resp.Images), "dur_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func toWireParts(parts []Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, part{InlineData: &blob{
				Data:     p.Image.Base64(),
				MimeType: p.Image.MimeType,
			}})
			continue
		}
		if strings.TrimSpace(p.Text) != "" {
			out = append(out, part{Text: p.Text})
		}
	}
	return out
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (Response, error) {
	if c.httpClient == nil {
		return Response{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	return extractParts(decoded, c.logger), nil
}

func extractParts(resp generateContentResponse, logger *slog.Logger) Response {
	if len(resp.Candidates) == 0 {
		return Response{}
	}

	var textBuilder strings.Builder
	var images []media.Image

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			logger.Warn("skipping undecodable inline image", "err", err)
			continue
		}
		images = append(images, media.Image{
			MimeType: media.DetectMimeType(p.InlineData.MimeType, data),
			Data:     data,
		})
	}

	return Response{Text: textBuilder.String(), Images: images}
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
