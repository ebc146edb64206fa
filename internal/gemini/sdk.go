package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"classic-jersey-studio/internal/media"
)

// SDKClient is the google.golang.org/genai backed generator.
type SDKClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewSDK(ctx context.Context, opts Options) (*SDKClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions.BaseURL = strings.TrimRight(base, "/") + "/"
	}
	if v := strings.TrimSpace(opts.APIVersion); v != "" {
		cfg.HTTPOptions.APIVersion = v
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SDKClient{client: client, model: model, logger: logger}, nil
}

func (c *SDKClient) GenerateImage(ctx context.Context, parts []Part, opts ImageOptions) (Response, error) {
	sdkParts := toSDKParts(parts)
	if len(sdkParts) == 0 {
		return Response{}, errors.New("no prompt parts")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if opts.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio}
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(sdkParts, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return Response{}, fmt.Errorf("genai generate: %w", err)
	}

	out := fromSDKResponse(resp)
	c.logger.Info("gemini image generated", "backend", BackendSDK, "model", c.model, "images", len(out.Images), "dur_ms", time.Since(start).Milliseconds())
	return out, nil
}

func toSDKParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				Data:     p.Image.Data,
				MIMEType: p.Image.MimeType,
			}})
			continue
		}
		if strings.TrimSpace(p.Text) != "" {
			out = append(out, &genai.Part{Text: p.Text})
		}
	}
	return out
}

func fromSDKResponse(resp *genai.GenerateContentResponse) Response {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}
	}

	var text strings.Builder
	var images []media.Image
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		text.WriteString(p.Text)
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			images = append(images, media.Image{
				MimeType: media.DetectMimeType(p.InlineData.MIMEType, p.InlineData.Data),
				Data:     p.InlineData.Data,
			})
		}
	}
	return Response{Text: text.String(), Images: images}
}

// NewGenerator builds the backend named by backend ("rest" or "sdk").
func NewGenerator(ctx context.Context, backend string, opts Options) (ImageGenerator, error) {
	if normalizeBackend(backend) == BackendSDK {
		c, err := NewSDK(ctx, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return New(opts), nil
}
