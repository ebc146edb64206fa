package mockup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"classic-jersey-studio/internal/gemini"
	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/wizard"
)

var ErrNoImage = errors.New("failed to generate AI mockup")

// TemplateSource loads a design's reference image.
type TemplateSource interface {
	Fetch(ctx context.Context, url string) (media.Image, error)
}

type Options struct {
	Model     gemini.ImageGenerator
	Templates TemplateSource
	Logger    *slog.Logger
}

// Generator turns a wizard request into a photo of a model wearing the
// jersey. It holds no per-request state and does not limit concurrency.
type Generator struct {
	model     gemini.ImageGenerator
	templates TemplateSource
	logger    *slog.Logger
}

func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		model:     opts.Model,
		templates: opts.Templates,
		logger:    logger,
	}
}

func (g *Generator) Generate(ctx context.Context, req wizard.Request) (media.Image, error) {
	if g.model == nil || g.templates == nil {
		return media.Image{}, errors.New("mockup generator is not configured")
	}

	template, err := g.templates.Fetch(ctx, req.Design.ImageURL)
	if err != nil {
		return media.Image{}, fmt.Errorf("load template %s: %w", req.Design.ID, err)
	}

	parts := BuildParts(template, req.Logo, req.Design.Name, req.ColorNames(), req.Gender)

	g.logger.Info("mockup generation started",
		"design", req.Design.ID,
		"colors", req.ColorNames(),
		"gender", string(req.Gender),
		"logo", req.Logo != nil,
	)

	resp, err := g.model.GenerateImage(ctx, parts, gemini.ImageOptions{AspectRatio: AspectRatio})
	if err != nil {
		return media.Image{}, fmt.Errorf("generate mockup: %w", err)
	}
	if len(resp.Images) == 0 {
		return media.Image{}, ErrNoImage
	}
	return resp.Images[0], nil
}

// BuildParts assembles the request: template image, main prompt, and the logo
// image with embroidery instructions when a logo is present.
func BuildParts(template media.Image, logo *media.Image, styleName string, colors []string, gender wizard.Gender) []gemini.Part {
	parts := []gemini.Part{
		gemini.ImagePart(template),
		gemini.TextPart(BuildPrompt(styleName, colors, gender)),
	}
	if logo != nil && !logo.Empty() {
		parts = append(parts,
			gemini.ImagePart(*logo),
			gemini.TextPart(EmbroideryPrompt()),
		)
	}
	return parts
}
