package gemini

import (
	"context"
	"strings"

	"classic-jersey-studio/internal/media"
)

const (
	DefaultImageModel = "gemini-2.5-flash-image"

	BackendREST = "rest"
	BackendSDK  = "sdk"
)

// Part is one element of a multi-part prompt: either text or an inline image.
type Part struct {
	Text  string
	Image *media.Image
}

func TextPart(text string) Part { return Part{Text: text} }

func ImagePart(img media.Image) Part { return Part{Image: &img} }

type ImageOptions struct {
	AspectRatio string
}

type Response struct {
	Text   string
	Images []media.Image
}

// ImageGenerator is implemented by both the REST and the SDK backends.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, parts []Part, opts ImageOptions) (Response, error)
}

func normalizeBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case BackendSDK, "genai":
		return BackendSDK
	}
	return BackendREST
}
