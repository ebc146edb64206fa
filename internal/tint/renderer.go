package tint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/wizard"
)

const (
	tintIntensity = 0.7

	logoWidthRatio = 0.10
	logoXRatio     = 0.31
	logoYRatio     = 0.36

	shadowSigma = 5.0
	shadowAlpha = 0.1
)

// TemplateSource loads a design's base image.
type TemplateSource interface {
	Fetch(ctx context.Context, url string) (media.Image, error)
}

type Options struct {
	Templates TemplateSource
	Logger    *slog.Logger
}

// Renderer colorizes a template locally, without the AI model.
type Renderer struct {
	templates TemplateSource
	logger    *slog.Logger
}

func New(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{templates: opts.Templates, logger: logger}
}

// Generate lets the renderer stand in for the AI generator. Gender is
// ignored.
func (r *Renderer) Generate(ctx context.Context, req wizard.Request) (media.Image, error) {
	if r.templates == nil {
		return media.Image{}, errors.New("tint renderer has no template source")
	}
	tmpl, err := r.templates.Fetch(ctx, req.Design.ImageURL)
	if err != nil {
		return media.Image{}, fmt.Errorf("load template %s: %w", req.Design.ID, err)
	}
	return r.Render(ctx, tmpl, req.ColorHexes(), req.Logo)
}

// Render draws the template, multiplies the first chosen color over its
// opaque pixels and places the logo on the right chest. Later colors are not
// used. A logo that fails to decode is skipped and does not stop the
// template decode.
func (r *Renderer) Render(ctx context.Context, template media.Image, hexes []string, logo *media.Image) (media.Image, error) {
	if err := ctx.Err(); err != nil {
		return media.Image{}, err
	}

	var base, logoImg image.Image
	var eg errgroup.Group
	eg.Go(func() error {
		img, err := decode(template)
		if err != nil {
			return fmt.Errorf("image loading failed: %w", err)
		}
		base = img
		return nil
	})
	if logo != nil && !logo.Empty() {
		eg.Go(func() error {
			img, err := decode(*logo)
			if err != nil {
				r.logger.Warn("logo decode failed, rendering without it", "err", err)
				return nil
			}
			logoImg = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return media.Image{}, err
	}

	canvas := imaging.Clone(base)

	if len(hexes) > 0 {
		c, err := parseHex(hexes[0])
		if err != nil {
			return media.Image{}, err
		}
		multiplyTint(canvas, c, tintIntensity)
	}

	if logoImg != nil {
		drawLogo(canvas, logoImg)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return media.Image{}, fmt.Errorf("encode png: %w", err)
	}
	return media.Image{MimeType: "image/png", Data: buf.Bytes()}, nil
}

func decode(img media.Image) (image.Image, error) {
	if img.Empty() {
		return nil, errors.New("empty image")
	}
	return imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
}

// multiplyTint composites a fill of c, masked to the canvas alpha, over the
// canvas with a multiply blend at the given opacity.
func multiplyTint(canvas *image.NRGBA, c color.NRGBA, opacity float64) {
	cs := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
	b := canvas.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := canvas.PixOffset(x, y)
			px := canvas.Pix[i : i+4 : i+4]

			ab := float64(px[3]) / 255
			if ab == 0 {
				continue
			}
			as := ab * opacity
			ao := as + ab*(1-as)

			for ch := 0; ch < 3; ch++ {
				cb := float64(px[ch]) / 255
				co := as*((1-ab)*cs[ch]+ab*cb*cs[ch]) + (1-as)*ab*cb
				px[ch] = to8(co / ao)
			}
			px[3] = to8(ao)
		}
	}
}

func drawLogo(canvas *image.NRGBA, logo image.Image) {
	cb := canvas.Bounds()
	lb := logo.Bounds()
	if lb.Dx() == 0 || lb.Dy() == 0 {
		return
	}

	w := int(math.Round(float64(cb.Dx()) * logoWidthRatio))
	if w < 1 {
		w = 1
	}
	h := int(math.Round(float64(lb.Dy()) / float64(lb.Dx()) * float64(w)))
	if h < 1 {
		h = 1
	}
	x := cb.Min.X + int(math.Round(float64(cb.Dx())*logoXRatio))
	y := cb.Min.Y + int(math.Round(float64(cb.Dy())*logoYRatio))

	resized := imaging.Resize(logo, w, h, imaging.Lanczos)

	pad := int(math.Ceil(shadowSigma * 3))
	shadow := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			a := float64(resized.NRGBAAt(sx, sy).A) * shadowAlpha
			shadow.SetNRGBA(sx+pad, sy+pad, color.NRGBA{A: uint8(a)})
		}
	}
	shadow = imaging.Blur(shadow, shadowSigma)

	draw.Draw(canvas, shadow.Bounds().Add(image.Pt(x-pad, y-pad)), shadow, image.Point{}, draw.Over)
	draw.Draw(canvas, resized.Bounds().Add(image.Pt(x, y)), resized, image.Point{}, draw.Over)
}

func parseHex(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(v * 255))
}
