package mockup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/gemini"
	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/wizard"
)

type stubTemplates struct {
	img  media.Image
	err  error
	urls []string
}

func (s *stubTemplates) Fetch(_ context.Context, url string) (media.Image, error) {
	s.urls = append(s.urls, url)
	return s.img, s.err
}

type stubModel struct {
	resp  gemini.Response
	err   error
	parts [][]gemini.Part
	opts  []gemini.ImageOptions
}

func (s *stubModel) GenerateImage(_ context.Context, parts []gemini.Part, opts gemini.ImageOptions) (gemini.Response, error) {
	s.parts = append(s.parts, parts)
	s.opts = append(s.opts, opts)
	return s.resp, s.err
}

var (
	templateImg = media.Image{MimeType: "image/png", Data: []byte("template")}
	logoImg     = media.Image{MimeType: "image/png", Data: []byte("logo")}
	resultImg   = media.Image{MimeType: "image/png", Data: []byte("result")}
)

func hoopRequest(logo *media.Image, g wizard.Gender) wizard.Request {
	d, _ := catalog.Default().FindDesign("classic-hoop")
	return wizard.Request{
		Design: d,
		Colors: []catalog.Color{{Name: "Navy", Hex: "#141B2D"}, {Name: "Gold", Hex: "#E1AD21"}},
		Logo:   logo,
		Gender: g,
	}
}

func TestGenerateWithoutLogo(t *testing.T) {
	templates := &stubTemplates{img: templateImg}
	model := &stubModel{resp: gemini.Response{Images: []media.Image{resultImg}}}
	g := New(Options{Model: model, Templates: templates})

	img, err := g.Generate(context.Background(), hoopRequest(nil, wizard.Mens))
	require.NoError(t, err)
	assert.Equal(t, resultImg, img)

	assert.Equal(t, []string{"https://i.imgur.com/zD6iDT7.png"}, templates.urls)
	require.Len(t, model.parts, 1)
	assert.Equal(t, "3:4", model.opts[0].AspectRatio)

	parts := model.parts[0]
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].Image)
	assert.Equal(t, templateImg, *parts[0].Image)
	assert.Contains(t, parts[1].Text, "young man wearing a custom rugby jersey")
	assert.Contains(t, parts[1].Text, "Style Name: Classic Hoop.")
	assert.Contains(t, parts[1].Text, "Apply the colours Navy and Gold strictly")
	assert.NotContains(t, parts[1].Text, "EMBROIDERY")
}

func TestGenerateWithLogoAddsEmbroidery(t *testing.T) {
	model := &stubModel{resp: gemini.Response{Images: []media.Image{resultImg}}}
	g := New(Options{Model: model, Templates: &stubTemplates{img: templateImg}})

	_, err := g.Generate(context.Background(), hoopRequest(&logoImg, wizard.Womens))
	require.NoError(t, err)

	parts := model.parts[0]
	require.Len(t, parts, 4)
	assert.Contains(t, parts[1].Text, "young woman")
	assert.Contains(t, parts[1].Text, "beachy blonde hair")
	require.NotNil(t, parts[2].Image)
	assert.Equal(t, logoImg, *parts[2].Image)
	assert.Contains(t, parts[3].Text, "EMBROIDERY DETAIL")
	assert.Contains(t, parts[3].Text, "RIGHT CHEST")
}

func TestGenerateNoImageInResponse(t *testing.T) {
	model := &stubModel{resp: gemini.Response{Text: "sorry, text only"}}
	g := New(Options{Model: model, Templates: &stubTemplates{img: templateImg}})

	_, err := g.Generate(context.Background(), hoopRequest(nil, wizard.Mens))
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestGeneratePropagatesFailures(t *testing.T) {
	boom := errors.New("boom")

	g := New(Options{Model: &stubModel{}, Templates: &stubTemplates{err: boom}})
	_, err := g.Generate(context.Background(), hoopRequest(nil, wizard.Mens))
	assert.ErrorIs(t, err, boom)

	model := &stubModel{err: boom}
	g = New(Options{Model: model, Templates: &stubTemplates{img: templateImg}})
	_, err = g.Generate(context.Background(), hoopRequest(nil, wizard.Mens))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, model.parts, 1, "no retry on failure")

	_, err = New(Options{}).Generate(context.Background(), hoopRequest(nil, wizard.Mens))
	assert.Error(t, err)
}

func TestBuildPromptRules(t *testing.T) {
	p := BuildPrompt("Heritage Stripe", []string{"Black"}, wizard.Mens)

	assert.Contains(t, p, "Indigenous Australian and Māori heritage")
	assert.Contains(t, p, "- Shot on 85mm lens")
	assert.Contains(t, p, "LEFT chest (viewer's RIGHT)")
	assert.Contains(t, p, "The collar MUST remain pure WHITE")
	assert.Contains(t, p, "Apply the colours Black strictly")
}
