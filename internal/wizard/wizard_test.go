package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/media"
)

type fakeGenerator struct {
	img   media.Image
	err   error
	calls []Request
	// seen records the wizard's in-flight marker while the call runs.
	wiz  *Wizard
	seen []Gender
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (media.Image, error) {
	f.calls = append(f.calls, req)
	if f.wiz != nil {
		g, _ := f.wiz.InFlight()
		f.seen = append(f.seen, g)
	}
	return f.img, f.err
}

func newAtColors(t *testing.T, designID string) *Wizard {
	t.Helper()
	w := New(catalog.Default())
	require.True(t, w.Next())
	require.True(t, w.SelectDesign(designID))
	require.Equal(t, ChooseColors, w.Step())
	return w
}

func TestLinearNavigation(t *testing.T) {
	w := New(nil)
	assert.Equal(t, Landing, w.Step())
	assert.False(t, w.Back())

	require.True(t, w.Next())
	assert.Equal(t, ChooseDesign, w.Step())
	assert.False(t, w.Next(), "cannot leave design step without a design")

	require.True(t, w.SelectDesign("classic-hoop"))
	assert.Equal(t, ChooseColors, w.Step())
	assert.False(t, w.Next(), "cannot leave colors step without a color")

	require.True(t, w.ToggleColor("#1D1D1F"))
	require.True(t, w.Next())
	assert.Equal(t, UploadLogo, w.Step())
	assert.False(t, w.Next(), "preview requires a generated result")

	require.True(t, w.Back())
	assert.Equal(t, ChooseColors, w.Step())
}

func TestSelectDesignUnknownIsNoop(t *testing.T) {
	w := New(nil)
	w.Next()

	assert.False(t, w.SelectDesign("does-not-exist"))
	assert.Equal(t, ChooseDesign, w.Step())
	assert.Empty(t, w.Design().DesignID)
}

func TestSelectDesignOnlyOnDesignStep(t *testing.T) {
	w := New(nil)
	assert.False(t, w.SelectDesign("classic-hoop"), "landing must not skip ahead")
	assert.Equal(t, Landing, w.Step())
	assert.Empty(t, w.Design().DesignID)

	w = newAtColors(t, "classic-hoop")
	assert.False(t, w.SelectDesign("heritage-stripe"))
	assert.Equal(t, ChooseColors, w.Step())
	assert.Equal(t, "classic-hoop", w.Design().DesignID)

	w.Back()
	require.True(t, w.SelectDesign("heritage-stripe"))
	assert.Equal(t, ChooseColors, w.Step(), "advances exactly one step")
}

func TestClassicHoopCapacity(t *testing.T) {
	w := newAtColors(t, "classic-hoop")

	for _, hex := range []string{"#1D1D1F", "#FFFFFF", "#00A896"} {
		require.True(t, w.ToggleColor(hex))
	}
	assert.False(t, w.ToggleColor("#8E9191"), "fourth color must be rejected")

	assert.Equal(t, []string{"#1D1D1F", "#FFFFFF", "#00A896"}, w.Design().ColorHexes)
	assert.Equal(t, []string{"Black", "White", "Jade"}, w.ColorNames())
}

func TestNeverExceedsMaxColors(t *testing.T) {
	c := catalog.Default()
	for _, d := range c.Designs() {
		t.Run(d.ID, func(t *testing.T) {
			w := newAtColors(t, d.ID)
			for _, col := range c.Colors() {
				w.ToggleColor(col.Hex)
				assert.LessOrEqual(t, len(w.Design().ColorHexes), d.MaxColors)
			}
			assert.Len(t, w.Design().ColorHexes, d.MaxColors)
		})
	}
}

func TestDefaultLimitWithoutDesign(t *testing.T) {
	w := New(nil)
	for _, col := range catalog.Default().Colors()[:5] {
		w.ToggleColor(col.Hex)
	}
	assert.Len(t, w.Design().ColorHexes, catalog.DefaultMaxColors)
}

func TestToggleRemovesOnlyThatColor(t *testing.T) {
	w := newAtColors(t, "signature-panel")
	w.ToggleColor("#1D1D1F")
	w.ToggleColor("#FFFFFF")
	w.ToggleColor("#00A896")

	require.True(t, w.ToggleColor("#ffffff"))
	assert.Equal(t, []string{"#1D1D1F", "#00A896"}, w.Design().ColorHexes)
	assert.False(t, w.IsColorSelected("#FFFFFF"))
}

func TestToggleUnknownColorIsNoop(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	assert.False(t, w.ToggleColor("#123456"))
	assert.Empty(t, w.Design().ColorHexes)
}

func TestSwitchingDesignTruncatesPreservingOrder(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	w.ToggleColor("#00A896")
	w.ToggleColor("#1D1D1F")
	w.ToggleColor("#FFFFFF")

	w.Back()
	require.True(t, w.SelectDesign("heritage-stripe"))

	assert.Equal(t, []string{"#00A896", "#1D1D1F"}, w.Design().ColorHexes)
	assert.Equal(t, ChooseColors, w.Step())
}

func TestDesignReturnsCopy(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	w.ToggleColor("#1D1D1F")

	d := w.Design()
	d.ColorHexes[0] = "#000000"

	assert.Equal(t, []string{"#1D1D1F"}, w.Design().ColorHexes)
}

func TestLogo(t *testing.T) {
	w := New(nil)
	w.SetLogo(media.Image{})
	assert.Nil(t, w.Design().Logo)

	w.SetLogo(media.Image{MimeType: "image/png", Data: []byte{1}})
	require.NotNil(t, w.Design().Logo)

	w.ClearLogo()
	assert.Nil(t, w.Design().Logo)
}

func TestGenerateWithoutDesignIsNoop(t *testing.T) {
	w := New(nil)
	w.Next()
	gen := &fakeGenerator{}

	require.NoError(t, w.Generate(context.Background(), Mens, gen))
	assert.Empty(t, gen.calls)
	assert.Equal(t, ChooseDesign, w.Step())
}

func TestGenerateWithoutColorsIsNoop(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	gen := &fakeGenerator{}

	require.NoError(t, w.Generate(context.Background(), Womens, gen))
	assert.Empty(t, gen.calls)
	assert.Equal(t, ChooseColors, w.Step())
}

func TestGenerateSuccess(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	w.ToggleColor("#1D1D1F")
	w.ToggleColor("#00A896")
	w.Next()
	logo := media.Image{MimeType: "image/png", Data: []byte("logo")}
	w.SetLogo(logo)

	result := media.Image{MimeType: "image/png", Data: []byte("mockup")}
	gen := &fakeGenerator{img: result, wiz: w}

	require.NoError(t, w.Generate(context.Background(), Womens, gen))

	assert.Equal(t, Preview, w.Step())
	require.NotNil(t, w.Design().Result)
	assert.Equal(t, result, *w.Design().Result)
	_, pending := w.InFlight()
	assert.False(t, pending)
	assert.Equal(t, []Gender{Womens}, gen.seen)

	require.Len(t, gen.calls, 1)
	want := Request{
		Design: catalog.Design{ID: "classic-hoop", Name: "Classic Hoop", ImageURL: "https://i.imgur.com/zD6iDT7.png", MaxColors: 3},
		Colors: []catalog.Color{{Name: "Black", Hex: "#1D1D1F"}, {Name: "Jade", Hex: "#00A896"}},
		Logo:   &logo,
		Gender: Womens,
	}
	if diff := cmp.Diff(want, gen.calls[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Black", "Jade"}, gen.calls[0].ColorNames())
}

func TestGenerateFailureLeavesStep(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	w.ToggleColor("#1D1D1F")
	w.Next()
	boom := errors.New("model exploded")
	gen := &fakeGenerator{err: boom, wiz: w}

	err := w.Generate(context.Background(), Mens, gen)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, UploadLogo, w.Step())
	assert.Nil(t, w.Design().Result)
	_, pending := w.InFlight()
	assert.False(t, pending)
	assert.Equal(t, []Gender{Mens}, gen.seen)
}

// toPreview renders Classic Hoop in Black and lands on Preview.
func toPreview(t *testing.T) *Wizard {
	t.Helper()
	w := newAtColors(t, "classic-hoop")
	require.True(t, w.ToggleColor("#1D1D1F"))
	require.True(t, w.Next())
	gen := &fakeGenerator{img: media.Image{MimeType: "image/png", Data: []byte("mockup")}}
	require.NoError(t, w.Generate(context.Background(), Mens, gen))
	require.Equal(t, Preview, w.Step())
	return w
}

func TestChangingColorsDropsResult(t *testing.T) {
	w := toPreview(t)

	require.True(t, w.Back())
	require.True(t, w.Back())
	require.True(t, w.ToggleColor("#1D1D1F"))
	require.True(t, w.ToggleColor("#00A896"))

	assert.Nil(t, w.Design().Result)
	require.True(t, w.Next())
	assert.Equal(t, UploadLogo, w.Step())
	assert.False(t, w.Next(), "a stale result must not reach preview")
	assert.Equal(t, UploadLogo, w.Step())
}

func TestChangingDesignDropsResult(t *testing.T) {
	w := toPreview(t)
	for w.Step() > ChooseDesign {
		w.Back()
	}

	require.True(t, w.SelectDesign("signature-panel"))
	assert.Nil(t, w.Design().Result)
}

func TestReselectingSameDesignKeepsResult(t *testing.T) {
	w := toPreview(t)
	for w.Step() > ChooseDesign {
		w.Back()
	}

	require.True(t, w.SelectDesign("classic-hoop"))
	assert.NotNil(t, w.Design().Result)
}

func TestLogoChangeOnPreviewReturnsToLogoStep(t *testing.T) {
	w := toPreview(t)

	w.ClearLogo()
	assert.Equal(t, Preview, w.Step(), "clearing an absent logo changes nothing")
	require.NotNil(t, w.Design().Result)

	w.SetLogo(media.Image{MimeType: "image/png", Data: []byte("logo")})
	assert.Nil(t, w.Design().Result)
	assert.Equal(t, UploadLogo, w.Step())
}

func TestBeginGenerateRejectsUnknownGender(t *testing.T) {
	w := newAtColors(t, "classic-hoop")
	w.ToggleColor("#1D1D1F")

	_, ok := w.BeginGenerate(Gender("other"))
	assert.False(t, ok)
	_, pending := w.InFlight()
	assert.False(t, pending)
}

func TestResetFromEveryStep(t *testing.T) {
	for _, target := range Steps() {
		t.Run(target.String(), func(t *testing.T) {
			w := New(nil)
			w.Next()
			w.SelectDesign("classic-hoop")
			w.ToggleColor("#1D1D1F")
			w.Next()
			w.SetLogo(media.Image{MimeType: "image/png", Data: []byte{1}})
			require.NoError(t, w.Generate(context.Background(), Mens, &fakeGenerator{img: media.Image{MimeType: "image/png", Data: []byte{2}}}))
			for w.Step() > target {
				w.Back()
			}
			w.BeginGenerate(Mens)

			w.Reset()

			assert.Equal(t, Landing, w.Step())
			assert.Equal(t, Design{}, w.Design())
			_, pending := w.InFlight()
			assert.False(t, pending)
		})
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "landing", Landing.String())
	assert.Equal(t, "preview", Preview.String())
	assert.Equal(t, "unknown", Step(42).String())
}

func TestParseGender(t *testing.T) {
	g, ok := ParseGender("Womens")
	require.True(t, ok)
	assert.Equal(t, Womens, g)

	g, ok = ParseGender("male")
	require.True(t, ok)
	assert.Equal(t, Mens, g)

	_, ok = ParseGender("robot")
	assert.False(t, ok)
}
