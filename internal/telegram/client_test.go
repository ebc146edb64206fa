package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/quote"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))

	text := strings.Repeat("ab", 5) + strings.Repeat("é", 5)
	parts := splitByBytes(text, 4)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 4)
		assert.True(t, utf8.ValidString(p))
	}
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "hello", truncateByBytes("hello", 10))
	assert.Equal(t, "hel", truncateByBytes("hello", 3))
	// never cuts a rune in half
	assert.Equal(t, "é", truncateByBytes("éé", 3))
	assert.Equal(t, "anything", truncateByBytes("anything", 0))
}

type fakeSender struct {
	docs  []string
	texts []string
	err   error
}

func (f *fakeSender) SendText(_ int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendDocument(_ int64, _ media.Image, name string, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, name)
	return nil
}

func payload() quote.Payload {
	return quote.Payload{
		Title: "Quote Request: Classic Hoop Leavers Jersey",
		Text:  "body",
		Files: []quote.File{{Name: "classic-classic-hoop.png", Image: media.Image{MimeType: "image/png", Data: []byte{1}}}},
	}
}

func TestSharerCapability(t *testing.T) {
	assert.False(t, NewSharer(&fakeSender{}, 0).CanShare(payload()))
	assert.False(t, NewSharer(&fakeSender{}, 42).CanShare(quote.Payload{Title: "x"}))

	notImage := payload()
	notImage.Files[0].Image.MimeType = "application/pdf"
	assert.False(t, NewSharer(&fakeSender{}, 42).CanShare(notImage))

	assert.True(t, NewSharer(&fakeSender{}, 42).CanShare(payload()))
}

func TestSharerShare(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, NewSharer(sender, 42).Share(context.Background(), payload()))
	assert.Equal(t, []string{"classic-classic-hoop.png"}, sender.docs)
	assert.Equal(t, []string{"body"}, sender.texts)

	failing := &fakeSender{err: errors.New("forbidden")}
	err := NewSharer(failing, 42).Share(context.Background(), payload())
	assert.ErrorContains(t, err, "forbidden")
	assert.Empty(t, failing.texts)
}
