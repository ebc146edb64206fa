package quote

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classic-jersey-studio/internal/media"
)

type fakeSharer struct {
	can      bool
	err      error
	payloads []Payload
}

func (f *fakeSharer) CanShare(Payload) bool { return f.can }

func (f *fakeSharer) Share(_ context.Context, p Payload) error {
	f.payloads = append(f.payloads, p)
	return f.err
}

var (
	contact = Contact{Name: "Jo Citizen", Email: "jo@school.edu.au", Message: "We have 150 students & need them by June."}
	result  = media.Image{MimeType: "image/png", Data: []byte("png")}
	colors  = []string{"Navy", "Flag Red", "Gold"}
)

func TestSubmitShares(t *testing.T) {
	sharer := &fakeSharer{can: true}
	d := New(Options{Sharer: sharer})

	out, err := d.Submit(context.Background(), contact, &result, "Classic Hoop", colors)
	require.NoError(t, err)

	assert.Equal(t, MethodShare, out.Method)
	assert.Empty(t, out.MailtoURL)
	require.Len(t, sharer.payloads, 1)
	p := sharer.payloads[0]
	assert.Equal(t, "Quote Request: Classic Hoop Leavers Jersey", p.Title)
	require.Len(t, p.Files, 1)
	assert.Equal(t, "classic-classic-hoop.png", p.Files[0].Name)
	assert.Equal(t, result, p.Files[0].Image)
}

func TestSubmitFallsBackToMailto(t *testing.T) {
	cases := map[string]struct {
		sharer Sharer
		result *media.Image
	}{
		"no sharer":         {sharer: nil, result: &result},
		"no result":         {sharer: &fakeSharer{can: true}, result: nil},
		"capability denied": {sharer: &fakeSharer{can: false}, result: &result},
		"share failed":      {sharer: &fakeSharer{can: true, err: errors.New("cancelled")}, result: &result},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := New(Options{Sharer: tc.sharer})
			out, err := d.Submit(context.Background(), contact, tc.result, "Heritage Stripe", colors)
			require.NoError(t, err)

			assert.Equal(t, MethodMailto, out.Method)
			require.NotEmpty(t, out.MailtoURL)
			assert.True(t, strings.HasPrefix(out.MailtoURL, "mailto:info@classicsportswear.com.au?subject="))
			assert.NotContains(t, out.MailtoURL, " ")
			assert.NotContains(t, out.MailtoURL, "+")

			u, err := url.Parse(out.MailtoURL)
			require.NoError(t, err)
			q := u.Query()
			assert.Equal(t, "Quote Request: Heritage Stripe Leavers Jersey", q.Get("subject"))
			body := q.Get("body")
			assert.Contains(t, body, "Design: Heritage Stripe\n")
			assert.Contains(t, body, "Colours: Navy, Flag Red, Gold\n")
			assert.Contains(t, body, "Message: We have 150 students & need them by June.")
		})
	}
}

func TestSubmitRejectsInvalidContact(t *testing.T) {
	d := New(Options{})
	cases := map[string]Contact{
		"missing name":    {Email: "a@b.co", Message: "hi"},
		"missing email":   {Name: "A", Message: "hi"},
		"bad email":       {Name: "A", Email: "nope", Message: "hi"},
		"missing message": {Name: "A", Email: "a@b.co", Message: "  "},
		"long message":    {Name: "A", Email: "a@b.co", Message: strings.Repeat("x", maxMessageRunes+1)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Submit(context.Background(), c, nil, "Classic Hoop", colors)
			assert.ErrorIs(t, err, ErrInvalidContact)
		})
	}
}

func TestComposeBody(t *testing.T) {
	msg := Compose(contact, "Signature Panel", []string{"Black", "White"})
	want := "Hi Classic Sportswear,\n\n" +
		"I'm interested in a quote for the following jersey:\n\n" +
		"Design: Signature Panel\n" +
		"Colours: Black, White\n\n" +
		"My Details:\n" +
		"Name: Jo Citizen\n" +
		"Email: jo@school.edu.au\n" +
		"Message: We have 150 students & need them by June.\n\n" +
		"I've attached my generated design visualization to this email."
	assert.Equal(t, want, msg.Body)
}

func TestMailtoEncoding(t *testing.T) {
	got := MailtoURL("sales@example.com", "A & B", "1+1=2\nok")
	assert.Equal(t, "mailto:sales@example.com?subject=A%20%26%20B&body=1%2B1%3D2%0Aok", got)
}

func TestMailtoEncodingKeepsURIComponentMarks(t *testing.T) {
	got := MailtoURL("sales@example.com", "Hi!", "I'm (very) keen* ~ok")
	assert.Equal(t, "mailto:sales@example.com?subject=Hi!&body=I'm%20(very)%20keen*%20~ok", got)
}

func TestCustomRecipient(t *testing.T) {
	d := New(Options{Recipient: " orders@example.com "})
	assert.Equal(t, "orders@example.com", d.Recipient())

	out, err := d.Submit(context.Background(), contact, nil, "Classic Hoop", colors)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.MailtoURL, "mailto:orders@example.com?"))
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "classic-heritage-stripe.png", AttachmentName("Heritage Stripe"))
	assert.Equal(t, "classic-jersey.png", AttachmentName("  "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jo@school.edu.au"))
	assert.NoError(t, ValidateEmail(" jo@school.edu.au "))
	assert.ErrorIs(t, ValidateEmail("Jo <jo@school.edu.au>"), ErrInvalidContact)
	assert.ErrorIs(t, ValidateEmail("jo at school"), ErrInvalidContact)
}
