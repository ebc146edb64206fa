package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"classic-jersey-studio/internal/media"
)

const (
	DefaultRecipient = "info@classicsportswear.com.au"

	// maxMessageRunes keeps the mailto link within what mail clients accept.
	maxMessageRunes = 1000
)

var ErrInvalidContact = errors.New("invalid contact details")

type Method string

const (
	MethodShare  Method = "share"
	MethodMailto Method = "mailto"
)

type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (c Contact) Normalize() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Message: strings.TrimSpace(c.Message),
	}
}

// Validate requires all three fields and a parseable email address.
func (c Contact) Validate() error {
	c = c.Normalize()
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidContact)
	case c.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidContact)
	case c.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidContact)
	case utf8.RuneCountInString(c.Message) > maxMessageRunes:
		return fmt.Errorf("%w: message is longer than %d characters", ErrInvalidContact, maxMessageRunes)
	}
	return ValidateEmail(c.Email)
}

// ValidateEmail accepts a bare RFC 5322 address such as "jo@school.edu.au".
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidContact, email)
	}
	return nil
}

// File is an attachment handed to the share target.
type File struct {
	Name  string
	Image media.Image
}

// Payload mirrors what a native share sheet accepts.
type Payload struct {
	Title string
	Text  string
	Files []File
}

// Sharer is a platform share capability. CanShare is checked before Share.
type Sharer interface {
	CanShare(p Payload) bool
	Share(ctx context.Context, p Payload) error
}

type Message struct {
	Subject string
	Body    string
}

// Dispatch describes how the request left the app. Success means handed off,
// not delivered.
type Dispatch struct {
	Method    Method `json:"method"`
	MailtoURL string `json:"mailto,omitempty"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type Options struct {
	Recipient string
	Sharer    Sharer
	Logger    *slog.Logger
}

type Dispatcher struct {
	recipient string
	sharer    Sharer
	logger    *slog.Logger
}

func New(opts Options) *Dispatcher {
	recipient := strings.TrimSpace(opts.Recipient)
	if recipient == "" {
		recipient = DefaultRecipient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{recipient: recipient, sharer: opts.Sharer, logger: logger}
}

func (d *Dispatcher) Recipient() string { return d.recipient }

// Submit shares the quote with the result image attached when the share
// capability accepts it, and otherwise falls back to a mailto link. Share
// failures are logged and never returned.
func (d *Dispatcher) Submit(ctx context.Context, contact Contact, result *media.Image, designName string, colorNames []string) (Dispatch, error) {
	if err := contact.Validate(); err != nil {
		return Dispatch{}, err
	}
	msg := Compose(contact.Normalize(), designName, colorNames)

	if d.sharer != nil && result != nil && !result.Empty() {
		payload := Payload{
			Title: msg.Subject,
			Text:  msg.Body,
			Files: []File{{Name: AttachmentName(designName), Image: *result}},
		}
		if d.sharer.CanShare(payload) {
			err := d.sharer.Share(ctx, payload)
			if err == nil {
				d.logger.Info("quote shared", "design", designName)
				return Dispatch{Method: MethodShare, Subject: msg.Subject, Body: msg.Body}, nil
			}
			d.logger.Warn("quote share failed, falling back to mailto", "err", err)
		}
	}

	return Dispatch{
		Method:    MethodMailto,
		MailtoURL: MailtoURL(d.recipient, msg.Subject, msg.Body),
		Subject:   msg.Subject,
		Body:      msg.Body,
	}, nil
}

// Compose builds the fixed-format quote request.
func Compose(c Contact, designName string, colorNames []string) Message {
	subject := fmt.Sprintf("Quote Request: %s Leavers Jersey", designName)

	var b strings.Builder
	b.WriteString("Hi Classic Sportswear,\n\n")
	b.WriteString("I'm interested in a quote for the following jersey:\n\n")
	fmt.Fprintf(&b, "Design: %s\n", designName)
	fmt.Fprintf(&b, "Colours: %s\n\n", strings.Join(colorNames, ", "))
	b.WriteString("My Details:\n")
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	fmt.Fprintf(&b, "Message: %s\n\n", c.Message)
	b.WriteString("I've attached my generated design visualization to this email.")

	return Message{Subject: subject, Body: b.String()}
}

// MailtoURL percent-encodes subject and body the way encodeURIComponent does.
func MailtoURL(recipient, subject, body string) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", recipient, encodeComponent(subject), encodeComponent(body))
}

// componentUnescapes undoes the QueryEscape cases encodeURIComponent leaves
// alone.
var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeComponent(s string) string {
	return componentUnescapes.Replace(url.QueryEscape(s))
}

// AttachmentName is the shared file name, e.g. "classic-classic-hoop.png".
func AttachmentName(designName string) string {
	name := slug.Make(designName)
	if name == "" {
		name = "jersey"
	}
	return "classic-" + name + ".png"
}
