package handlers

import (
	"context"
	"errors"
	"fmt"

	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/quote"
	"classic-jersey-studio/internal/wizard"
)

type formStage int

const (
	askName formStage = iota
	askEmail
	askMessage
)

// quoteForm collects the contact details one message at a time.
type quoteForm struct {
	stage   formStage
	contact quote.Contact
}

// advance records one answer. It returns the next prompt, or done once the
// message has been captured.
func (f *quoteForm) advance(text string) (reply string, done bool) {
	switch f.stage {
	case askName:
		f.contact.Name = text
		f.stage = askEmail
		return "📧 What's your email address?", false
	case askEmail:
		if err := quote.ValidateEmail(text); err != nil {
			return "❌ That doesn't look like an email address. Please try again.", false
		}
		f.contact.Email = text
		f.stage = askMessage
		return "💬 Anything we should know? Quantities, dates or questions.", false
	default:
		f.contact.Message = text
		return "", true
	}
}

func (h *Handler) startQuote(chatID int64, userID int64) error {
	key := sessionKey(chatID, userID)

	var hasResult bool
	h.sessions.View(key, func(w *wizard.Wizard) { hasResult = w.Design().Result != nil })
	if !hasResult {
		return h.tg.SendText(chatID, "Generate a mockup first, then request a quote.")
	}

	h.mu.Lock()
	h.forms[key] = &quoteForm{}
	h.mu.Unlock()

	return h.tg.SendText(chatID, "📨 Request a Quote\n\nWhat's your name? (send /cancel to stop)")
}

// advanceForm feeds text to the active form. contact is set once the form is
// complete; active is false when no form is open.
func (h *Handler) advanceForm(key string, text string) (reply string, contact *quote.Contact, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	form, ok := h.forms[key]
	if !ok {
		return "", nil, false
	}
	reply, done := form.advance(text)
	if !done {
		return reply, nil, true
	}
	delete(h.forms, key)
	c := form.contact
	return "", &c, true
}

// clearForm drops the form for key and reports whether one was open.
func (h *Handler) clearForm(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.forms[key]
	delete(h.forms, key)
	return ok
}

func (h *Handler) submitQuote(ctx context.Context, chatID int64, userID int64, contact quote.Contact) error {
	key := sessionKey(chatID, userID)

	var (
		result     *media.Image
		designName string
		colorNames []string
	)
	h.sessions.View(key, func(w *wizard.Wizard) {
		result = w.Design().Result
		if d, ok := w.Selected(); ok {
			designName = d.Name
		}
		colorNames = w.ColorNames()
	})
	if result == nil {
		return h.tg.SendText(chatID, "Your design was cleared. Generate a mockup first, then request a quote.")
	}

	dispatch, err := h.quotes.Submit(ctx, contact, result, designName, colorNames)
	if errors.Is(err, quote.ErrInvalidContact) {
		return h.tg.SendText(chatID, fmt.Sprintf("❌ %v. Use /quote to start again.", err))
	}
	if err != nil {
		return err
	}

	if dispatch.Method == quote.MethodShare {
		return h.tg.SendText(chatID, "✅ Thanks! Your quote request is with Classic Sportswear. We'll be in touch soon.")
	}

	if err := h.tg.SendDocument(chatID, *result, quote.AttachmentName(designName), "Your design, ready to attach"); err != nil {
		h.logger.Warn("send quote attachment failed", "err", err)
	}
	return h.tg.SendText(chatID, fmt.Sprintf(
		"Almost there! Email %s with the image above attached:\n\nSubject: %s\n\n%s\n\nOr tap to open your mail app: %s",
		h.quotes.Recipient(), dispatch.Subject, dispatch.Body, dispatch.MailtoURL,
	))
}
