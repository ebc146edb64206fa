package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/mediagroup"
	"classic-jersey-studio/internal/quote"
	"classic-jersey-studio/internal/session"
	"classic-jersey-studio/internal/telegram"
	"classic-jersey-studio/internal/wizard"
)

const maxLogoBytes = 10 << 20

// Messenger is the Telegram surface the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID string, text string, alert bool) error
	SendPhoto(chatID int64, img media.Image, caption string) error
	SendDocument(chatID int64, img media.Image, name string, caption string) error
	SendTyping(chatID int64)
	DownloadFile(ctx context.Context, fileID string) (media.Image, error)
}

type Options struct {
	Telegram Messenger
	Sessions *session.Store
	// Mockups renders the AI photo; Tint renders the quick local preview.
	Mockups wizard.Generator
	Tint    wizard.Generator
	Quotes  *quote.Dispatcher
	Logger  *slog.Logger
}

type Handler struct {
	tg       Messenger
	sessions *session.Store
	mockups  wizard.Generator
	tint     wizard.Generator
	quotes   *quote.Dispatcher
	logger   *slog.Logger
	albums   *mediagroup.Aggregator

	mu     sync.Mutex
	panels map[string]int
	forms  map[string]*quoteForm
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}
	quotes := opts.Quotes
	if quotes == nil {
		quotes = quote.New(quote.Options{Logger: logger})
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: sessions,
		mockups:  opts.Mockups,
		tint:     opts.Tint,
		quotes:   quotes,
		logger:   logger,
		panels:   make(map[string]int),
		forms:    make(map[string]*quoteForm),
	}
}

// SetMediaGroupAggregator routes album uploads through agg so an album sent
// on the logo step yields one logo.
func (h *Handler) SetMediaGroupAggregator(agg *mediagroup.Aggregator) {
	h.albums = agg
}

// Commands is the bot command menu in display order.
var Commands = []telegram.Command{
	{Name: "start", Description: "Start a new jersey design"},
	{Name: "design", Description: "Jump back to choosing a style"},
	{Name: "quote", Description: "Request a quote for your design"},
	{Name: "cancel", Description: "Cancel the quote form"},
	{Name: "reset", Description: "Clear your design"},
	{Name: "help", Description: "How this bot works"},
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, chatID, userID, msg)
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		upload := mediagroup.Upload{ChatID: chatID, UserID: userID, GroupID: msg.MediaGroupID, FileID: photo.FileID, Size: photo.FileSize}
		return h.handleUpload(ctx, upload)
	case msg.Document != nil:
		upload := mediagroup.Upload{
			ChatID:   chatID,
			UserID:   userID,
			GroupID:  msg.MediaGroupID,
			FileID:   msg.Document.FileID,
			MimeType: msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}
		return h.handleUpload(ctx, upload)
	case msg.Text != "":
		return h.handleText(ctx, chatID, userID, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message) error {
	key := sessionKey(chatID, userID)

	switch msg.Command() {
	case "start", "reset":
		if h.busy(key) {
			return h.tg.SendText(chatID, "⏳ Your mockup is still rendering. Try again in a moment.")
		}
		h.sessions.Update(key, func(w *wizard.Wizard) { w.Reset() })
		h.clearForm(key)
		h.forgetPanel(key)
		if msg.Command() == "reset" {
			_ = h.tg.SendText(chatID, "✅ Design cleared.")
		}
		return h.showPanel(chatID, userID, false)
	case "design":
		h.sessions.Update(key, func(w *wizard.Wizard) {
			if w.Step() == wizard.Landing {
				w.Next()
			}
			for w.Step() > wizard.ChooseDesign {
				w.Back()
			}
		})
		h.forgetPanel(key)
		return h.showPanel(chatID, userID, false)
	case "quote":
		return h.startQuote(chatID, userID)
	case "cancel":
		if !h.clearForm(key) {
			return h.tg.SendText(chatID, "Nothing to cancel.")
		}
		return h.tg.SendText(chatID, "✅ Quote request cancelled.")
	case "help":
		return h.tg.SendText(chatID, helpText())
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	key := sessionKey(chatID, userID)
	reply, contact, active := h.advanceForm(key, text)
	switch {
	case !active:
		return h.tg.SendText(chatID, "Use the buttons on your design panel, or /start to begin.")
	case contact != nil:
		return h.submitQuote(ctx, chatID, userID, *contact)
	default:
		return h.tg.SendText(chatID, reply)
	}
}

func (h *Handler) handleUpload(ctx context.Context, u mediagroup.Upload) error {
	if h.albums != nil && h.albums.Add(u) {
		return nil
	}
	return h.handleLogo(ctx, u.ChatID, u.UserID, u.FileID, u.MimeType, u.Size)
}

// HandleMediaGroup uses the first image of an album as the logo.
func (h *Handler) HandleMediaGroup(ctx context.Context, album mediagroup.Album) {
	first := album.First()
	if first.FileID == "" {
		return
	}
	if len(album.Uploads) > 1 {
		_ = h.tg.SendText(album.ChatID, fmt.Sprintf("You sent %d images. Only the first one is used as your logo.", len(album.Uploads)))
	}
	if err := h.handleLogo(ctx, album.ChatID, album.UserID, first.FileID, first.MimeType, first.Size); err != nil {
		h.logger.Error("album logo failed", "err", err, "chat_id", album.ChatID)
	}
}

// handleLogo stores an uploaded image as the logo while the wizard is on the
// logo step. mimeType is empty for compressed photos.
func (h *Handler) handleLogo(ctx context.Context, chatID int64, userID int64, fileID string, mimeType string, size int) error {
	key := sessionKey(chatID, userID)

	var step wizard.Step
	h.sessions.View(key, func(w *wizard.Wizard) { step = w.Step() })
	if step != wizard.UploadLogo {
		return h.tg.SendText(chatID, "Logos go on the logo step. Use /start to design your jersey first.")
	}
	if mimeType != "" && !media.IsImage(mimeType) {
		return h.tg.SendText(chatID, "❌ Please send a PNG or JPG image.")
	}
	if size > maxLogoBytes {
		return h.tg.SendText(chatID, fmt.Sprintf("❌ That file is too large. The limit is %d MB.", maxLogoBytes>>20))
	}

	h.tg.SendTyping(chatID)
	img, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("logo download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Could not load your logo. Please try again.")
	}
	if !media.IsImage(img.MimeType) {
		return h.tg.SendText(chatID, "❌ Please send a PNG or JPG image.")
	}

	h.sessions.Update(key, func(w *wizard.Wizard) {
		if w.Step() == wizard.UploadLogo {
			w.SetLogo(img)
		}
	})
	h.forgetPanel(key)
	return h.showPanel(chatID, userID, false)
}

// showPanel renders the current step, editing the last panel message when
// edit is set and sending a fresh one otherwise.
func (h *Handler) showPanel(chatID int64, userID int64, edit bool) error {
	key := sessionKey(chatID, userID)

	var sc screen
	h.sessions.View(key, func(w *wizard.Wizard) { sc = render(userID, w) })

	if messageID := h.panel(key); edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, sc.text, sc.keyboard); err == nil {
			return nil
		}
	}

	messageID, err := h.tg.SendTextWithKeyboard(chatID, sc.text, sc.keyboard)
	if err != nil {
		return err
	}
	h.setPanel(key, messageID)
	return nil
}

func (h *Handler) busy(key string) bool {
	var pending bool
	h.sessions.View(key, func(w *wizard.Wizard) { _, pending = w.InFlight() })
	return pending
}

func (h *Handler) panel(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.panels[key]
}

func (h *Handler) setPanel(key string, messageID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panels[key] = messageID
}

func (h *Handler) forgetPanel(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.panels, key)
}

func sessionKey(chatID int64, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func helpText() string {
	return "👕 Classic Jersey Studio\n\n" +
		"Design a school leavers jersey and see it on a model.\n\n" +
		"1. Choose a style\n" +
		"2. Pick your colours\n" +
		"3. Send your school logo (optional), then generate\n" +
		"4. Request a quote\n\n" +
		"Commands:\n" +
		"/start - Start a new design\n" +
		"/design - Back to choosing a style\n" +
		"/quote - Request a quote\n" +
		"/cancel - Cancel the quote form\n" +
		"/reset - Clear your design\n" +
		"/help - This message"
}
