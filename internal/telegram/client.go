package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"classic-jersey-studio/internal/media"
)

const (
	maxTextBytes    = 4096
	maxCaptionBytes = 1024
	// maxDownloadBytes caps user uploads; Telegram bots cannot fetch more anyway.
	maxDownloadBytes = 20 << 20
)

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
}

type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		bot:        bot,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	} else {
		u.Timeout = 30
	}
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

type Command struct {
	Name        string
	Description string
}

// SetCommands publishes the command menu shown by Telegram clients.
func (c *Client) SetCommands(commands []Command) error {
	out := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	_, err := c.bot.Request(tgbotapi.NewSetMyCommands(out...))
	return err
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func (c *Client) SendText(chatID int64, text string) error {
	parts := splitByBytes(text, maxTextBytes)
	for _, p := range parts {
		msg := tgbotapi.NewMessage(chatID, p)
		msg.DisableWebPagePreview = true
		if _, err := c.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendTextWithKeyboard sends a single message with an inline keyboard and
// returns its id so it can be edited in place later.
func (c *Client) SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncateByBytes(text, maxTextBytes))
	msg.ReplyMarkup = kb
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, truncateByBytes(text, maxTextBytes), kb)
	_, err := c.bot.Request(edit)
	if err != nil && isNotModified(err) {
		return nil
	}
	return err
}

func (c *Client) AnswerCallback(callbackID string, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := c.bot.Request(cb)
	return err
}

func (c *Client) SendPhoto(chatID int64, img media.Image, caption string) error {
	if img.Empty() {
		return errors.New("empty photo")
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "image" + img.Extension(),
		Bytes: img.Data,
	})
	if caption != "" {
		photo.Caption = truncateByBytes(caption, maxCaptionBytes)
	}
	_, err := c.bot.Send(photo)
	return err
}

// SendDocument sends img uncompressed under the given file name.
func (c *Client) SendDocument(chatID int64, img media.Image, name string, caption string) error {
	if img.Empty() {
		return errors.New("empty document")
	}
	if strings.TrimSpace(name) == "" {
		name = "image" + img.Extension()
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: img.Data,
	})
	if caption != "" {
		doc.Caption = truncateByBytes(caption, maxCaptionBytes)
	}
	_, err := c.bot.Send(doc)
	return err
}

func (c *Client) DownloadFile(ctx context.Context, fileID string) (media.Image, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return media.Image{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return media.Image{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return media.Image{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return media.Image{}, fmt.Errorf("telegram file download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return media.Image{}, err
	}
	if len(data) > maxDownloadBytes {
		return media.Image{}, fmt.Errorf("telegram file is larger than %d bytes", maxDownloadBytes)
	}

	return media.Image{
		MimeType: media.DetectMimeType(resp.Header.Get("content-type"), data),
		Data:     data,
	}, nil
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func splitByBytes(text string, maxBytes int) []string {
	if len([]byte(text)) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len([]byte(string(r)))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len([]byte(text)) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len([]byte(string(r)))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
