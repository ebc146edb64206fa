package telegram

import (
	"context"
	"errors"
	"fmt"

	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/quote"
)

// DocumentSender is the part of Client the sharer needs.
type DocumentSender interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, img media.Image, name string, caption string) error
}

// Sharer delivers quote requests to a staff chat. Without a chat id it
// reports no share capability and quotes fall back to mailto.
type Sharer struct {
	sender DocumentSender
	chatID int64
}

func NewSharer(sender DocumentSender, chatID int64) *Sharer {
	return &Sharer{sender: sender, chatID: chatID}
}

func (s *Sharer) CanShare(p quote.Payload) bool {
	if s == nil || s.sender == nil || s.chatID == 0 || len(p.Files) == 0 {
		return false
	}
	for _, f := range p.Files {
		if f.Image.Empty() || !media.IsImage(f.Image.MimeType) {
			return false
		}
	}
	return true
}

func (s *Sharer) Share(ctx context.Context, p quote.Payload) error {
	if !s.CanShare(p) {
		return errors.New("share is not available")
	}
	for _, f := range p.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sender.SendDocument(s.chatID, f.Image, f.Name, p.Title); err != nil {
			return fmt.Errorf("send %s: %w", f.Name, err)
		}
	}
	return s.sender.SendText(s.chatID, p.Text)
}
