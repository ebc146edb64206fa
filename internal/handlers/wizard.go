package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"classic-jersey-studio/internal/wizard"
)

type callback struct {
	owner  int64
	action string
	args   []string
}

// parseCallback reads "jw:<owner>:<action>[:args...]".
func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix || parts[2] == "" {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{owner: owner, action: parts[2], args: parts[3:]}, true
}

func (c callback) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return nil
	}
	if c.owner != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This panel belongs to someone else. Send /start for your own.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	key := sessionKey(chatID, c.owner)
	h.setPanel(key, q.Message.MessageID)

	switch c.action {
	case "gen":
		gender, ok := wizard.ParseGender(c.arg(0))
		if !ok {
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return nil
		}
		return h.generate(ctx, q.ID, chatID, c.owner, gender, h.mockups, mockupCaption)
	case "tint":
		// The local renderer ignores the model; the marker still blocks a
		// second trigger.
		return h.generate(ctx, q.ID, chatID, c.owner, wizard.Mens, h.tint, tintCaption)
	case "quote":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.startQuote(chatID, c.owner)
	}

	var notice string
	h.sessions.Update(key, func(w *wizard.Wizard) { notice = apply(w, c) })
	if c.action == "reset" && notice == "" {
		h.clearForm(key)
	}
	_ = h.tg.AnswerCallback(q.ID, notice, false)
	return h.showPanel(chatID, c.owner, true)
}

// stepActions binds selection actions to the step whose panel offers them,
// so buttons on an outdated panel cannot change the design behind the
// current step.
var stepActions = map[string]wizard.Step{
	"start":       wizard.Landing,
	"design":      wizard.ChooseDesign,
	"color":       wizard.ChooseColors,
	"colors_done": wizard.ChooseColors,
	"logo_clear":  wizard.UploadLogo,
}

// apply performs a navigation or selection action and returns a short notice
// for the callback answer when the action was refused.
func apply(w *wizard.Wizard, c callback) string {
	if step, ok := stepActions[c.action]; ok && w.Step() != step {
		return "This panel is out of date."
	}

	switch c.action {
	case "start", "next", "colors_done":
		if !w.Next() {
			return guardNotice(w)
		}
	case "back":
		w.Back()
	case "design":
		if !w.SelectDesign(c.arg(0)) {
			return "That style is no longer available."
		}
	case "color":
		hex := c.arg(0)
		if _, known := w.Catalog().FindColor(hex); !known {
			return "That colour is no longer available."
		}
		if !w.ToggleColor(hex) {
			return fmt.Sprintf("This style allows up to %d colours. Deselect one first.", w.MaxColors())
		}
	case "logo_clear":
		w.ClearLogo()
	case "reset":
		if _, pending := w.InFlight(); pending {
			return "Your mockup is still rendering."
		}
		w.Reset()
	}
	return ""
}

func guardNotice(w *wizard.Wizard) string {
	switch w.Step() {
	case wizard.ChooseDesign:
		return "Choose a style first."
	case wizard.ChooseColors:
		return "Pick at least one colour first."
	case wizard.UploadLogo:
		return "Generate your mockup first."
	}
	return ""
}

// generate runs one image strategy for the owner's wizard. The store lock is
// held only to begin and finish, never across the model call.
func (h *Handler) generate(ctx context.Context, callbackID string, chatID int64, owner int64, gender wizard.Gender, gen wizard.Generator, caption func(wizard.Request) string) error {
	key := sessionKey(chatID, owner)
	if gen == nil {
		_ = h.tg.AnswerCallback(callbackID, "This preview is not available right now.", true)
		return nil
	}

	var (
		req       wizard.Request
		ok, inUse bool
	)
	h.sessions.Update(key, func(w *wizard.Wizard) {
		if _, pending := w.InFlight(); pending {
			inUse = true
			return
		}
		req, ok = w.BeginGenerate(gender)
	})
	switch {
	case inUse:
		_ = h.tg.AnswerCallback(callbackID, "Your mockup is already rendering…", false)
		return nil
	case !ok:
		_ = h.tg.AnswerCallback(callbackID, "Choose a style and at least one colour first.", true)
		return h.showPanel(chatID, owner, true)
	}

	_ = h.tg.AnswerCallback(callbackID, "Rendering mockup…", false)
	_ = h.showPanel(chatID, owner, true)
	h.tg.SendTyping(chatID)

	img, genErr := gen.Generate(ctx, req)

	var err error
	h.sessions.Update(key, func(w *wizard.Wizard) { err = w.FinishGenerate(img, genErr) })
	if err != nil {
		h.logger.Error("mockup generation failed", "err", err, "design", req.Design.ID, "gender", string(req.Gender))
		_ = h.tg.SendText(chatID, "❌ We encountered an issue crafting your mockup. Please try again.")
		return h.showPanel(chatID, owner, true)
	}

	h.logger.Info("mockup generated", "design", req.Design.ID, "gender", string(req.Gender), "colors", len(req.Colors))
	if err := h.tg.SendPhoto(chatID, img, caption(req)); err != nil {
		h.logger.Error("send mockup failed", "err", err)
	}
	h.forgetPanel(key)
	return h.showPanel(chatID, owner, false)
}

func mockupCaption(req wizard.Request) string {
	return fmt.Sprintf("✅ %s · %s model\nColours: %s", req.Design.Name, req.Gender.Label(), strings.Join(req.ColorNames(), ", "))
}

func tintCaption(req wizard.Request) string {
	return fmt.Sprintf("🎨 %s colour preview\nColour: %s", req.Design.Name, firstOr(req.ColorNames(), "none"))
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
