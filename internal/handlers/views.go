package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"classic-jersey-studio/internal/wizard"
)

const callbackPrefix = "jw"

type screen struct {
	text     string
	keyboard tgbotapi.InlineKeyboardMarkup
}

type viewFunc func(owner int64, w *wizard.Wizard) screen

// views maps each wizard step to its panel.
var views = map[wizard.Step]viewFunc{
	wizard.Landing:      landingView,
	wizard.ChooseDesign: designView,
	wizard.ChooseColors: colorsView,
	wizard.UploadLogo:   logoView,
	wizard.Preview:      previewView,
}

func render(owner int64, w *wizard.Wizard) screen {
	view, ok := views[w.Step()]
	if !ok {
		view = landingView
	}
	return view(owner, w)
}

func landingView(owner int64, _ *wizard.Wizard) screen {
	text := "🎓 School Leavers\n\n" +
		"Make it Classic.\n\n" +
		"Design your leavers jersey in a few taps: pick a style, choose your colours, " +
		"add your school logo and see it worn by a model."
	return screen{
		text: text,
		keyboard: tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✨ Start designing", cb(owner, "start")),
			),
		),
	}
}

func designView(owner int64, w *wizard.Wizard) screen {
	selected, hasSelected := w.Selected()

	var b strings.Builder
	b.WriteString("Step 1/4 · Choose your Style\n")
	b.WriteString("Select from one of our top three best sellers.\n\n")
	for _, d := range w.Catalog().Designs() {
		mark := "▫️"
		if hasSelected && d.ID == selected.ID {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s (up to %d colours)\n", mark, d.Name, d.MaxColors)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range w.Catalog().Designs() {
		label := d.Name
		if hasSelected && d.ID == selected.ID {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cb(owner, "design", d.ID)),
		))
	}
	rows = append(rows, navRow(owner, w, "next"))

	return screen{text: strings.TrimSpace(b.String()), keyboard: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

func colorsView(owner int64, w *wizard.Wizard) screen {
	limit := w.MaxColors()
	names := w.ColorNames()

	var b strings.Builder
	b.WriteString("Step 2/4 · Select your Colours\n")
	if d, ok := w.Selected(); ok {
		fmt.Fprintf(&b, "Design: %s\n", d.Name)
	}
	fmt.Fprintf(&b, "Pick up to %d colours (%d/%d).\n", limit, len(names), limit)
	if len(names) > 0 {
		fmt.Fprintf(&b, "\nSelected: %s", strings.Join(names, ", "))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range w.Catalog().Colors() {
		label := c.Name
		if w.IsColorSelected(c.Hex) {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(owner, "color", c.Hex)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, navRow(owner, w, "colors_done"))

	return screen{text: strings.TrimSpace(b.String()), keyboard: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

func logoView(owner int64, w *wizard.Wizard) screen {
	design := w.Design()
	pending, inFlight := w.InFlight()

	var b strings.Builder
	b.WriteString("Step 3/4 · Add Your Logo\n")
	b.WriteString("Upload your school logo to be placed on the chest.\n")
	b.WriteString("Send it as a photo, or as a PNG/JPG file (transparent recommended).\n\n")
	if design.Logo != nil {
		b.WriteString("Logo: received ✅\n")
	} else {
		b.WriteString("Logo: none (optional)\n")
	}
	if inFlight {
		fmt.Fprintf(&b, "\n⏳ Rendering your %s mockup…", pending.Label())
		return screen{
			text:     strings.TrimSpace(b.String()),
			keyboard: tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
		}
	}
	b.WriteString("\nThen choose a model to see your jersey.")

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👕 Generate Mens", cb(owner, "gen", string(wizard.Mens))),
			tgbotapi.NewInlineKeyboardButtonData("👚 Generate Womens", cb(owner, "gen", string(wizard.Womens))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎨 Quick colour preview", cb(owner, "tint")),
		),
	}
	if design.Logo != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Remove logo", cb(owner, "logo_clear")),
		))
	}
	rows = append(rows, navRow(owner, w, "next"))

	return screen{text: strings.TrimSpace(b.String()), keyboard: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

func previewView(owner int64, w *wizard.Wizard) screen {
	var b strings.Builder
	b.WriteString("Visualisation Complete\n")
	b.WriteString("Your legacy, made real.\n\n")
	if d, ok := w.Selected(); ok {
		fmt.Fprintf(&b, "Style: %s\n", d.Name)
	}
	fmt.Fprintf(&b, "Colours: %s\n", strings.Join(w.ColorNames(), ", "))
	if w.Design().Logo != nil {
		b.WriteString("Logo: included\n")
	}
	b.WriteString("\nYour design is ready for review.")

	return screen{
		text: strings.TrimSpace(b.String()),
		keyboard: tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📨 Request a quote", cb(owner, "quote")),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(owner, "back")),
				tgbotapi.NewInlineKeyboardButtonData("↺ Start over", cb(owner, "reset")),
			),
		),
	}
}

// navRow is Back plus a forward button that only appears once the step is
// complete.
func navRow(owner int64, w *wizard.Wizard, forward string) []tgbotapi.InlineKeyboardButton {
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(owner, "back")),
	)
	if w.CanAdvance() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Continue ➡", cb(owner, forward)))
	}
	return row
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}
