package wizard

import (
	"context"
	"slices"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/media"
)

// Design is the user's accumulated selection.
type Design struct {
	DesignID   string
	ColorHexes []string
	Logo       *media.Image
	Result     *media.Image
}

func (d Design) clone() Design {
	out := d
	out.ColorHexes = slices.Clone(d.ColorHexes)
	return out
}

// Request carries everything an image strategy needs to render a mockup.
type Request struct {
	Design catalog.Design
	Colors []catalog.Color
	Logo   *media.Image
	Gender Gender
}

func (r Request) ColorNames() []string {
	out := make([]string, 0, len(r.Colors))
	for _, c := range r.Colors {
		out = append(out, c.Name)
	}
	return out
}

func (r Request) ColorHexes() []string {
	out := make([]string, 0, len(r.Colors))
	for _, c := range r.Colors {
		out = append(out, c.Hex)
	}
	return out
}

// Generator produces the result image for a request. The AI mockup
// generator and the local tint renderer both implement it.
type Generator interface {
	Generate(ctx context.Context, req Request) (media.Image, error)
}

// Wizard is the five-step customizer state machine. It is not safe for
// concurrent use; session.Store serializes access.
type Wizard struct {
	catalog  *catalog.Catalog
	step     Step
	design   Design
	inFlight Gender
}

func New(c *catalog.Catalog) *Wizard {
	if c == nil {
		c = catalog.Default()
	}
	return &Wizard{catalog: c}
}

func (w *Wizard) Catalog() *catalog.Catalog { return w.catalog }

func (w *Wizard) Step() Step { return w.step }

// Design returns a copy of the current selection.
func (w *Wizard) Design() Design { return w.design.clone() }

// InFlight reports the gender of a pending generation, if any.
func (w *Wizard) InFlight() (Gender, bool) {
	return w.inFlight, w.inFlight != ""
}

// Selected looks up the active design template.
func (w *Wizard) Selected() (catalog.Design, bool) {
	if w.design.DesignID == "" {
		return catalog.Design{}, false
	}
	return w.catalog.FindDesign(w.design.DesignID)
}

func (w *Wizard) SelectedColors() []catalog.Color {
	out := make([]catalog.Color, 0, len(w.design.ColorHexes))
	for _, h := range w.design.ColorHexes {
		if c, ok := w.catalog.FindColor(h); ok {
			out = append(out, c)
		}
	}
	return out
}

func (w *Wizard) ColorNames() []string {
	return w.catalog.ColorNames(w.design.ColorHexes)
}

// MaxColors is the color limit of the active design, or the default limit.
func (w *Wizard) MaxColors() int {
	if d, ok := w.Selected(); ok {
		return d.MaxColors
	}
	return catalog.DefaultMaxColors
}

func (w *Wizard) IsColorSelected(hex string) bool {
	return slices.Contains(w.design.ColorHexes, catalog.NormalizeHex(hex))
}

// CanAdvance reports whether Next would move from the current step.
func (w *Wizard) CanAdvance() bool {
	switch w.step {
	case Landing:
		return true
	case ChooseDesign:
		_, ok := w.Selected()
		return ok
	case ChooseColors:
		return len(w.design.ColorHexes) > 0
	case UploadLogo:
		return w.design.Result != nil
	}
	return false
}

// Next advances one step when the current step is complete.
func (w *Wizard) Next() bool {
	if !w.CanAdvance() {
		return false
	}
	w.step++
	return true
}

// Back reverses one step. It does nothing on Landing.
func (w *Wizard) Back() bool {
	if w.step == Landing {
		return false
	}
	w.step--
	return true
}

// SelectDesign sets the template on ChooseDesign, truncates the colors to its
// limit and advances one step. Unknown ids and calls on any other step are
// ignored.
func (w *Wizard) SelectDesign(id string) bool {
	if w.step != ChooseDesign {
		return false
	}
	d, ok := w.catalog.FindDesign(id)
	if !ok {
		return false
	}
	if d.ID != w.design.DesignID {
		w.design.DesignID = d.ID
		w.invalidateResult()
	}
	if len(w.design.ColorHexes) > d.MaxColors {
		w.design.ColorHexes = slices.Clone(w.design.ColorHexes[:d.MaxColors])
		w.invalidateResult()
	}
	w.step++
	return true
}

// ToggleColor removes a chosen color or appends a new one while below the
// design's limit. Unknown colors and over-capacity adds are ignored.
func (w *Wizard) ToggleColor(hex string) bool {
	col, ok := w.catalog.FindColor(hex)
	if !ok {
		return false
	}
	if i := slices.Index(w.design.ColorHexes, col.Hex); i >= 0 {
		w.design.ColorHexes = slices.Delete(slices.Clone(w.design.ColorHexes), i, i+1)
		w.invalidateResult()
		return true
	}
	if len(w.design.ColorHexes) >= w.MaxColors() {
		return false
	}
	w.design.ColorHexes = append(slices.Clone(w.design.ColorHexes), col.Hex)
	w.invalidateResult()
	return true
}

// invalidateResult drops a result that no longer matches the selection.
// Preview never shows without a result, so it falls back to UploadLogo.
func (w *Wizard) invalidateResult() {
	w.design.Result = nil
	if w.step == Preview {
		w.step = UploadLogo
	}
}

// SetLogo replaces the logo. A previous result is dropped since it shows the
// old logo.
func (w *Wizard) SetLogo(img media.Image) {
	if img.Empty() {
		return
	}
	w.design.Logo = &img
	w.invalidateResult()
}

func (w *Wizard) ClearLogo() {
	if w.design.Logo == nil {
		return
	}
	w.design.Logo = nil
	w.invalidateResult()
}

// Reset discards every selection and returns to Landing.
func (w *Wizard) Reset() {
	w.step = Landing
	w.design = Design{}
	w.inFlight = ""
}

// BeginGenerate checks the guard, marks a generation in flight for gender and
// returns the request to run. It returns false when no design or no color is
// selected. A pending generation is not rejected here; front ends refuse the
// trigger while InFlight reports true.
func (w *Wizard) BeginGenerate(g Gender) (Request, bool) {
	d, ok := w.Selected()
	if !ok || len(w.design.ColorHexes) == 0 {
		return Request{}, false
	}
	if g != Mens && g != Womens {
		return Request{}, false
	}

	w.inFlight = g
	req := Request{
		Design: d,
		Colors: w.SelectedColors(),
		Gender: g,
	}
	if w.design.Logo != nil {
		logo := *w.design.Logo
		req.Logo = &logo
	}
	return req, true
}

// FinishGenerate clears the in-flight marker. On success it stores the result
// and moves to Preview; on failure the step is left unchanged and err is
// returned.
func (w *Wizard) FinishGenerate(img media.Image, err error) error {
	w.inFlight = ""
	if err != nil {
		return err
	}
	w.design.Result = &img
	w.step = Preview
	return nil
}

// Generate runs the whole generate transition with gen. It is a no-op
// returning nil when the guard does not pass.
func (w *Wizard) Generate(ctx context.Context, g Gender, gen Generator) error {
	req, ok := w.BeginGenerate(g)
	if !ok {
		return nil
	}
	img, err := gen.Generate(ctx, req)
	return w.FinishGenerate(img, err)
}
