package wizard

import "strings"

type Step int

const (
	Landing Step = iota
	ChooseDesign
	ChooseColors
	UploadLogo
	Preview
)

var stepNames = [...]string{
	Landing:      "landing",
	ChooseDesign: "design",
	ChooseColors: "colors",
	UploadLogo:   "logo",
	Preview:      "preview",
}

func (s Step) String() string {
	if s < Landing || s > Preview {
		return "unknown"
	}
	return stepNames[s]
}

// Steps lists every step in wizard order.
func Steps() []Step {
	return []Step{Landing, ChooseDesign, ChooseColors, UploadLogo, Preview}
}

// Gender selects the model persona of an AI mockup.
type Gender string

const (
	Mens   Gender = "mens"
	Womens Gender = "womens"
)

func ParseGender(value string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mens", "men", "male", "m":
		return Mens, true
	case "womens", "women", "female", "w", "f":
		return Womens, true
	}
	return "", false
}

func (g Gender) Label() string {
	switch g {
	case Mens:
		return "Men's"
	case Womens:
		return "Women's"
	}
	return string(g)
}
