package mockup

import (
	"fmt"
	"strings"

	"classic-jersey-studio/internal/wizard"
)

const AspectRatio = "3:4"

type persona struct {
	Noun        string
	Description string
}

var personas = map[wizard.Gender]persona{
	wizard.Mens: {
		Noun:        "young man",
		Description: "A young male student of Indigenous Australian and Māori heritage. He has striking light blue eyes and an athletic, lean muscular build. His hair is a messy textured taper-fade (no mullet).",
	},
	wizard.Womens: {
		Noun:        "young woman",
		Description: "A naturally beautiful 18-year-old school student with a sun-kissed look. She has beachy blonde hair styled in loose, natural waves. She has striking blue eyes and light, natural freckles across her nose and cheeks. She has a graceful, athletic posture.",
	},
}

var technicalSpecs = []string{
	"Hyper-realistic portrait, 8k resolution.",
	"Shot on 85mm lens, medium-full shot framing.",
	"VISIBILITY: The entire jersey MUST be fully visible from collar to bottom hem.",
	"BOTTOM DETAIL: Include a small portion of the top of their tailored school trousers/skirt at the very bottom of the frame to show the full fit.",
	"Professional studio lighting, clean and minimalist.",
	"Solid neutral light gray background.",
	"Natural, confident expression.",
}

var embroideryLines = []string{
	"Take the second attached image (school logo) and render it as a realistic embroidered badge.",
	"Placement: On the model's RIGHT CHEST (viewer's LEFT), exactly opposite the 'Classic' logo branding.",
	"The result should show both logos: 'Classic' on the model's left, and the school logo on the model's right.",
	"Ensure the stitching texture of the logo is visible and detailed.",
}

// BuildPrompt returns the main instruction text for a mockup of styleName in
// colors, worn by the persona for gender.
func BuildPrompt(styleName string, colors []string, gender wizard.Gender) string {
	p, ok := personas[gender]
	if !ok {
		p = personas[wizard.Mens]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: Create a professional e-commerce product mockup of a %s wearing a custom rugby jersey.\n", p.Noun)

	writeSection(&b, "SUBJECT DESCRIPTION", []string{p.Description}, false)
	writeSection(&b, "TECHNICAL SPECS", technicalSpecs, true)
	writeSection(&b, "DESIGN INTEGRITY", []string{
		"The rugby jersey MUST be an identical replica of the pattern, stripes, and layout shown in the attached reference jersey image.",
		fmt.Sprintf("Style Name: %s.", styleName),
		fmt.Sprintf("Colors: Apply the colours %s strictly to the stripes/panels defined by the template.", strings.Join(colors, " and ")),
	}, false)
	writeSection(&b, "MANDATORY BRANDING", []string{
		"The 'Classic' brand logo (as seen in the template) MUST be preserved in its original position on the model's LEFT chest (viewer's RIGHT). It should be clearly rendered and sharp.",
	}, false)
	b.WriteString("\nMANDATORY RULE: The collar MUST remain pure WHITE. No exceptions.\n")
	b.WriteString("\nThe goal is a high-resolution, professional studio shot for a premium apparel brand.")

	return b.String()
}

// EmbroideryPrompt is sent after the logo image when one is supplied.
func EmbroideryPrompt() string {
	var b strings.Builder
	writeSection(&b, "EMBROIDERY DETAIL", embroideryLines, false)
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title string, lines []string, bullets bool) {
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString(":\n")
	for _, line := range lines {
		if bullets {
			b.WriteString("- ")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
