package generation

import (
	"fmt"
	"strings"

	"github.com/phrazzld/reverie-api/internal/domain"
)

// maxPromptThemes bounds the number of theme fragments carried into an image prompt.
const maxPromptThemes = 3

// BuildImagePrompt derives the illustration prompt from an analysis.
func BuildImagePrompt(result *domain.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("A dreamlike, painterly illustration with no text or lettering.")
	if vibe := strings.TrimSpace(result.Vibe); vibe != "" {
		fmt.Fprintf(&b, " Mood: %s.", vibe)
	}
	if state := strings.TrimSpace(result.DeepAnalysis.EmotionalState); state != "" {
		fmt.Fprintf(&b, " Emotional tone: %s.", state)
	}

	var themes []string
	for _, theme := range strings.Split(result.DeepAnalysis.CoreThemes, ",") {
		if theme = strings.TrimSpace(theme); theme != "" {
			themes = append(themes, theme)
		}
		if len(themes) == maxPromptThemes {
			break
		}
	}
	if len(themes) > 0 {
		fmt.Fprintf(&b, " Themes: %s.", strings.Join(themes, ", "))
	}

	theme := result.ShareMetadata.ColorTheme
	if theme.Background != "" || theme.Accent != "" {
		fmt.Fprintf(&b, " Palette built around %s and %s.", theme.Background, theme.Accent)
	}
	fmt.Fprintf(&b, " Archetype: the %s.", result.PersonalityType)

	return b.String()
}
