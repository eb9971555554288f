package sharecard

import (
	"regexp"
	"strings"

	"github.com/phrazzld/reverie-api/internal/domain"
)

// DefaultTheme is used for any theme color that is not a valid hex color.
var DefaultTheme = domain.ColorTheme{
	Background: "#1E1B2E",
	Accent:     "#F2C14E",
	Text:       "#FFFFFF",
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)

// NormalizeTheme returns theme with every color as an upper-case "#RRGGBB" string.
func NormalizeTheme(theme domain.ColorTheme) domain.ColorTheme {
	return domain.ColorTheme{
		Background: normalizeHex(theme.Background, DefaultTheme.Background),
		Accent:     normalizeHex(theme.Accent, DefaultTheme.Accent),
		Text:       normalizeHex(theme.Text, DefaultTheme.Text),
	}
}

func normalizeHex(value, fallback string) string {
	value = strings.TrimSpace(value)
	m := hexColor.FindStringSubmatch(value)
	if m == nil {
		return fallback
	}
	digits := strings.ToUpper(m[1])
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	return "#" + digits
}
