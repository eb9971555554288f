package sharecard

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/reverie-api/internal/domain"
)

// Spec is the computed card geometry. Baselines are absolute pixel offsets from
// the top edge of the card.
type Spec struct {
	TitleLines       []string          `json:"title_lines"`
	SubtitleLines    []string          `json:"subtitle_lines"`
	TitleFontSize    int               `json:"title_font_size"`
	SubtitleFontSize int               `json:"subtitle_font_size"`
	BrandFontSize    int               `json:"brand_font_size"`
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	Padding          int               `json:"padding"`
	BrandRowHeight   int               `json:"brand_row_height"`
	TitleBaseline    int               `json:"title_baseline"`
	SubtitleBaseline int               `json:"subtitle_baseline"`
	BrandBaseline    int               `json:"brand_baseline"`
	Theme            domain.ColorTheme `json:"theme"`
}

// Density is the title length in runes divided by its line count.
func Density(title string, lines int) float64 {
	if lines == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(strings.TrimSpace(title))) / float64(lines)
}

// Compose computes the card geometry for title and subtitle.
func Compose(title, subtitle string, theme domain.ColorTheme, layout Layout) Spec {
	titleLines := Wrap(title, layout.TitleLineLimit)
	subtitleLines := Wrap(subtitle, layout.SubtitleLineLimit)

	titleFont := layout.TitleFontSize(Density(title, len(titleLines)))
	subtitleFont := layout.SubtitleFontSize

	titleBlock := float64(len(titleLines)) * float64(titleFont) * layout.TitleLineHeight
	subtitleBlock := float64(len(subtitleLines)) * float64(subtitleFont) * layout.SubtitleLineHeight

	height := float64(2*layout.Padding) +
		titleBlock +
		float64(layout.BlockGap) +
		subtitleBlock +
		float64(layout.BlockGap) +
		float64(layout.BrandRowHeight)

	titleBaseline := layout.Padding + titleFont
	lastTitleLine := float64(max(len(titleLines)-1, 0)) * float64(titleFont) * layout.TitleLineHeight
	subtitleBaseline := float64(titleBaseline) + lastTitleLine + float64(layout.BlockGap) + float64(subtitleFont)

	h := int(math.Round(height))

	return Spec{
		TitleLines:       titleLines,
		SubtitleLines:    subtitleLines,
		TitleFontSize:    titleFont,
		SubtitleFontSize: subtitleFont,
		BrandFontSize:    layout.BrandFontSize,
		Width:            layout.Width(),
		Height:           h,
		Padding:          layout.Padding,
		BrandRowHeight:   layout.BrandRowHeight,
		TitleBaseline:    titleBaseline,
		SubtitleBaseline: int(math.Round(subtitleBaseline)),
		BrandBaseline:    h - layout.Padding,
		Theme:            NormalizeTheme(theme),
	}
}
