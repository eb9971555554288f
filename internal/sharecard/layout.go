package sharecard

// FontTier maps a maximum title density (runes per line) to a font size.
type FontTier struct {
	MaxDensity float64
	Size       int
}

// Layout holds the typographic and geometric constants of a card.
type Layout struct {
	TitleLineLimit    int
	SubtitleLineLimit int

	// TitleTiers is evaluated in order; the first tier whose MaxDensity is not
	// exceeded wins. MinTitleFontSize applies when no tier matches.
	TitleTiers       []FontTier
	MinTitleFontSize int
	SubtitleFontSize int
	BrandFontSize    int

	TitleLineHeight    float64
	SubtitleLineHeight float64

	WidthPerChar int
	MinWidth     int
	MaxWidth     int

	Padding        int
	BlockGap       int
	BrandRowHeight int
}

// DefaultLayout returns the layout used for every share card.
func DefaultLayout() Layout {
	return Layout{
		TitleLineLimit:    28,
		SubtitleLineLimit: 40,
		TitleTiers: []FontTier{
			{MaxDensity: 14, Size: 64},
			{MaxDensity: 20, Size: 56},
			{MaxDensity: 26, Size: 48},
		},
		MinTitleFontSize:   40,
		SubtitleFontSize:   28,
		BrandFontSize:      20,
		TitleLineHeight:    1.2,
		SubtitleLineHeight: 1.4,
		WidthPerChar:       22,
		MinWidth:           480,
		MaxWidth:           720,
		Padding:            48,
		BlockGap:           24,
		BrandRowHeight:     40,
	}
}

// TitleFontSize selects the title font size for density.
func (l Layout) TitleFontSize(density float64) int {
	for _, tier := range l.TitleTiers {
		if density <= tier.MaxDensity {
			return tier.Size
		}
	}
	return l.MinTitleFontSize
}

// Width returns the card width, clamped to [MinWidth, MaxWidth].
func (l Layout) Width() int {
	w := l.TitleLineLimit * l.WidthPerChar
	if w < l.MinWidth {
		return l.MinWidth
	}
	if w > l.MaxWidth {
		return l.MaxWidth
	}
	return w
}
