package sharecard

import "strings"

// LayerKind identifies a recipe layer.
type LayerKind string

// Layer kinds, in the order they are stacked.
const (
	LayerBackgroundBlur LayerKind = "background_blur"
	LayerCard           LayerKind = "card"
	LayerTitle          LayerKind = "title"
	LayerSubtitle       LayerKind = "subtitle"
	LayerBrandMark      LayerKind = "brand_mark"
	LayerBrandText      LayerKind = "brand_text"
)

// Branding names the static assets and text stamped onto every card.
type Branding struct {
	PanelID     string
	BrandMarkID string
	BrandText   string
	FontFamily  string
}

// Layer is one positioned element of the overlay. X and Y are offsets of the
// layer's top-left corner from the top-left corner of the card.
type Layer struct {
	Kind     LayerKind `json:"kind"`
	ImageID  string    `json:"image_id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Font     string    `json:"font,omitempty"`
	FontSize int       `json:"font_size,omitempty"`
	Color    string    `json:"color,omitempty"`
	Opacity  int       `json:"opacity,omitempty"`
	Blur     int       `json:"blur,omitempty"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
}

// Recipe is the overlay description handed to the compositing service.
type Recipe struct {
	BaseImageID string  `json:"base_image_id"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Layers      []Layer `json:"layers"`
}

// Blur strength and card opacity applied to every recipe.
const (
	BackgroundBlur = 800
	CardOpacity    = 70
	cardInset      = 16
)

// BuildRecipe positions the layers of spec on top of baseImageID.
func BuildRecipe(spec Spec, baseImageID string, brand Branding) Recipe {
	theme := NormalizeTheme(spec.Theme)
	font := brand.FontFamily
	if font == "" {
		font = "Arial"
	}

	layers := []Layer{
		{
			Kind:   LayerBackgroundBlur,
			Blur:   BackgroundBlur,
			Width:  spec.Width,
			Height: spec.Height,
		},
		{
			Kind:    LayerCard,
			ImageID: brand.PanelID,
			Color:   theme.Background,
			Opacity: CardOpacity,
			X:       cardInset,
			Y:       cardInset,
			Width:   spec.Width - 2*cardInset,
			Height:  spec.Height - 2*cardInset,
		},
	}

	if len(spec.TitleLines) > 0 {
		layers = append(layers, Layer{
			Kind:     LayerTitle,
			Text:     strings.Join(spec.TitleLines, "\n"),
			Font:     font,
			FontSize: spec.TitleFontSize,
			Color:    theme.Text,
			X:        spec.Padding,
			Y:        spec.TitleBaseline - spec.TitleFontSize,
		})
	}

	if len(spec.SubtitleLines) > 0 {
		layers = append(layers, Layer{
			Kind:     LayerSubtitle,
			Text:     strings.Join(spec.SubtitleLines, "\n"),
			Font:     font,
			FontSize: spec.SubtitleFontSize,
			Color:    theme.Accent,
			X:        spec.Padding,
			Y:        spec.SubtitleBaseline - spec.SubtitleFontSize,
		})
	}

	if brand.BrandMarkID != "" {
		layers = append(layers, Layer{
			Kind:    LayerBrandMark,
			ImageID: brand.BrandMarkID,
			X:       spec.Padding,
			Y:       spec.BrandBaseline - spec.BrandRowHeight,
			Width:   spec.BrandRowHeight,
			Height:  spec.BrandRowHeight,
		})
	}

	if brand.BrandText != "" {
		layers = append(layers, Layer{
			Kind:     LayerBrandText,
			Text:     brand.BrandText,
			Font:     font,
			FontSize: spec.BrandFontSize,
			Color:    theme.Text,
			X:        spec.Padding + spec.BrandRowHeight + spec.BrandFontSize/2,
			Y:        spec.BrandBaseline - spec.BrandFontSize,
		})
	}

	return Recipe{
		BaseImageID: baseImageID,
		Width:       spec.Width,
		Height:      spec.Height,
		Layers:      layers,
	}
}
