package cloudinary

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/sharecard"
)

// Composer implements generation.ImageComposer with transformation URLs.
type Composer struct {
	cld *cloudinary.Cloudinary
}

var _ generation.ImageComposer = (*Composer)(nil)

// NewComposer creates a composer for cld.
func NewComposer(cld *cloudinary.Cloudinary) *Composer {
	return &Composer{cld: cld}
}

// Compose returns the delivery URL of recipe rendered on its base image.
func (c *Composer) Compose(ctx context.Context, recipe sharecard.Recipe) (string, error) {
	if recipe.BaseImageID == "" {
		return "", generation.NewServiceError(serviceName, "compose",
			fmt.Errorf("%w: recipe has no base image", generation.ErrInvalidResponse))
	}

	img, err := c.cld.Image(recipe.BaseImageID)
	if err != nil {
		return "", generation.NewServiceError(serviceName, "compose", err)
	}
	img.Transformation = BuildTransformation(recipe)

	u, err := img.String()
	if err != nil {
		return "", generation.NewServiceError(serviceName, "compose", err)
	}
	return u, nil
}

// BuildTransformation renders recipe as a chained Cloudinary transformation.
// Layers are applied in recipe order.
func BuildTransformation(recipe sharecard.Recipe) string {
	var steps []string
	for _, layer := range recipe.Layers {
		switch layer.Kind {
		case sharecard.LayerBackgroundBlur:
			steps = append(steps,
				fmt.Sprintf("c_fill,w_%d,h_%d", layer.Width, layer.Height),
				"e_blur:"+strconv.Itoa(layer.Blur))
		case sharecard.LayerCard:
			source := layer.ImageID
			if source == "" {
				source = recipe.BaseImageID
			}
			steps = append(steps,
				fmt.Sprintf("l_%s,c_fill,w_%d,h_%d,e_colorize:100,co_%s,o_%d",
					overlayID(source), layer.Width, layer.Height, rgb(layer.Color), layer.Opacity),
				applyAt(layer))
		case sharecard.LayerTitle, sharecard.LayerSubtitle, sharecard.LayerBrandText:
			steps = append(steps,
				fmt.Sprintf("l_text:%s_%d:%s,co_%s",
					escapeText(layer.Font), layer.FontSize, escapeText(layer.Text), rgb(layer.Color)),
				applyAt(layer))
		case sharecard.LayerBrandMark:
			steps = append(steps,
				fmt.Sprintf("l_%s,c_fit,w_%d,h_%d", overlayID(layer.ImageID), layer.Width, layer.Height),
				applyAt(layer))
		}
	}
	return strings.Join(steps, "/")
}

func applyAt(layer sharecard.Layer) string {
	return fmt.Sprintf("fl_layer_apply,g_north_west,x_%d,y_%d", layer.X, layer.Y)
}

// overlayID converts a public ID to overlay syntax, where folders use ':'.
func overlayID(publicID string) string {
	return strings.ReplaceAll(publicID, "/", ":")
}

// rgb converts "#RRGGBB" to "rgb:RRGGBB".
func rgb(hex string) string {
	return "rgb:" + strings.TrimPrefix(hex, "#")
}

// escapeText encodes overlay text. Commas and slashes must be double-escaped
// because Cloudinary decodes the text once before parsing the transformation.
func escapeText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case ',':
			sb.WriteString("%252C")
		case '/':
			sb.WriteString("%252F")
		case '\n':
			sb.WriteString("%0A")
		case ':':
			sb.WriteString("%3A")
		default:
			sb.WriteString(url.PathEscape(string(r)))
		}
	}
	return sb.String()
}
