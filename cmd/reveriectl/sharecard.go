package main

import (
	"encoding/json"
	"fmt"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/platform/cloudinary"
	"github.com/phrazzld/reverie-api/internal/sharecard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shareCardOpts struct {
	title      string
	subtitle   string
	background string
	accent     string
	text       string
	baseImage  string
	renderURL  bool
}

// shareCardOutput is what the sharecard command prints.
type shareCardOutput struct {
	Spec   sharecard.Spec   `json:"spec"`
	Recipe sharecard.Recipe `json:"recipe"`
	URL    string           `json:"url,omitempty"`
}

var shareCardCmd = &cobra.Command{
	Use:   "sharecard",
	Short: "Prints the share card geometry and overlay recipe for a title and subtitle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		theme := domain.ColorTheme{
			Background: shareCardOpts.background,
			Accent:     shareCardOpts.accent,
			Text:       shareCardOpts.text,
		}
		spec := sharecard.Compose(shareCardOpts.title, shareCardOpts.subtitle, theme, sharecard.DefaultLayout())
		recipe := sharecard.BuildRecipe(spec, shareCardOpts.baseImage, sharecard.Branding{
			PanelID:     viper.GetString("image_host.panel_id"),
			BrandMarkID: viper.GetString("image_host.brand_mark_id"),
			BrandText:   viper.GetString("pipeline.brand_text"),
		})

		out := shareCardOutput{Spec: spec, Recipe: recipe}
		if shareCardOpts.renderURL {
			cld, err := cloudinary.NewClient(config.ImageHostConfig{
				CloudName: viper.GetString("image_host.cloud_name"),
				APIKey:    viper.GetString("image_host.api_key"),
				APISecret: viper.GetString("image_host.api_secret"),
			})
			if err != nil {
				return err
			}
			out.URL, err = cloudinary.NewComposer(cld).Compose(cmd.Context(), recipe)
			if err != nil {
				return fmt.Errorf("render share card URL: %w", err)
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	f := shareCardCmd.Flags()
	f.StringVar(&shareCardOpts.title, "title", "", "Card title")
	f.StringVar(&shareCardOpts.subtitle, "subtitle", "", "Card subtitle")
	f.StringVar(&shareCardOpts.background, "background", "", "Background color as hex")
	f.StringVar(&shareCardOpts.accent, "accent", "", "Accent color as hex")
	f.StringVar(&shareCardOpts.text, "text", "", "Text color as hex")
	f.StringVar(&shareCardOpts.baseImage, "base-image", "reverie/sample", "Public ID of the base image")
	f.BoolVar(&shareCardOpts.renderURL, "url", false, "Also render the transformation URL (needs REVERIE_IMAGE_HOST_* credentials)")
	_ = shareCardCmd.MarkFlagRequired("title")

	viper.SetDefault("image_host.panel_id", "reverie:panel")
	viper.SetDefault("image_host.brand_mark_id", "reverie:brand-mark")
	viper.SetDefault("pipeline.brand_text", "reverie")
	rootCmd.AddCommand(shareCardCmd)
}
