package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/service/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mints an access token for an owner, for development and support",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ownerID := uuid.New()
		if raw := viper.GetString("token.owner"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid owner ID: %w", err)
			}
			ownerID = parsed
		}

		svc, err := auth.NewJWTService(config.AuthConfig{
			JWTSecret:            viper.GetString("auth.jwt_secret"),
			TokenLifetimeMinutes: viper.GetInt("auth.token_lifetime_minutes"),
		})
		if err != nil {
			return err
		}

		token, err := svc.GenerateToken(cmd.Context(), ownerID)
		if err != nil {
			return err
		}

		log.Debug("token minted", "owner_id", ownerID)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "owner_id: %s\ntoken: %s\n", ownerID, token)
		return err
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	tokenCmd.Flags().String("owner", "", "Owner ID (random when empty)")
	tokenCmd.Flags().String("secret", "", "JWT signing secret (defaults to REVERIE_AUTH_JWT_SECRET)")
	tokenCmd.Flags().Int("lifetime", 60, "Token lifetime in minutes")

	for key, flag := range map[string]string{
		"token.owner":                 "owner",
		"auth.jwt_secret":             "secret",
		"auth.token_lifetime_minutes": "lifetime",
	} {
		if err := viper.BindPFlag(key, tokenCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(tokenCmd)
}
