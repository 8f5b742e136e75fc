package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/adapter/crypto"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var (
	subjectFlag string
	ttlFlag     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the secured run endpoints",
	Long: `Mint an HMAC signed token granting the run permission. The secret is read
from JWT_SECRET and must match the server's.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sysCfg.JwtConfig.Enabled() {
			return fmt.Errorf("%w: JWT_SECRET is not set", errs.ErrGeneratingToken)
		}
		jwtSvc := crypto.NewJWTService(sysCfg.JwtConfig)
		token, expiresAt, err := jwtSvc.GenerateTokenHMAC(cmd.Context(), subjectFlag, []string{domain.PermissionRun}, ttlFlag)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(domain.TokenResponse{Token: token, ExpiresAt: expiresAt.Unix()})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&subjectFlag, "subject", "cli", "Token subject")
	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "Token lifetime (defaults to one hour)")
	rootCmd.AddCommand(tokenCmd)
}
