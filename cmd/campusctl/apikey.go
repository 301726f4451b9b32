package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/service"
)

var (
	keyName   string
	keyScopes string
	keyEnv    string
	keyFormat string
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage admin API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin API key",
	Long: `Creates an operator key for the /api/v1/admin endpoints.
The plaintext key is printed once and cannot be recovered.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apikeyShowCmd = &cobra.Command{
	Use:   "show <key-id>",
	Short: "Show an admin API key's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyShow,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an admin API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	apikeyCreateCmd.Flags().StringVar(&keyName, "name", "bootstrap", "Key name")
	apikeyCreateCmd.Flags().StringVar(&keyScopes, "scopes", "admin", "Comma-separated scopes (read,admin)")
	apikeyCreateCmd.Flags().StringVar(&keyEnv, "env", auth.EnvLive, "Key environment (live or test)")
	apikeyCreateCmd.Flags().StringVar(&keyFormat, "format", "plain", "Output format: plain or json")

	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyShowCmd, apikeyRevokeCmd)
}

type createdKey struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	if keyFormat != "plain" && keyFormat != "json" {
		return fmt.Errorf("unknown format %q", keyFormat)
	}

	ctx, repo, closeRepo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	keys := service.NewAPIKeyService(repo, keyEnv, newLogger(cmd.ErrOrStderr()))
	key, plaintext, err := keys.Create(ctx, keyName, splitScopes(keyScopes))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if keyFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(createdKey{ID: key.ID, Key: plaintext, KeyPrefix: key.KeyPrefix, Scopes: key.Scopes})
	}

	fmt.Fprintf(out, "id:     %s\n", key.ID)
	fmt.Fprintf(out, "key:    %s\n", plaintext)
	fmt.Fprintf(out, "scopes: %s\n", strings.Join(key.Scopes, ","))
	return nil
}

func runAPIKeyShow(cmd *cobra.Command, args []string) error {
	ctx, repo, closeRepo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	key, err := repo.GetAPIKeyByID(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:        %s\n", key.ID)
	fmt.Fprintf(out, "name:      %s\n", key.Name)
	fmt.Fprintf(out, "prefix:    %s\n", key.KeyPrefix)
	fmt.Fprintf(out, "scopes:    %s\n", strings.Join(key.Scopes, ","))
	fmt.Fprintf(out, "created:   %s\n", key.CreatedAt.Format(time.RFC3339))
	if key.LastUsedAt != nil {
		fmt.Fprintf(out, "last used: %s\n", key.LastUsedAt.Format(time.RFC3339))
	}
	if key.IsRevoked() {
		fmt.Fprintf(out, "revoked:   %s\n", key.RevokedAt.Format(time.RFC3339))
	}
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx, repo, closeRepo, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	keys := service.NewAPIKeyService(repo, auth.EnvLive, newLogger(cmd.ErrOrStderr()))
	if err := keys.Revoke(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
