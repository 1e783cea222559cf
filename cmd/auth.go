package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DavidC001/meetingAssistant-sub001/credentials"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand(resolver DepsResolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API token",
		Long: `Manage the API token meetctl attaches to requests.

The token is encrypted at rest with a key held in the system keyring. On
hosts without a keyring, set ` + credentials.EnvEncryptionKey + ` or use
--passphrase to derive the key from a passphrase instead.

Examples:
  meetctl auth login                    Prompt for a token (no echo)
  meetctl auth login --passphrase       Keyring-free hosts
  meetctl auth status
  meetctl auth logout`,
	}

	cmd.AddCommand(newAuthLoginCommand(resolver))
	cmd.AddCommand(newAuthLogoutCommand(resolver))
	cmd.AddCommand(newAuthStatusCommand(resolver))
	return cmd
}

func newAuthLoginCommand(resolver DepsResolver) *cobra.Command {
	var usePassphrase bool
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}

			store := deps.Store
			if usePassphrase || store == nil {
				store, err = passphraseStore(c)
				if err != nil {
					return err
				}
			}

			token, err := promptSecret(c, "API token: ")
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("empty token")
			}

			creds := &credentials.Credentials{
				Token:     token,
				ServerURL: deps.Config.ServerURL,
			}
			if expiresIn > 0 {
				creds.ExpiresAt = time.Now().Add(expiresIn)
			}
			if err := store.Save(creds); err != nil {
				return fmt.Errorf("storing token: %w", err)
			}

			fmt.Fprintf(c.OutOrStdout(), "token stored for %s (%s)\n",
				deps.Config.ServerURL, store.KeyDescription())
			return nil
		},
	}

	cmd.Flags().BoolVar(&usePassphrase, "passphrase", false, "derive the encryption key from a passphrase instead of the keyring")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "mark the token as expiring after this duration (e.g. 720h)")
	return cmd
}

func newAuthLogoutCommand(resolver DepsResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored API token",
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			if deps.Store == nil {
				return fmt.Errorf("credential store unavailable")
			}
			if err := deps.Store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "token deleted")
			return nil
		},
	}
}

func newAuthStatusCommand(resolver DepsResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored and where its key lives",
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			if deps.Store == nil || !deps.Store.Exists() {
				fmt.Fprintln(out, "not logged in")
				return nil
			}

			creds, err := deps.Store.Load()
			if err != nil {
				return fmt.Errorf("reading stored token: %w", err)
			}
			printKV(out, "Token", credentials.MaskToken(creds.Token))
			printKV(out, "Server", creds.ServerURL)
			printKV(out, "Key", deps.Store.KeyDescription())
			if !creds.ExpiresAt.IsZero() {
				printKV(out, "Expires", creds.ExpiresAt.Format(time.RFC3339))
			}
			printKV(out, "Updated", creds.LastUpdated.Format(time.RFC3339))
			return nil
		},
	}
}

// passphraseStore builds a credential store keyed by a prompted passphrase.
func passphraseStore(c *cobra.Command) (TokenStore, error) {
	dir, err := credentials.CredentialsDir()
	if err != nil {
		return nil, err
	}
	salt, err := credentials.LoadOrCreateSalt(dir)
	if err != nil {
		return nil, err
	}
	passphrase, err := promptSecret(c, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	return credentials.NewStoreWithKeyProvider(credentials.NewPassphraseKeyProvider(passphrase, salt))
}

// promptSecret reads a secret without echo when stdin is a terminal, and
// falls back to a plain line read otherwise (pipes, tests).
func promptSecret(c *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(c.ErrOrStderr(), prompt)

	if f, ok := c.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	var line string
	if _, err := fmt.Fscanln(c.InOrStdin(), &line); err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
