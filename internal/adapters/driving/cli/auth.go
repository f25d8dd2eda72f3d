package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage mailbox and inference credentials",
	Long: `Authorise guestmail to read the hotel mailbox and store the inference API key.

The Gmail OAuth client is configured with:
  guestmail config set gmail.client_id <id>
  guestmail config set gmail.client_secret <secret>

Tokens and keys are kept in the OS keyring, or an encrypted file where no
keyring is available.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorise access to the Gmail mailbox",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored Gmail token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which account is authorised",
	RunE:  runAuthStatus,
}

var authLLMKeyCmd = &cobra.Command{
	Use:   "llm-key",
	Short: "Store the inference API key in the keyring",
	Long: `Prompts for the inference API key and stores it in the keyring. A key set
in config.toml or GUESTMAIL_LLM_API_KEY takes precedence.`,
	RunE: runAuthLLMKey,
}

// readSecret reads a line without echo when stdin is a terminal.
var readSecret = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLLMKeyCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if mailboxAuth == nil {
		return notConfigured("auth")
	}
	account, err := mailboxAuth.Login(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	cmd.Printf("Authorised %s.\n", account)
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if mailboxAuth == nil {
		return notConfigured("auth")
	}
	if err := mailboxAuth.Logout(); err != nil {
		return err
	}
	cmd.Println("Gmail token removed.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if mailboxAuth == nil {
		return notConfigured("auth")
	}
	account, err := mailboxAuth.Account(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		cmd.Println("Gmail: not authorised. Run 'guestmail auth login'.")
	case errors.Is(err, domain.ErrAuthExpired):
		cmd.Println("Gmail: authorisation expired or revoked. Run 'guestmail auth login'.")
	case err != nil:
		return err
	default:
		cmd.Printf("Gmail: %s\n", account)
	}

	if secretStore != nil {
		if _, err := secretStore.Get(driven.SecretLLMAPIKey); err == nil {
			cmd.Println("Inference API key: stored in keyring")
		} else {
			cmd.Println("Inference API key: not in keyring")
		}
	}
	return nil
}

func runAuthLLMKey(cmd *cobra.Command, _ []string) error {
	if secretStore == nil {
		return notConfigured("secret")
	}
	cmd.Print("API key: ")
	key, err := readSecret()
	cmd.Println()
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	if key == "" {
		return errors.New("no key entered")
	}
	if err := secretStore.Set(driven.SecretLLMAPIKey, []byte(key)); err != nil {
		return fmt.Errorf("storing key: %w", err)
	}
	cmd.Printf("Stored key %s.\n", maskSecret(key))
	return nil
}
