package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mgpai22/subtake/internal/config"
)

var providers = []string{"gemini", "openai", "anthropic"}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider API keys in the OS keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set [provider]",
	Short: "Store an API key for a provider",
	Long: `Prompt for an API key and store it in the OS keyring. Keys set in the
environment (or a .env file) take precedence over stored ones.

Examples:
  subtake auth set gemini
  echo "$KEY" | subtake auth set openai`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: providers,
	RunE:      runAuthSet,
}

var authRemoveCmd = &cobra.Command{
	Use:       "rm [provider]",
	Short:     "Remove a stored API key",
	Args:      cobra.ExactArgs(1),
	ValidArgs: providers,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := checkProvider(args[0])
		if err != nil {
			return err
		}
		if err := config.DeleteAPIKey(provider); err != nil {
			return err
		}
		fmt.Printf("Removed %s API key\n", provider)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where each provider's API key comes from",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range providers {
			source := "not set"
			if os.Getenv(config.EnvVar(p)) != "" {
				source = "environment (" + config.EnvVar(p) + ")"
			} else if key, err := config.APIKey(p); err != nil {
				logger.Warnw("Keyring lookup failed", "provider", p, "error", err)
				source = "keyring unavailable"
			} else if key != "" {
				source = "keyring"
			}
			fmt.Printf("  %-10s %s\n", p, source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authRemoveCmd, authStatusCmd)
}

func checkProvider(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range providers {
		if p == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q: use %s", name, strings.Join(providers, ", "))
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	provider, err := checkProvider(args[0])
	if err != nil {
		return err
	}

	var key string
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Printf("%s API key: ", provider)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		key = string(raw)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read API key from stdin: %w", err)
		}
		key = line
	}

	if err := config.StoreAPIKey(provider, key); err != nil {
		return err
	}
	fmt.Printf("Stored %s API key in the keyring\n", provider)
	return nil
}
