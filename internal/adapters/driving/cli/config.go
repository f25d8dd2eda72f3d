package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration values",
	Long: `Reads and writes keys in config.toml. Keys are dot-separated, for example
sync.batch_size or gmail.client_id. Environment variables named
GUESTMAIL_<KEY> (dots as underscores) take precedence over the file.

Changes take effect the next time guestmail starts.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured values",
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return notConfigured("config")
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return notConfigured("config")
	}
	val, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(displayValue(args[0], val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return notConfigured("config")
	}
	key := strings.TrimSpace(args[0])
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("invalid key %q", args[0])
	}
	if err := configStore.Set(key, parseValue(args[1])); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("%s = %s\n", key, displayValue(key, parseValue(args[1])))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return notConfigured("config")
	}
	if _, ok := configStore.Get(args[0]); !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	if err := configStore.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("%s removed\n", args[0])
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return notConfigured("config")
	}
	keys := configStore.Keys()
	if len(keys) == 0 {
		cmd.Printf("No values set in %s; defaults apply.\n", configStore.Path())
		return nil
	}
	values := configStore.All()
	for _, key := range keys {
		cmd.Printf("%s = %s\n", key, displayValue(key, values[key]))
	}
	return nil
}

// parseValue stores integers and booleans with their TOML types.
func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "secret") || strings.Contains(key, "api_key") || strings.Contains(key, "password")
}

func displayValue(key string, val any) string {
	s := fmt.Sprint(val)
	if isSecretKey(key) {
		return maskSecret(s)
	}
	return s
}
