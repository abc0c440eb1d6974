package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/termax/internal/config"
	"github.com/felixgeelhaar/termax/internal/provider"
	"github.com/felixgeelhaar/termax/internal/ui/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value (e.g. general.platform openai)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		if err := getConfigManager(s).Set(args[0], args[1]); err != nil {
			exitErr("Failed to set config", err)
		}
		fmt.Printf("Configuration saved: %s\n", args[0])
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		val, err := getConfigManager(s).Get(args[0])
		if err != nil {
			exitErr("Error", err)
		}
		if val == "" {
			fmt.Println("(not set)")
		} else {
			fmt.Println(val)
		}
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		if err := getConfigManager(s).Unset(args[0]); err != nil {
			exitErr("Failed to unset config", err)
		}
		fmt.Printf("Configuration removed: %s\n", args[0])
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration values with secrets masked",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		all, err := getConfigManager(s).List(true)
		if err != nil {
			exitErr("Failed to list config", err)
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %s\n", k, all[k])
		}
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load configuration from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		keys, err := getConfigManager(s).Import(args[0])
		if err != nil {
			exitErr("Failed to import config", err)
		}
		fmt.Printf("Imported %d keys: %s\n", len(keys), strings.Join(keys, ", "))
	},
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose a platform and enter its credentials",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !tui.Interactive() {
			exitErr("Setup needs a terminal", fmt.Errorf("use `termax config set` instead"))
		}
		s := getStore()
		defer s.Close()

		entries, err := setupWizard(context.Background(), tui.NewPrompter(os.Stdin, os.Stdout))
		if err != nil {
			if errors.Is(err, tui.ErrInterrupted) {
				return
			}
			exitErr("Setup failed", err)
		}
		m := getConfigManager(s)
		for _, e := range entries {
			if err := m.Set(e[0], e[1]); err != nil {
				exitErr("Failed to save config", err)
			}
		}
		fmt.Println("Configuration saved.")
	},
}

// asker is the part of tui.Prompter the wizard needs.
type asker interface {
	Select(ctx context.Context, title string, options []string) (int, error)
	Input(ctx context.Context, prompt string) (string, error)
}

// keylessPlatforms run without an API key.
var keylessPlatforms = map[string]bool{"ollama": true, "cli": true, "stub": true}

// setupWizard returns the key/value pairs to store, in order.
func setupWizard(ctx context.Context, a asker) ([][2]string, error) {
	platforms := provider.Platforms()
	i, err := a.Select(ctx, "Which platform do you want to use?", platforms)
	if err != nil {
		return nil, err
	}
	platform := platforms[i]
	entries := [][2]string{{config.GeneralSection + ".platform", platform}}

	ask := func(name, prompt string) error {
		v, err := a.Input(ctx, prompt)
		if err != nil {
			return err
		}
		if v = strings.TrimSpace(v); v != "" {
			entries = append(entries, [2]string{platform + "." + name, v})
		}
		return nil
	}

	switch {
	case platform == "cli":
		if err := ask("binary", "Agent binary (empty to auto-detect):"); err != nil {
			return nil, err
		}
	case !keylessPlatforms[platform]:
		if err := ask("api_key", "API key:"); err != nil {
			return nil, err
		}
		if platform == "qianfan" {
			if err := ask("secret_key", "Secret key:"); err != nil {
				return nil, err
			}
		}
	}
	if platform != "stub" && platform != "cli" {
		if err := ask("model", "Model (empty for the default):"); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configSetupCmd)
}
