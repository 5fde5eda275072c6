package subcommands

import (
	"encoding/json"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/memorizer/internal/config"
)

var (
	showRaw    bool
	showFormat string
)

// ShowCmd displays the current configuration.
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: "Display the current configuration.\n\n" +
		"Shows the current memorizer configuration values. By default, shows " +
		"the effective configuration with defaults applied. Use --raw to show " +
		"only the values explicitly set in the config file, and --format to " +
		"render the effective configuration as yaml, toml, or json.",
	Example: `  # Show effective configuration
  memorizer config show

  # Show only explicitly set values
  memorizer config show --raw

  # Render as TOML
  memorizer config show --format toml`,
	PreRunE: validateShow,
	RunE:    runShow,
}

func init() {
	ShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Show only explicitly configured values (no defaults)")
	ShowCmd.Flags().StringVar(&showFormat, "format", "yaml", "Output format: yaml, toml, or json")
}

func validateShow(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true

	switch showFormat {
	case "yaml", "toml", "json":
		return nil
	default:
		cmd.SilenceUsage = false
		return fmt.Errorf("unsupported format %q; expected yaml, toml, or json", showFormat)
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	if showRaw {
		return showRawConfig()
	}
	return showEffectiveConfig()
}

func showRawConfig() error {
	// Read the config file directly
	configPath := config.GetConfigPath()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("# No configuration file found")
			fmt.Printf("# Default location: %s\n", configPath)
			return nil
		}
		return fmt.Errorf("failed to read config file; %w", err)
	}

	fmt.Printf("# Configuration file: %s\n", configPath)
	fmt.Println(string(data))
	return nil
}

func showEffectiveConfig() error {
	// Get all configuration settings
	settings := config.GetAllSettings()

	data, err := marshalSettings(settings, showFormat)
	if err != nil {
		return fmt.Errorf("failed to format configuration; %w", err)
	}

	fmt.Println("# Effective configuration (with defaults)")
	fmt.Printf("# Config file: %s\n", config.GetConfigPath())
	fmt.Println(string(data))
	return nil
}

func marshalSettings(settings map[string]any, format string) ([]byte, error) {
	switch format {
	case "toml":
		return toml.Marshal(settings)
	case "json":
		return json.MarshalIndent(settings, "", "  ")
	default:
		return yaml.Marshal(settings)
	}
}
