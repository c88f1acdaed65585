// Package initcmder provides the init command for initializing a local
// .mythos directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/pkg/config"
)

const (
	dirName = ".mythos"
)

const initLongDesc string = `Initialize a new .mythos/ directory in the current working directory.

Creates a local .mythos/ directory that takes precedence over the default
~/.mythos/ directory for save data, resume state, configuration, and other
mythos operations, and writes a config.toml with default values.

This is useful for maintaining separate stories per project or directory.

With --preset, the config.toml is pre-filled for the named provider, or
fetched from a URL serving a TOML config.

Examples:
  mythos init
  mythos init --preset ollama
  mythos init --preset gemini
  mythos init --preset https://example.com/mythos-config.toml`

const initShortDesc string = "Initialize a local .mythos/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "",
		fmt.Sprintf("Provider preset (%s) or a URL to a TOML config", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .mythos directory: %w", err)
		}
		fmt.Printf("Initialized .mythos directory: %s\n", dir)
	}

	cfg, err := c.resolveConfig()
	if err != nil {
		return err
	}

	// Without a preset, an existing config.toml is left alone.
	configPath := filepath.Join(dir, "config.toml")
	if c.preset == "" {
		if _, err := os.Stat(configPath); err == nil {
			return nil
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote config: %s\n", configPath)
	return nil
}

// resolveConfig picks the config to write: the default, a named provider
// preset, or a remote TOML fetched from a URL.
func (c *initCommander) resolveConfig() (*config.Config, error) {
	if c.preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}

	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
