package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/config"
	"github.com/lydakis/richpresence/internal/paths"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigPathCommand(ctx))
	return configCmd
}

func (c *commandContext) configFile() string {
	if p := strings.TrimSpace(c.configPath); p != "" {
		return p
	}
	return paths.ConfigFile()
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ctx.configFile()
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return usageErrorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			cfg := config.Default()
			cfg.ClientID = strings.TrimSpace(ctx.clientID)
			cfg.Activity.ShowElapsed = true
			save := func() error { return config.SaveTo(target, cfg) }
			if strings.TrimSpace(ctx.configPath) == "" {
				save = func() error { return config.Save(cfg) }
			}
			if err := save(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote configuration to %s\n", target)
			if cfg.ClientID == "" {
				fmt.Fprintln(out, "Set client_id to your application id before running richpresence set.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configFile()
			load := func() (*config.Config, error) { return config.LoadForEditFrom(path) }
			if strings.TrimSpace(ctx.configPath) == "" {
				load = config.LoadForEdit
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := config.ValidateForCurrentEnv(cfg); err != nil {
				return &usageError{err: fmt.Errorf("invalid config %s: %w", path, err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config path: %s\nConfiguration valid\n", path)
			return nil
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.configFile())
			return nil
		},
	}
}
