package cmd

import (
	"path/filepath"

	"github.com/seferino-fernandez/scripts/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configInitPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the bootstrap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration a run would use after applying defaults, the config
file and BOOTSTRAP_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil, cfgFile)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file holding the defaults. user and ssh_key are
placeholders that must be replaced before 'bootstrap run' will proceed.
An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newPrinter(cmd.OutOrStdout())
		if viper.GetBool("dry-run") {
			out.Printf("🧪", "Would write starter config to %s", configInitPath)
			return nil
		}
		if err := config.WriteStarter(configInitPath); err != nil {
			return err
		}
		out.Printf("✅", "Wrote %s", configInitPath)
		out.Println("   Edit user and ssh_key, then run: " + config.CLIName + " run")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path",
		filepath.Join(config.ConfigDir, config.ConfigName+".yaml"), "Where to write the config file")
}
