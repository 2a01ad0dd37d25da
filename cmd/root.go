package cmd

import (
	"github.com/seferino-fernandez/scripts/config"
	"github.com/seferino-fernandez/scripts/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   config.CLIName,
	Short: "One-shot Debian server bootstrap",
	Long: `Bootstrap a fresh Debian host in a single unattended run:

- Upgrade the system and install baseline packages
- Configure locale and timezone
- Create a non-root admin user with passwordless sudo
- Install your SSH public key for that user and for root
- Enable the ufw firewall with rate-limited SSH
- Enable fail2ban and automatic security updates
- Disable SSH password authentication

Set user and ssh_key in /etc/bootstrap/bootstrap.yaml (or pass --user and
--ssh-key), then run 'bootstrap run' as root.`,
	Version:      config.CLIVersion,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logging.SetGlobalLogLevel(logging.LogLevelDebug)
		}
	},
}

// Execute runs the command tree. The caller maps a non-nil error to exit status 1.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default /etc/bootstrap/bootstrap.yaml or ./bootstrap.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Show what would be done without making changes")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("dry-run", rootCmd.PersistentFlags().Lookup("dry-run"))
}
