package cmd

import (
	"os"

	"github.com/seferino-fernandez/scripts/config"

	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show next steps after a bootstrap run",
	Long:  `Display the post-run checklist for verifying access to a freshly bootstrapped host.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		user := config.PlaceholderUser
		if cfg, err := config.Load(nil, cfgFile); err == nil {
			user = cfg.User
		}
		printNextSteps(newPrinter(cmd.OutOrStdout()), user)
	},
}

func init() {
	rootCmd.AddCommand(nextCmd)
}

func printNextSteps(out *printer, user string) {
	host := "<this-host>"
	if name, err := os.Hostname(); err == nil && name != "" {
		host = name
	}

	out.Println()
	out.Printf("📋", "Next steps:")
	out.Println("  1. From a NEW terminal, confirm key login works: ssh " + user + "@" + host)
	out.Println("     Keep this session open until it does; password login is now disabled.")
	out.Println("  2. Confirm sudo works without a password: sudo -n true")
	out.Println("  3. Compare the host key fingerprints in the run log before trusting the host")
	out.Println("  4. Check the host: " + config.CLIName + " status")
	out.Println("  5. Reboot if the kernel was upgraded: sudo reboot")
	out.Println()
}
