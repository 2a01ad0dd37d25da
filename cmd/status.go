package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/seferino-fernandez/scripts/config"
	"github.com/seferino-fernandez/scripts/provision"

	"github.com/spf13/cobra"
)

var (
	statusJSON  bool
	statusQuiet bool
)

type SystemStatus struct {
	Overall   string               `json:"overall"`
	Timestamp time.Time            `json:"timestamp"`
	Host      *provision.HostState `json:"host"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether this host is bootstrapped",
	Long: `Inspect this host without changing it and report:

- Whether the admin user exists with a locked password and sudo access
- Whether the configured key is installed for the user and root
- Firewall and fail2ban state
- Whether SSH password authentication is disabled
- SSH host key fingerprints

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status in JSON format")
	statusCmd.Flags().BoolVar(&statusQuiet, "quiet", false, "Only show overall status")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil, cfgFile)
	if err != nil {
		return err
	}

	state, err := provision.Inspect(cmd.Context(), newHost(false, nil), cfg)
	if err != nil {
		return fmt.Errorf("failed to collect status: %w", err)
	}

	status := &SystemStatus{
		Overall:   "degraded",
		Timestamp: time.Now(),
		Host:      state,
	}
	if state.Healthy() {
		status.Overall = "healthy"
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := newPrinter(cmd.OutOrStdout())
	if statusQuiet {
		out.Println(status.Overall)
		return nil
	}
	outputStatusHuman(out, status)
	return nil
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func outputStatusHuman(out *printer, status *SystemStatus) {
	emoji := "⚠️"
	if status.Overall == "healthy" {
		emoji = "✅"
	}
	out.Printf(emoji, "Bootstrap Status: %s", strings.ToUpper(status.Overall))
	out.Println()

	host := status.Host
	for _, acct := range []provision.AccountState{host.User, host.Root} {
		out.Printf("🔑", "Account %s:", acct.Name)
		if !acct.Exists {
			out.Printf(check(false), "  does not exist")
			continue
		}
		out.Printf(check(acct.PasswordLocked), "  password locked")
		if acct.Name != "root" {
			out.Printf(check(acct.Sudoers), "  passwordless sudo")
		}
		out.Printf(check(acct.Key.Installed), "  key installed (%d entries, dir %s, file %s)",
			acct.Key.Count, orDash(acct.Key.DirMode), orDash(acct.Key.FileMode))
	}
	out.Println()

	out.Printf("🔧", "Services:")
	out.Printf(check(host.Firewall.Active && host.Firewall.Configured), "  Firewall: %s", host.Firewall.Status)
	out.Printf(check(host.Fail2ban.Active && host.Fail2ban.Configured), "  Fail2ban: %s", host.Fail2ban.Status)
	out.Printf(check(host.SSHD.DropIn), "  SSH hardening drop-in: %s", config.SSHDDropInPath)
	out.Printf(check(host.SSHD.PasswordAuthDisabled), "  SSH password authentication disabled")

	if len(host.HostKeys) > 0 {
		out.Println()
		out.Printf("📋", "Host keys:")
		for _, key := range host.HostKeys {
			out.Println("  " + key.Fingerprint + " (" + key.Type + ")")
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
