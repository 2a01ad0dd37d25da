package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/seferino-fernandez/scripts/config"
	"github.com/seferino-fernandez/scripts/logging"
	"github.com/seferino-fernandez/scripts/provision"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logging.NewLogger("bootstrap")

// Replaced in tests.
var (
	geteuid = os.Geteuid
	newHost = func(dryRun bool, stream io.Writer) *provision.Host {
		if dryRun {
			return &provision.Host{Runner: provision.DryRunner{}, DryRun: true}
		}
		return &provision.Host{Runner: provision.ExecRunner{Stream: stream}}
	}
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision this host",
	Long: `Run the full bootstrap procedure on this host, in order:

1. Upgrade the system and install baseline packages
2. Enable the configured locale and set the timezone
3. Create the admin user (password locked) with passwordless sudo
4. Install the SSH public key for the admin user and root
5. Configure ufw: deny incoming, allow and rate-limit SSH
6. Configure and restart fail2ban with an sshd jail
7. Enable unattended security upgrades with automatic reboot
8. Disable SSH password authentication (validated with sshd -t)

Every step is safe to re-run. The first failure stops the run; completed steps
are not undone. Every line is logged to stderr and to a per-run file in the
configured log directory.

Make sure you can log in with the configured key before closing your current
session: password login is disabled at the end of the run.`,
	Args: cobra.NoArgs,
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("user", "", "Admin user to create (overrides config)")
	runCmd.Flags().String("ssh-key", "", "Public key line to authorize (overrides config)")
	runCmd.Flags().String("timezone", "", "Timezone, e.g. Europe/Berlin (overrides config)")
	runCmd.Flags().String("log-dir", "", "Directory for the per-run log file (overrides config)")
}

func checkPreconditions(cfg *config.Config, dryRun bool) error {
	// Allow dry run without root privileges
	if !dryRun && geteuid() != 0 {
		return fmt.Errorf("bootstrap requires root privileges. Please run with sudo")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w; set user and ssh_key in the config file or pass --user and --ssh-key", err)
	}
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	dryRun := viper.GetBool("dry-run")
	out := newPrinter(cmd.OutOrStdout())

	cfg, err := config.Load(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}

	script := filepath.Base(os.Args[0])
	runLog, err := logging.SetupRunLog(cfg.LogDir, os.Args[0])
	if err == nil {
		defer runLog.Close()
	}
	log.Info("Starting %s", script)

	if err := checkPreconditions(cfg, dryRun); err != nil {
		log.Error("%v", err)
		return err
	}

	out.Printf("🚀", "Bootstrapping host for user %s", cfg.User)
	out.Printf("🔑", "Authorized key %s", cfg.KeyFingerprint())
	if runLog != nil {
		out.Printf("📋", "Logging to %s", runLog.Path)
	}
	if dryRun {
		out.Printf("🧪", "Dry run: no changes will be made")
	}

	var stream io.Writer
	if verbose {
		stream = cmd.OutOrStdout()
	}
	host := newHost(dryRun, stream)

	pipeline := provision.NewPipeline(provision.DefaultSteps())
	pipeline.Progress = func(ev provision.Event) {
		switch {
		case !ev.Done:
			out.Printf("🔧", "[%d/%d] %s...", ev.Index, ev.Total, ev.Step.Label)
		case ev.Err != nil:
			out.Printf("❌", "[%d/%d] %s failed", ev.Index, ev.Total, ev.Step.Label)
		default:
			out.Printf("✅", "[%d/%d] %s", ev.Index, ev.Total, ev.Step.Label)
		}
	}

	if err := pipeline.Run(cmd.Context(), host, cfg); err != nil {
		if runLog != nil {
			out.Printf("⚠️", "Host may be partially configured; see %s", runLog.Path)
		}
		return err
	}

	if keys, err := provision.HostKeyFingerprints(host); err != nil {
		log.Warn("Could not read host keys: %v", err)
	} else {
		for _, key := range keys {
			log.Info("Host key %s %s (%s)", key.Type, key.Fingerprint, key.Path)
		}
	}

	log.Info("Completed %s", script)
	out.Println()
	out.Printf("✅", "Bootstrap completed successfully!")
	printNextSteps(out, cfg.User)
	return nil
}
