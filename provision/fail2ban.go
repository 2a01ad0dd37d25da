package provision

import (
	"context"
	"fmt"

	"github.com/seferino-fernandez/scripts/config"
)

// Fail2banJail renders jail.local: global thresholds plus the sshd jail.
func Fail2banJail(cfg config.Fail2banConfig) string {
	return fmt.Sprintf(`# Managed by bootstrap; rewritten on every run.
[DEFAULT]
bantime = %d
findtime = %d
maxretry = %d

[sshd]
enabled = true
port = ssh
backend = systemd
`, cfg.BanTime, cfg.FindTime, cfg.MaxRetry)
}

// configureFail2ban overwrites the local jail, enables the service at boot and
// restarts it to load the jail.
func configureFail2ban(ctx context.Context, h *Host, cfg *config.Config) error {
	if err := h.WriteFile(config.Fail2banJailPath, []byte(Fail2banJail(cfg.Fail2ban)), 0644); err != nil {
		return err
	}
	log.Info("Wrote %s (bantime=%ds findtime=%ds maxretry=%d)",
		config.Fail2banJailPath, cfg.Fail2ban.BanTime, cfg.Fail2ban.FindTime, cfg.Fail2ban.MaxRetry)

	if _, err := h.run(ctx, "systemctl", "enable", "fail2ban"); err != nil {
		return fmt.Errorf("failed to enable fail2ban: %w", err)
	}
	if _, err := h.run(ctx, "systemctl", "restart", "fail2ban"); err != nil {
		return fmt.Errorf("failed to restart fail2ban: %w", err)
	}
	return nil
}
