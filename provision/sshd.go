package provision

import (
	"context"
	"fmt"

	"github.com/seferino-fernandez/scripts/config"
)

// SSHDHardening is written to the sshd drop-in. sshd keeps the first value it
// reads for a keyword, so the drop-in sorts first in sshd_config.d.
const SSHDHardening = `# Managed by bootstrap. Key-only SSH access.
PubkeyAuthentication yes
PasswordAuthentication no
PermitRootLogin prohibit-password
ChallengeResponseAuthentication no
`

// hardenSSHD writes the drop-in unless it already exists, validates the full
// daemon configuration and reloads sshd. A failed validation removes a drop-in
// written by this call and leaves the service untouched.
func hardenSSHD(ctx context.Context, h *Host, _ *config.Config) error {
	path := config.SSHDDropInPath

	exists, err := h.FileExists(path)
	if err != nil {
		return err
	}

	wrote := false
	if exists {
		log.Info("%s already exists, skipping creation", path)
	} else {
		if err := h.WriteFile(path, []byte(SSHDHardening), 0644); err != nil {
			return err
		}
		wrote = true
		log.Info("Wrote %s", path)
	}

	if _, err := h.run(ctx, "sshd", "-t"); err != nil {
		if wrote {
			if rmErr := h.RemoveFile(path); rmErr != nil {
				log.Error("Rollback failed: %v", rmErr)
			} else {
				log.Info("Removed %s after failed validation", path)
			}
		}
		return fmt.Errorf("sshd configuration test failed: %w", err)
	}

	if _, err := h.run(ctx, "systemctl", "reload-or-restart", "ssh"); err != nil {
		return fmt.Errorf("failed to reload ssh: %w", err)
	}
	log.Info("SSH password authentication disabled")
	return nil
}
