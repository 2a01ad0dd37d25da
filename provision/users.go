package provision

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/seferino-fernandez/scripts/config"
)

const sudoersPerm = 0440

// SudoersPath is the per-user sudoers drop-in.
func SudoersPath(username string) string {
	return filepath.Join(config.SudoersDir, username)
}

func sudoersEntry(username string) string {
	return fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", username)
}

// ensureUser creates the admin account when absent, locks its password, and
// always rewrites its passwordless sudoers drop-in.
func ensureUser(ctx context.Context, h *Host, cfg *config.Config) error {
	acct, err := h.LookupAccount(cfg.User)
	if err != nil {
		return err
	}

	if acct != nil {
		log.Info("User %s already exists (uid %d), skipping creation", acct.Name, acct.UID)
	} else {
		if _, err := h.run(ctx, "useradd", "--create-home", "--shell", "/bin/bash", cfg.User); err != nil {
			return fmt.Errorf("failed to create user %s: %w", cfg.User, err)
		}
		if _, err := h.run(ctx, "passwd", "--lock", cfg.User); err != nil {
			return fmt.Errorf("failed to lock password for %s: %w", cfg.User, err)
		}
		log.Info("Created user %s with password login disabled", cfg.User)
	}

	path := SudoersPath(cfg.User)
	if err := h.WriteFile(path, []byte(sudoersEntry(cfg.User)), sudoersPerm); err != nil {
		return fmt.Errorf("failed to configure sudo for %s: %w", cfg.User, err)
	}
	log.Info("Granted passwordless sudo to %s via %s", cfg.User, path)
	return nil
}
