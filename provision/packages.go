package provision

import (
	"context"
	"fmt"

	"github.com/seferino-fernandez/scripts/config"
)

// installPackages refreshes the index, upgrades the system and installs the
// configured package set. The first failing sub-step aborts.
func installPackages(ctx context.Context, h *Host, cfg *config.Config) error {
	steps := []struct {
		desc string
		args []string
	}{
		{"update package index", []string{"apt-get", "update"}},
		{"upgrade distribution", []string{"apt-get", "-y", "dist-upgrade"}},
		{"upgrade packages", []string{"apt-get", "-y", "upgrade"}},
		{"install packages", append([]string{"apt-get", "install", "-y"}, cfg.Packages...)},
	}

	for _, s := range steps {
		log.Info("Running: %s", s.desc)
		if _, err := h.run(ctx, s.args[0], s.args[1:]...); err != nil {
			return fmt.Errorf("failed to %s: %w", s.desc, err)
		}
	}

	log.Info("Installed packages: %v", cfg.Packages)
	return nil
}
