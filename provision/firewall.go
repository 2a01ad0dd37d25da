package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
)

// configureFirewall sets default-deny, allows and rate-limits SSH, and enables
// ufw without prompting. ufw deduplicates rules, so re-running is safe.
func configureFirewall(ctx context.Context, h *Host, _ *config.Config) error {
	rules := [][]string{
		{"default", "deny", "incoming"},
		{"allow", "ssh"},
		{"limit", "ssh"},
		{"--force", "enable"},
	}
	for _, args := range rules {
		if _, err := h.run(ctx, "ufw", args...); err != nil {
			return fmt.Errorf("ufw %s failed: %w", strings.Join(args, " "), err)
		}
	}

	res, err := h.run(ctx, "ufw", "status", "verbose")
	if err != nil {
		return fmt.Errorf("failed to read firewall status: %w", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(res.Output), "\n") {
		if line != "" {
			log.Info("ufw: %s", line)
		}
	}
	return nil
}
