package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
)

// enableLocaleLine uncomments the locale.gen entry whose first field is locale.
// It reports whether the content changed and fails when no entry exists.
func enableLocaleLine(data []byte, locale string) ([]byte, bool, error) {
	lines := strings.Split(string(data), "\n")
	found := false
	changed := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		commented := strings.HasPrefix(trimmed, "#")
		entry := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		fields := strings.Fields(entry)
		if len(fields) < 2 || fields[0] != locale {
			continue
		}

		found = true
		if commented {
			lines[i] = entry
			changed = true
		}
		break
	}

	if !found {
		return data, false, fmt.Errorf("locale %s not listed in %s", locale, config.LocaleGenPath)
	}
	if !changed {
		return data, false, nil
	}
	return []byte(strings.Join(lines, "\n")), true, nil
}

// configureLocale enables the locale, regenerates locales, makes it the system
// default and sets the timezone.
func configureLocale(ctx context.Context, h *Host, cfg *config.Config) error {
	data, err := h.ReadFile(config.LocaleGenPath)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%s not found; is the locales package installed?", config.LocaleGenPath)
	}

	updated, changed, err := enableLocaleLine(data, cfg.Locale)
	if err != nil {
		return err
	}
	if changed {
		if err := h.WriteFile(config.LocaleGenPath, updated, 0644); err != nil {
			return err
		}
		log.Info("Enabled %s in %s", cfg.Locale, config.LocaleGenPath)
	} else {
		log.Info("%s already enabled in %s", cfg.Locale, config.LocaleGenPath)
	}

	if _, err := h.run(ctx, "locale-gen"); err != nil {
		return fmt.Errorf("failed to generate locales: %w", err)
	}
	if _, err := h.run(ctx, "update-locale", "LANG="+cfg.Locale); err != nil {
		return fmt.Errorf("failed to set system locale: %w", err)
	}
	if _, err := h.run(ctx, "timedatectl", "set-timezone", cfg.Timezone); err != nil {
		return fmt.Errorf("failed to set timezone: %w", err)
	}

	log.Info("Locale set to %s, timezone set to %s", cfg.Locale, cfg.Timezone)
	return nil
}
