package provision

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/seferino-fernandez/scripts/config"
)

const autoUpgrades = `APT::Periodic::Update-Package-Lists "1";
APT::Periodic::Download-Upgradeable-Packages "1";
APT::Periodic::Unattended-Upgrade "1";
APT::Periodic::AutocleanInterval "7";
`

// ${distro_id} and ${distro_codename} are expanded by unattended-upgrades itself.
var unattendedUpgradesTemplate = template.Must(template.New("50unattended-upgrades").Parse(
	`// Managed by bootstrap; rewritten on every run.
Unattended-Upgrade::Origins-Pattern {
        "origin=Debian,codename=${distro_codename},label=Debian";
        "origin=Debian,codename=${distro_codename},label=Debian-Security";
        "origin=Debian,codename=${distro_codename}-security,label=Debian-Security";
};
Unattended-Upgrade::AutoFixInterruptedDpkg "true";
Unattended-Upgrade::MinimalSteps "true";
Unattended-Upgrade::Remove-Unused-Kernel-Packages "true";
Unattended-Upgrade::Remove-New-Unused-Dependencies "true";
Unattended-Upgrade::Remove-Unused-Dependencies "true";
Unattended-Upgrade::Automatic-Reboot "true";
Unattended-Upgrade::Automatic-Reboot-Time "{{ .RebootTime }}";
`))

// UnattendedUpgradesConfig renders 50unattended-upgrades.
func UnattendedUpgradesConfig(cfg config.UpgradesConfig) (string, error) {
	var buf bytes.Buffer
	if err := unattendedUpgradesTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render unattended-upgrades config: %w", err)
	}
	return buf.String(), nil
}

// configureUpgrades overwrites the periodic cadence and unattended-upgrades
// behaviour files. Their content is static per config, so rewriting is safe.
func configureUpgrades(_ context.Context, h *Host, cfg *config.Config) error {
	if err := h.WriteFile(config.AutoUpgradesPath, []byte(autoUpgrades), 0644); err != nil {
		return err
	}

	body, err := UnattendedUpgradesConfig(cfg.Upgrades)
	if err != nil {
		return err
	}
	if err := h.WriteFile(config.UnattendedUpgradesPath, []byte(body), 0644); err != nil {
		return err
	}

	log.Info("Configured automatic updates (reboot at %s)", cfg.Upgrades.RebootTime)
	return nil
}
