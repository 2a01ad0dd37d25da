package config

// File paths touched by the bootstrap procedure. Every path is absolute on the
// target host; provision.Host may prefix them with a root directory.
const (
	// Configuration file search directory and base name (bootstrap.yaml)
	ConfigDir  = "/etc/bootstrap"
	ConfigName = "bootstrap"

	// Account database
	PasswdPath = "/etc/passwd"

	// Sudoers drop-ins, one file per user
	SudoersDir = "/etc/sudoers.d"

	LocaleGenPath = "/etc/locale.gen"

	Fail2banJailPath = "/etc/fail2ban/jail.local"

	// apt periodic cadence and unattended-upgrades behaviour
	AutoUpgradesPath       = "/etc/apt/apt.conf.d/20auto-upgrades"
	UnattendedUpgradesPath = "/etc/apt/apt.conf.d/50unattended-upgrades"

	SSHDDropInPath = "/etc/ssh/sshd_config.d/00-bootstrap-hardening.conf"

	// Host public keys, used to print fingerprints after a run
	HostKeyGlob = "/etc/ssh/ssh_host_*_key.pub"
)
