package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
)

type HostState struct {
	User     AccountState `json:"user"`
	Root     AccountState `json:"root"`
	Firewall ServiceState `json:"firewall"`
	Fail2ban ServiceState `json:"fail2ban"`
	SSHD     SSHDState    `json:"sshd"`
	HostKeys []HostKey    `json:"host_keys,omitempty"`
}

type AccountState struct {
	Name           string   `json:"name"`
	Exists         bool     `json:"exists"`
	PasswordLocked bool     `json:"password_locked"`
	Sudoers        bool     `json:"sudoers"`
	Key            KeyState `json:"key"`
}

type KeyState struct {
	Installed bool   `json:"installed"`
	Count     int    `json:"count"`
	DirMode   string `json:"dir_mode,omitempty"`
	FileMode  string `json:"file_mode,omitempty"`
}

type ServiceState struct {
	Active     bool   `json:"active"`
	Configured bool   `json:"configured"`
	Status     string `json:"status"`
}

type SSHDState struct {
	DropIn               bool `json:"drop_in"`
	PasswordAuthDisabled bool `json:"password_auth_disabled"`
}

// Healthy reports whether the host matches the end state of a successful run.
func (s *HostState) Healthy() bool {
	return s.User.Exists && s.User.PasswordLocked && s.User.Sudoers &&
		s.User.Key.Installed && s.User.Key.DirMode == "0700" && s.User.Key.FileMode == "0600" &&
		s.Root.Key.Installed &&
		s.Firewall.Active && s.Firewall.Configured &&
		s.Fail2ban.Active && s.Fail2ban.Configured &&
		s.SSHD.DropIn && s.SSHD.PasswordAuthDisabled
}

// Inspect collects the host's provisioning state without changing anything.
// Failing probe commands are reported as inactive, not as errors.
func Inspect(ctx context.Context, h *Host, cfg *config.Config) (*HostState, error) {
	state := &HostState{}

	user, err := inspectAccount(ctx, h, cfg.User, cfg.SSHKey)
	if err != nil {
		return nil, err
	}
	user.Sudoers = sudoersGranted(h, cfg.User)
	state.User = user

	root, err := inspectAccount(ctx, h, "root", cfg.SSHKey)
	if err != nil {
		return nil, err
	}
	state.Root = root

	state.Firewall = inspectFirewall(ctx, h)
	state.Fail2ban = inspectFail2ban(ctx, h)

	dropIn, err := h.FileExists(config.SSHDDropInPath)
	if err != nil {
		return nil, err
	}
	state.SSHD.DropIn = dropIn
	if res, err := h.run(ctx, "sshd", "-T"); err == nil {
		state.SSHD.PasswordAuthDisabled = hasLine(res.Output, "passwordauthentication no")
	}

	if keys, err := HostKeyFingerprints(h); err == nil {
		state.HostKeys = keys
	}

	return state, nil
}

func inspectAccount(ctx context.Context, h *Host, name, key string) (AccountState, error) {
	state := AccountState{Name: name}

	acct, err := h.LookupAccount(name)
	if err != nil {
		return state, err
	}
	if acct == nil {
		return state, nil
	}
	state.Exists = true

	// passwd --status prints "<name> <L|P|NP> ..."
	if res, err := h.run(ctx, "passwd", "--status", name); err == nil {
		fields := strings.Fields(res.Output)
		state.PasswordLocked = len(fields) >= 2 && fields[1] == "L"
	}

	keysPath := AuthorizedKeysPath(acct.Home)
	data, err := h.ReadFile(keysPath)
	if err != nil {
		return state, err
	}
	state.Key.Count = countKeyLines(data, key)
	state.Key.Installed = state.Key.Count > 0
	if info, err := os.Stat(h.Path(filepath.Dir(keysPath))); err == nil {
		state.Key.DirMode = fmt.Sprintf("%04o", info.Mode().Perm())
	}
	if info, err := os.Stat(h.Path(keysPath)); err == nil {
		state.Key.FileMode = fmt.Sprintf("%04o", info.Mode().Perm())
	}

	return state, nil
}

func sudoersGranted(h *Host, username string) bool {
	data, err := h.ReadFile(SudoersPath(username))
	return err == nil && string(data) == sudoersEntry(username)
}

func inspectFirewall(ctx context.Context, h *Host) ServiceState {
	state := ServiceState{Status: "inactive"}
	res, err := h.run(ctx, "ufw", "status")
	if err != nil {
		state.Status = "unavailable"
		return state
	}
	if hasLine(res.Output, "Status: active") {
		state.Active = true
		state.Status = "active"
	}
	// ufw limit replaces the allow rule for the same port with LIMIT.
	for _, line := range strings.Split(res.Output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "22/tcp" && fields[1] == "LIMIT" {
			state.Configured = true
			break
		}
	}
	return state
}

func inspectFail2ban(ctx context.Context, h *Host) ServiceState {
	state := ServiceState{Status: "inactive"}
	if _, err := h.run(ctx, "systemctl", "is-active", "--quiet", "fail2ban"); err == nil {
		state.Active = true
		state.Status = "active"
	}
	if _, err := h.run(ctx, "fail2ban-client", "status", "sshd"); err == nil {
		state.Configured = true
	}
	return state
}

func hasLine(output, want string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), want) {
			return true
		}
	}
	return false
}
