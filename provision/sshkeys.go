package provision

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
)

const (
	sshDirPerm         = 0700
	authorizedKeysPerm = 0600
)

// AuthorizedKeysPath returns <home>/.ssh/authorized_keys.
func AuthorizedKeysPath(home string) string {
	return filepath.Join(home, ".ssh", "authorized_keys")
}

// countKeyLines returns how many lines of data are exactly key, ignoring
// surrounding whitespace.
func countKeyLines(data []byte, key string) int {
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == key {
			n++
		}
	}
	return n
}

// EnsureAuthorizedKey appends key to the account's authorized_keys unless an
// identical line is already present, then normalizes ownership and modes
// (directory 700, file 600) whether or not it appended. It reports whether
// the key was appended.
func EnsureAuthorizedKey(h *Host, acct *Account, key string) (bool, error) {
	sshDir := filepath.Join(acct.Home, ".ssh")
	keysPath := AuthorizedKeysPath(acct.Home)

	data, err := h.ReadFile(keysPath)
	if err != nil {
		return false, err
	}
	present := countKeyLines(data, key) > 0

	if h.DryRun {
		if present {
			log.Info("[DRY RUN] Key already present in %s", keysPath)
		} else {
			log.Info("[DRY RUN] Would append key to %s", keysPath)
		}
		log.Info("[DRY RUN] Would set %s to %04o and %s to %04o owned by %s", sshDir, sshDirPerm, keysPath, authorizedKeysPerm, acct.Name)
		return !present, nil
	}

	if err := os.MkdirAll(h.Path(sshDir), sshDirPerm); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", sshDir, err)
	}

	if !present {
		var line []byte
		if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
			line = append(line, '\n')
		}
		line = append(line, key...)
		line = append(line, '\n')

		f, err := os.OpenFile(h.Path(keysPath), os.O_CREATE|os.O_WRONLY|os.O_APPEND, authorizedKeysPerm)
		if err != nil {
			return false, fmt.Errorf("failed to open %s: %w", keysPath, err)
		}
		if _, err := f.Write(line); err != nil {
			f.Close()
			return false, fmt.Errorf("failed to append to %s: %w", keysPath, err)
		}
		if err := f.Close(); err != nil {
			return false, fmt.Errorf("failed to close %s: %w", keysPath, err)
		}
	}

	for _, p := range []struct {
		path string
		perm os.FileMode
	}{
		{sshDir, sshDirPerm},
		{keysPath, authorizedKeysPerm},
	} {
		if err := os.Chmod(h.Path(p.path), p.perm); err != nil {
			return false, fmt.Errorf("failed to chmod %s: %w", p.path, err)
		}
		if err := os.Chown(h.Path(p.path), acct.UID, acct.GID); err != nil {
			return false, fmt.Errorf("failed to chown %s to %s: %w", p.path, acct.Name, err)
		}
	}

	return !present, nil
}

// installKeys installs the configured key for the admin user and for root.
func installKeys(_ context.Context, h *Host, cfg *config.Config) error {
	for _, name := range []string{cfg.User, "root"} {
		acct, err := h.LookupAccount(name)
		if err != nil {
			return err
		}
		if acct == nil {
			if h.DryRun {
				log.Info("[DRY RUN] Would install key for %s once the account exists", name)
				continue
			}
			return fmt.Errorf("account %s not found in %s", name, config.PasswdPath)
		}

		appended, err := EnsureAuthorizedKey(h, acct, cfg.SSHKey)
		if err != nil {
			return fmt.Errorf("failed to install key for %s: %w", name, err)
		}
		if appended {
			log.Info("Installed key %s for %s", cfg.KeyFingerprint(), name)
		} else {
			log.Info("Key %s already present for %s", cfg.KeyFingerprint(), name)
		}
	}
	return nil
}
