package provision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
)

// Host is the machine being provisioned. Root prefixes every filesystem path
// and is empty on a real host. In DryRun mode file mutations are logged and
// skipped.
type Host struct {
	Root   string
	Runner Runner
	DryRun bool
}

// Account is one /etc/passwd entry.
type Account struct {
	Name  string
	UID   int
	GID   int
	Gecos string
	Home  string
	Shell string
}

// Path maps an absolute host path onto the host root.
func (h *Host) Path(p string) string {
	if h.Root == "" {
		return p
	}
	return filepath.Join(h.Root, p)
}

func (h *Host) run(ctx context.Context, name string, args ...string) (Result, error) {
	log.Debug("exec: %s %s", name, strings.Join(args, " "))
	return h.Runner.Run(ctx, name, args...)
}

// LookupAccount scans the passwd file for username. It returns nil, nil when
// the account does not exist.
func (h *Host) LookupAccount(username string) (*Account, error) {
	file, err := os.Open(h.Path(config.PasswdPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", config.PasswdPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, username+":") {
			continue
		}
		// username:x:uid:gid:gecos:homedir:shell
		fields := strings.Split(line, ":")
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed passwd entry for %s", username)
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed uid for %s: %w", username, err)
		}
		gid, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("malformed gid for %s: %w", username, err)
		}
		return &Account{
			Name:  fields[0],
			UID:   uid,
			GID:   gid,
			Gecos: fields[4],
			Home:  fields[5],
			Shell: fields[6],
		}, nil
	}

	return nil, scanner.Err()
}

// FileExists reports whether path exists on the host.
func (h *Host) FileExists(path string) (bool, error) {
	_, err := os.Stat(h.Path(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// ReadFile returns the content of path, or nil if it does not exist.
func (h *Host) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(h.Path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces path with data at mode perm, creating parent directories
// as needed. The content is written to a temporary file and renamed into
// place, so readers never see a partial file.
func (h *Host) WriteFile(path string, data []byte, perm os.FileMode) error {
	if h.DryRun {
		log.Info("[DRY RUN] Would write %s (%d bytes, mode %04o)", path, len(data), perm)
		return nil
	}

	target := h.Path(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// RemoveFile deletes path. A missing file is not an error.
func (h *Host) RemoveFile(path string) error {
	if h.DryRun {
		log.Info("[DRY RUN] Would remove %s", path)
		return nil
	}
	if err := os.Remove(h.Path(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
