package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seferino-fernandez/scripts/config"
	"golang.org/x/crypto/ssh"
)

// HostKey identifies one of the machine's SSH host keys.
type HostKey struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint"`
}

// HostKeyFingerprints returns the SHA256 fingerprints of the host's public
// keys, sorted by path. Unparseable files are skipped.
func HostKeyFingerprints(h *Host) ([]HostKey, error) {
	pattern := h.Path(config.HostKeyGlob)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid host key pattern %s: %w", pattern, err)
	}
	sort.Strings(paths)

	var keys []HostKey
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug("Skipping host key %s: %v", path, err)
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			log.Debug("Skipping host key %s: %v", path, err)
			continue
		}
		keys = append(keys, HostKey{
			Path:        strings.TrimPrefix(path, h.Root),
			Type:        pub.Type(),
			Fingerprint: ssh.FingerprintSHA256(pub),
		})
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no SSH host public keys found")
	}
	return keys, nil
}
