package provision

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seferino-fernandez/scripts/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// fakeRunner records every command. Commands matching a failure prefix return
// a CommandError; hooks simulate side effects such as useradd.
type fakeRunner struct {
	calls   []string
	fail    map[string]int
	outputs map[string]string
	hooks   map[string]func()
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		fail:    map[string]int{},
		outputs: map[string]string{},
		hooks:   map[string]func(){},
	}
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, cmd)

	for prefix, code := range r.fail {
		if strings.HasPrefix(cmd, prefix) {
			return Result{Output: "boom"}, &CommandError{
				Command:  append([]string{name}, args...),
				ExitCode: code,
				Output:   "boom",
			}
		}
	}
	if hook, ok := r.hooks[cmd]; ok {
		hook()
	}
	return Result{Output: r.outputs[cmd]}, nil
}

func (r *fakeRunner) called(cmd string) bool {
	for _, c := range r.calls {
		if c == cmd {
			return true
		}
	}
	return false
}

const localeGen = `# This file lists locales that you wish to have built.
# de_DE.UTF-8 UTF-8
# en_GB.UTF-8 UTF-8
# en_US.UTF-8 UTF-8
# fr_FR.UTF-8 UTF-8
`

func passwdLine(name, home string) string {
	return fmt.Sprintf("%s:x:%d:%d:%s:%s:/bin/bash\n", name, os.Getuid(), os.Getgid(), name, home)
}

// newTestHost lays out a minimal Debian root under a temp dir. Account ids are
// the test process's own so chown works unprivileged.
func newTestHost(t *testing.T) (*Host, *fakeRunner) {
	t.Helper()
	root := t.TempDir()

	writeHostFile(t, root, config.PasswdPath, passwdLine("root", "/root")+
		"daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin\n", 0644)
	writeHostFile(t, root, config.LocaleGenPath, localeGen, 0644)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "root"), 0700))

	runner := newFakeRunner()
	h := &Host{Root: root, Runner: runner}

	// useradd appends to passwd and creates the home directory.
	runner.hooks["useradd --create-home --shell /bin/bash alice"] = func() {
		f, err := os.OpenFile(h.Path(config.PasswdPath), os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString(passwdLine("alice", "/home/alice"))
		require.NoError(t, err)
		require.NoError(t, f.Close())
		require.NoError(t, os.MkdirAll(h.Path("/home/alice"), 0755))
	}

	return h, runner
}

func writeHostFile(t *testing.T, root, path, content string, perm os.FileMode) {
	t.Helper()
	target := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
	_ = os.Remove(target)
	require.NoError(t, os.WriteFile(target, []byte(content), perm))
}

func readHostFile(t *testing.T, h *Host, path string) string {
	t.Helper()
	data, err := os.ReadFile(h.Path(path))
	require.NoError(t, err)
	return string(data)
}

func fileMode(t *testing.T, h *Host, path string) os.FileMode {
	t.Helper()
	info, err := os.Stat(h.Path(path))
	require.NoError(t, err)
	return info.Mode().Perm()
}

func generateKey(t *testing.T, comment string) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " " + comment
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.User = "alice"
	cfg.SSHKey = generateKey(t, "alice@laptop")
	require.NoError(t, cfg.Validate())
	return cfg
}

// snapshot maps every file under the host root to its mode and content.
func snapshot(t *testing.T, h *Host) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(h.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, h.Root)
		if d.IsDir() {
			files[rel] = info.Mode().Perm().String()
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[rel] = info.Mode().Perm().String() + "\n" + string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}
