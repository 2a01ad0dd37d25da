package cmd

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seferino-fernandez/scripts/config"
	"github.com/seferino-fernandez/scripts/provision"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// scriptedRunner stands in for the host's utilities. useradd appends the
// account to the fake passwd file.
type scriptedRunner struct {
	root    string
	calls   []string
	fail    map[string]bool
	outputs map[string]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (provision.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	if r.fail[line] {
		return provision.Result{}, &provision.CommandError{Command: append([]string{name}, args...), ExitCode: 1}
	}
	if name == "useradd" {
		user := args[len(args)-1]
		f, err := os.OpenFile(filepath.Join(r.root, config.PasswdPath), os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return provision.Result{}, err
		}
		defer f.Close()
		if _, err := f.WriteString(passwdEntry(user, "/home/"+user)); err != nil {
			return provision.Result{}, err
		}
	}
	return provision.Result{Output: r.outputs[line]}, nil
}

func (r *scriptedRunner) called(prefix string) bool {
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func passwdEntry(name, home string) string {
	return fmt.Sprintf("%s:x:%d:%d:%s:%s:/bin/bash\n", name, os.Getuid(), os.Getgid(), name, home)
}

func publicKey(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " alice@laptop"
}

type fixture struct {
	root    string
	logDir  string
	cfgPath string
	key     string
	runner  *scriptedRunner
	hosts   int
}

// newFixture builds a fake host root and swaps in privilege and host hooks.
func newFixture(t *testing.T, user string) *fixture {
	t.Helper()
	f := &fixture{
		root:   t.TempDir(),
		logDir: t.TempDir(),
		key:    publicKey(t),
	}
	f.runner = &scriptedRunner{
		root: f.root,
		fail: map[string]bool{},
		outputs: map[string]string{
			"passwd --status alice": "alice L 10/19/2026 0 99999 7 -1",
			"ufw status":            "Status: active\n\nTo Action From\n22/tcp LIMIT Anywhere\n",
			"sshd -T":               "passwordauthentication no\n",
		},
	}

	writeFile(t, filepath.Join(f.root, config.PasswdPath), passwdEntry("root", "/root"))
	writeFile(t, filepath.Join(f.root, config.LocaleGenPath), "# en_US.UTF-8 UTF-8\n")
	writeFile(t, filepath.Join(f.root, "/etc/ssh/ssh_host_ed25519_key.pub"), publicKey(t)+"\n")
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "root"), 0700))

	f.cfgPath = filepath.Join(t.TempDir(), "bootstrap.yaml")
	writeFile(t, f.cfgPath, fmt.Sprintf("user: %s\nssh_key: %q\nlog_dir: %s\n", user, f.key, f.logDir))

	origEuid, origHost := geteuid, newHost
	t.Cleanup(func() { geteuid, newHost = origEuid, origHost })
	geteuid = func() int { return 0 }
	newHost = func(dryRun bool, _ io.Writer) *provision.Host {
		f.hosts++
		if dryRun {
			return &provision.Host{Root: f.root, Runner: provision.DryRunner{}, DryRun: true}
		}
		return &provision.Host{Root: f.root, Runner: f.runner}
	}
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func runLogContent(t *testing.T, dir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestRun_RejectsPlaceholders(t *testing.T) {
	f := newFixture(t, config.PlaceholderUser)
	before, err := os.ReadFile(filepath.Join(f.root, config.PasswdPath))
	require.NoError(t, err)

	_, err = execute(t, "run", "--config", f.cfgPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrPlaceholder))
	assert.Zero(t, f.hosts, "no host access before validation passes")

	after, err := os.ReadFile(filepath.Join(f.root, config.PasswdPath))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	logged := runLogContent(t, f.logDir)
	assert.Contains(t, logged, "[INFO] [bootstrap] Starting")
	assert.Contains(t, logged, "[ERROR] [bootstrap]")
}

func TestRun_RequiresRoot(t *testing.T) {
	f := newFixture(t, "alice")
	geteuid = func() int { return 1000 }

	_, err := execute(t, "run", "--config", f.cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root privileges")
	assert.Zero(t, f.hosts)
	assert.Empty(t, f.runner.calls)
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	f := newFixture(t, config.PlaceholderUser)

	out, err := execute(t, "run", "--config", f.cfgPath, "--user", "alice", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Bootstrapping host for user alice")
}

func TestRun_DryRunWithoutRoot(t *testing.T) {
	f := newFixture(t, "alice")
	geteuid = func() int { return 1000 }

	out, err := execute(t, "run", "--config", f.cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: no changes will be made")
	assert.Contains(t, out, "[ok] Bootstrap completed successfully!")
	assert.Empty(t, f.runner.calls)

	_, err = os.Stat(filepath.Join(f.root, config.SSHDDropInPath))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, "alice")

	out, err := execute(t, "run", "--config", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[8/8] Harden SSH daemon")
	assert.Contains(t, out, "ssh alice@")

	logged := runLogContent(t, f.logDir)
	assert.Contains(t, logged, "Completed")
	assert.Contains(t, logged, "Host key ssh-ed25519 SHA256:")

	out, err = execute(t, "status", "--config", f.cfgPath, "--json")
	require.NoError(t, err)

	var status SystemStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "healthy", status.Overall)
	assert.True(t, status.Host.User.PasswordLocked)
	assert.True(t, status.Host.Root.Key.Installed)
	assert.Equal(t, "0700", status.Host.User.Key.DirMode)
	assert.Equal(t, "0600", status.Host.User.Key.FileMode)

	out, err = execute(t, "status", "--config", f.cfgPath, "--quiet")
	require.NoError(t, err)
	assert.Equal(t, "healthy\n", out)
}

func TestRun_SSHDValidationFailure(t *testing.T) {
	f := newFixture(t, "alice")
	f.runner.fail["sshd -t"] = true

	out, err := execute(t, "run", "--config", f.cfgPath)
	require.Error(t, err)
	assert.Contains(t, out, "[fail] [8/8] Harden SSH daemon failed")

	var stepErr *provision.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "sshd", stepErr.Step)

	_, statErr := os.Stat(filepath.Join(f.root, config.SSHDDropInPath))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	assert.False(t, f.runner.called("systemctl reload-or-restart ssh"))
}

func TestStatus_Degraded(t *testing.T) {
	f := newFixture(t, "alice")

	out, err := execute(t, "status", "--config", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Bootstrap Status: DEGRADED")
	assert.Contains(t, out, "Account alice:")
	assert.Contains(t, out, "does not exist")
}

func TestScaffold_WritesRunLog(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "scaffold", "--log-dir", dir)
	require.NoError(t, err)

	logged := runLogContent(t, dir)
	lines := strings.Split(strings.TrimSpace(logged), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INFO] [bootstrap] Starting ")
	assert.Contains(t, lines[1], "[INFO] [bootstrap] Completed ")
}

func TestScaffold_MissingLogDir(t *testing.T) {
	_, err := execute(t, "scaffold", "--log-dir", filepath.Join(t.TempDir(), "missing"))
	assert.NoError(t, err, "logging falls back to stderr")
}

func TestConfigShow(t *testing.T) {
	f := newFixture(t, "alice")

	out, err := execute(t, "config", "show", "--config", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "user: alice")
	assert.Contains(t, out, "timezone: UTC")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "bootstrap.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, config.PlaceholderUser, cfg.User)

	_, err = execute(t, "config", "init", "--path", path)
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	f := newFixture(t, "alice")

	out, err := execute(t, "next", "--config", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Next steps:")
	assert.Contains(t, out, "ssh alice@")
}
