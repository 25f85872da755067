//go:build linux || darwin

package pty

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Term is the terminal type advertised to the child.
const Term = "xterm-256color"

// FallbackShells are tried in order when neither a preferred shell nor
// $SHELL exists.
var FallbackShells = []string{
	"/bin/zsh",
	"/usr/bin/zsh",
	"/bin/bash",
	"/usr/bin/bash",
	"/bin/sh",
}

// ResolveShell picks the shell to run: preferred if it exists, then
// $SHELL if it exists, then the first existing entry of FallbackShells.
func ResolveShell(preferred string) (string, error) {
	candidates := make([]string, 0, len(FallbackShells)+2)
	if preferred != "" {
		candidates = append(candidates, preferred)
	}
	if env := os.Getenv("SHELL"); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, FallbackShells...)

	for _, path := range candidates {
		if isExecutable(path) {
			return path, nil
		}
	}
	return "", newError(KindShellNotFound, "resolve shell", ErrShellNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// ChildSpec describes the process to run on the slave side of a pty.
// It is a plain value; Command turns it into a runnable *exec.Cmd.
//
// The child becomes a session leader with the slave on fds 0, 1 and 2
// as its controlling terminal. Any failure while setting that up or
// replacing the image exits the child and is reported by Start.
type ChildSpec struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// NewChildSpec returns a spec that runs shell with the inherited
// environment, TERM set to xterm-256color and HOME set.
func NewChildSpec(shell string) ChildSpec {
	env := make([]string, 0, len(os.Environ())+2)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TERM=") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, "TERM="+Term)
	if home, err := os.UserHomeDir(); err == nil {
		env = append(env, "HOME="+home)
	}

	return ChildSpec{
		Path: shell,
		Args: []string{shell},
		Env:  env,
	}
}

// WithEnv returns a copy of the spec with extra KEY=VALUE entries.
// Later entries override earlier ones.
func (s ChildSpec) WithEnv(kv ...string) ChildSpec {
	env := make([]string, 0, len(s.Env)+len(kv))
	env = append(env, s.Env...)
	env = append(env, kv...)
	s.Env = env
	return s
}

// WithDir returns a copy of the spec that starts in dir.
func (s ChildSpec) WithDir(dir string) ChildSpec {
	s.Dir = dir
	return s
}

// Lookup returns the value of key in the spec's environment.
func (s ChildSpec) Lookup(key string) (string, bool) {
	prefix := key + "="
	for i := len(s.Env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(s.Env[i], prefix); ok {
			return v, true
		}
	}
	return "", false
}

// Command builds the command for the spec with tty as its standard
// streams and controlling terminal.
func (s ChildSpec) Command(tty *os.File) *exec.Cmd {
	cmd := &exec.Cmd{
		Path:   s.Path,
		Args:   s.Args,
		Env:    s.Env,
		Dir:    s.Dir,
		Stdin:  tty,
		Stdout: tty,
		Stderr: tty,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
			// Ctty is a descriptor in the child: stdin.
			Ctty: 0,
		},
	}
	return cmd
}
