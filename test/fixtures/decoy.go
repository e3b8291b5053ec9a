// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Decoy is a throwaway process with a chosen name, used as a stand-in for a
// blocked application. Linux truncates process names to 15 bytes, so keep names short.
type Decoy struct {
	Name string
	cmd  *exec.Cmd
	done chan struct{}
}

// UniqueToken returns a short random hex string for naming decoys.
func UniqueToken() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StartDecoy runs a copy of sleep(1) named name. It exits on SIGTERM.
func StartDecoy(dir, name string) (*Decoy, error) {
	bin, err := copyBinary(dir, "sleep", name)
	if err != nil {
		return nil, err
	}
	return start(name, exec.Command(bin, "300"))
}

// StartStubbornDecoy runs a copy of sh(1) named name that ignores SIGTERM,
// so only a forced kill ends it.
func StartStubbornDecoy(dir, name string) (*Decoy, error) {
	bin, err := copyBinary(dir, "sh", name)
	if err != nil {
		return nil, err
	}
	return start(name, exec.Command(bin, "-c", `trap "" TERM; while :; do sleep 1; done`))
}

func start(name string, cmd *exec.Cmd) (*Decoy, error) {
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start decoy %s", name)
	}
	d := &Decoy{Name: name, cmd: cmd, done: make(chan struct{})}
	go func() {
		// Reap so the decoy never lingers as a zombie.
		_ = cmd.Wait()
		close(d.done)
	}()
	return d, nil
}

func (d *Decoy) PID() int {
	return d.cmd.Process.Pid
}

// Exited is closed once the process has been reaped.
func (d *Decoy) Exited() <-chan struct{} {
	return d.done
}

// Stop kills the decoy if it is still running and waits briefly for it to be reaped.
func (d *Decoy) Stop() {
	select {
	case <-d.done:
		return
	default:
	}
	_ = d.cmd.Process.Kill()
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
	}
}

func copyBinary(dir, tool, name string) (string, error) {
	src, err := exec.LookPath(tool)
	if err != nil {
		return "", errors.Wrapf(err, "locate %s", tool)
	}
	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	dst := filepath.Join(dir, name)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "copy %s", src)
	}
	return dst, out.Close()
}
