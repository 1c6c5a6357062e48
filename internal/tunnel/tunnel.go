// Package tunnel runs `gcloud compute start-iap-tunnel` for the lifetime of a
// pipeline run so the destination database is reachable on a local port.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"fareetl/internal/config"
	"fareetl/internal/logger"
)

// Test seams.
var (
	execCommand = exec.CommandContext
	dialTimeout = net.DialTimeout
)

const stopGrace = 5 * time.Second

// Args returns the gcloud arguments for c.
func Args(c config.Tunnel) []string {
	return []string{
		"compute", "start-iap-tunnel",
		c.Instance, strconv.Itoa(c.RemotePort),
		"--zone", c.Zone,
		"--project", c.Project,
		"--local-host-port=localhost:" + strconv.Itoa(c.LocalPort),
	}
}

// Process is a running tunnel.
type Process struct {
	cmd     *exec.Cmd
	exited  chan struct{} // closed once the process has been reaped
	waitErr error
	log     logger.Logger
}

// Start launches the tunnel and, when c.Ready is positive, waits until the
// local port accepts connections.
func Start(ctx context.Context, c config.Tunnel, log logger.Logger) (*Process, error) {
	if log == nil {
		log = logger.Default()
	}
	cmd := execCommand(ctx, "gcloud", Args(c)...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = stopGrace
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start iap tunnel: %w", err)
	}
	log.Info("iap tunnel starting", "instance", c.Instance, "zone", c.Zone, "local_port", c.LocalPort, "pid", cmd.Process.Pid)

	p := &Process{cmd: cmd, exited: make(chan struct{}), log: log}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	if c.Ready > 0 {
		addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(c.LocalPort))
		if err := p.waitReady(ctx, addr, c.Ready); err != nil {
			_ = p.Stop()
			return nil, err
		}
		log.Info("iap tunnel ready", "addr", addr)
	}
	return p, nil
}

func (p *Process) waitReady(ctx context.Context, addr string, within time.Duration) error {
	deadline := time.NewTimer(within)
	defer deadline.Stop()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		if conn, err := dialTimeout("tcp", addr, time.Second); err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-p.exited:
			return fmt.Errorf("iap tunnel exited before becoming ready: %v", p.waitErr)
		case <-deadline.C:
			return fmt.Errorf("iap tunnel not ready on %s after %s", addr, within)
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Stop terminates the tunnel, killing it if it does not exit within a few
// seconds. Stopping an already exited tunnel is not an error.
func (p *Process) Stop() error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := terminate(p.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate iap tunnel: %w", err)
	}
	select {
	case <-p.exited:
		p.log.Info("iap tunnel stopped")
		return nil
	case <-time.After(stopGrace):
		p.log.Warn("iap tunnel did not exit, killing")
		if err := kill(p.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		<-p.exited
		return nil
	}
}
