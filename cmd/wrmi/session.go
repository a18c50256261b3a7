package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sol-eng/wrmiorb/pkg/adapter"
	"github.com/sol-eng/wrmiorb/pkg/bootstrap"
	"github.com/sol-eng/wrmiorb/pkg/bufpool"
	"github.com/sol-eng/wrmiorb/pkg/orb"
	"github.com/sol-eng/wrmiorb/pkg/sessioncfg"
	"github.com/sol-eng/wrmiorb/pkg/stub"
	"github.com/sol-eng/wrmiorb/pkg/transport"
)

// connection bundles the pieces a subcommand needs to talk to a
// running wpslinks process and tears them down together.
type connection struct {
	process *bootstrap.Process
	orb     *orb.ORB
	server  *stub.Server
}

// connect starts wpslinks, opens the named pipes it announces,
// performs the validation handshake and returns a ready-to-use Server
// stub. profileOptions, if non-nil, are passed as -<name> <value>
// pairs at spawn time.
func connect(binaryPath string, cfg *sessioncfg.Config, profileOptions map[string]string) (*connection, error) {
	proc, err := bootstrap.Start(bootstrap.Options{
		BinaryPath:     binaryPath,
		SessionOptions: profileOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("starting wpslinks: %w", err)
	}

	t, err := transport.OpenPipes(proc.SendPipe, proc.RecvPipe)
	if err != nil {
		_ = proc.Kill()
		return nil, fmt.Errorf("opening named pipes: %w", err)
	}

	pool := bufpool.New(0)
	o := orb.New(t, pool, adapter.New(),
		orb.WithProcess(proc),
		orb.WithMaxWaitIterations(cfg.Tuning.MaxWaitIterations),
	)

	if err := o.Validate(); err != nil {
		_ = proc.Kill()
		return nil, fmt.Errorf("validation handshake: %w", err)
	}

	server := stub.NewServer(o, "wpsserver")
	return &connection{process: proc, orb: o, server: server}, nil
}

// Close sends a graceful shutdown and tears down the child process.
func (c *connection) Close() {
	if err := c.orb.Shutdown(); err != nil {
		log.WithError(err).Warn("[CLI] shutdown request failed")
	}
	if err := c.process.Kill(); err != nil {
		log.WithError(err).Warn("[CLI] failed to stop wpslinks cleanly")
	}
	if exitErr := c.process.ExitErr(); exitErr != nil {
		log.WithError(exitErr).WithField("stderr", string(c.process.ReadStderr())).
			Warn("[CLI] wpslinks exited with an error")
	}
}

func loadConfig(path string) (*sessioncfg.Config, error) {
	if path == "" {
		return sessioncfg.Default(), nil
	}
	return sessioncfg.Load(path)
}

func profileOptionsFor(cfg *sessioncfg.Config, profile string) (map[string]string, error) {
	if profile == "" {
		return nil, nil
	}
	p, ok := cfg.Profile(profile)
	if !ok {
		return nil, fmt.Errorf("profile %q not found in config", profile)
	}
	return p.Options, nil
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
