// Package connector runs commands on network devices over SSH and checks
// device reachability. It is the only package that holds decrypted
// credentials, and only for the lifetime of a single connection.
package connector

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Credentials is a username/password pair for device login.
// Never logged or persisted.
type Credentials struct {
	Username string
	Password string
}

// Result holds the output of a single command execution.
type Result struct {
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Config holds connector tuning.
type Config struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Port           int           `mapstructure:"port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		Port:           22,
	}
}

// SSHConnector executes commands on devices over SSH.
type SSHConnector struct {
	cfg    Config
	logger *zap.Logger

	// dial is the function used to establish SSH connections.
	// Defaults to ssh.Dial; overridden in tests.
	dial func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// NewSSHConnector creates an SSH connector.
func NewSSHConnector(cfg Config, logger *zap.Logger) *SSHConnector {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &SSHConnector{cfg: cfg, logger: logger}
}

// clientConfig builds the SSH client configuration for a login.
func (c *SSHConnector) clientConfig(creds Credentials) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106: host key verification is a future enhancement
		Timeout:         c.cfg.ConnectTimeout,
	}
}

// connect dials the device and returns a live SSH client.
func (c *SSHConnector) connect(host string, creds Credentials) (*ssh.Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(c.cfg.Port))
	dial := c.dial
	if dial == nil {
		dial = ssh.Dial
	}
	client, err := dial("tcp", addr, c.clientConfig(creds))
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	return client, nil
}

// Execute runs a single command on the device and returns the combined
// stdout/stderr output. The context deadline bounds the whole operation.
func (c *SSHConnector) Execute(ctx context.Context, host string, creds Credentials, command string) (*Result, error) {
	start := time.Now()

	client, err := c.connect(host, creds)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	type cmdResult struct {
		output []byte
		err    error
	}
	done := make(chan cmdResult, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- cmdResult{output: out, err: err}
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks CombinedOutput.
		session.Close()
		return nil, fmt.Errorf("command timed out: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("run command: %w", res.err)
		}
		return &Result{
			Output:   string(res.output),
			Duration: time.Since(start),
		}, nil
	}
}

// Test verifies that the device accepts an SSH login with the given
// credentials. No command is executed.
func (c *SSHConnector) Test(ctx context.Context, host string, creds Credentials) error {
	done := make(chan error, 1)
	go func() {
		client, err := c.connect(host, creds)
		if err != nil {
			done <- err
			return
		}
		client.Close()
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("connection test timed out: %w", ctx.Err())
	case err := <-done:
		return err
	}
}
