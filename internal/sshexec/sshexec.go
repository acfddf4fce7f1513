// Package sshexec runs diagnostic commands on a cluster host over SSH. One
// connection is shared across commands; each command gets its own session so
// a hung command can be abandoned without tearing down the client.
package sshexec

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 10 * time.Second

// Config describes the target host.
type Config struct {
	Host           string
	Port           int    // default 22
	User           string
	KeyPath        string // private key file
	KnownHostsPath string // empty disables host key verification
	DialTimeout    time.Duration
}

// Client implements the investigate executor contract over SSH.
type Client struct {
	addr      string
	sshConfig *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

// New builds a client. The connection is established lazily on first use.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh: read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ssh: parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("ssh: load known hosts: %w", err)
		}
	} else {
		log.Warn().Str("host", cfg.Host).Msg("No known_hosts file configured, skipping host key verification")
	}

	return &Client{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		sshConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.DialTimeout,
		},
	}, nil
}

func (c *Client) connect() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := ssh.Dial("tcp", c.addr, c.sshConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh: dial %s: %w", c.addr, err)
	}
	log.Debug().Str("addr", c.addr).Msg("SSH connection established")
	c.client = client
	return client, nil
}

// Execute runs one command and returns its combined output. The timeout
// bounds the command itself; the context cancels it earlier.
func (c *Client) Execute(ctx context.Context, command string, timeout time.Duration) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		// The connection may have died since the last command; retry once
		// on a fresh one.
		c.reset()
		if client, err = c.connect(); err != nil {
			return "", err
		}
		if session, err = client.NewSession(); err != nil {
			return "", fmt.Errorf("ssh: new session: %w", err)
		}
	}
	defer session.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return string(res.output), fmt.Errorf("ssh: %s: %w", command, res.err)
		}
		return string(res.output), nil
	case <-ctx.Done():
		// Closing the session unblocks the goroutine.
		session.Close()
		return "", fmt.Errorf("ssh: %s: %w", command, ctx.Err())
	}
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// Close tears down the shared connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
