// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ssh

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pinebranch/gitwire/pkg/transport"
	"golang.org/x/crypto/ssh"
)

// sshChannel implements transport.Channel over an *ssh.Session: stdin is
// the write side, stdout/stderr are drained by background goroutines into
// buffered channels so Poll can multiplex them against a deadline.
type sshChannel struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser

	dbgPrint func(format string, args ...any)

	data   chan []byte
	errs   chan []byte
	done   chan int
	readTO time.Duration

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
	closeErr  error
}

func (c *sshChannel) wait() error {
	c.waitOnce.Do(func() {
		c.waitErr = c.session.Wait()
	})
	return c.waitErr
}

func newChannel(client *ssh.Client, session *ssh.Session, dbgPrint func(string, ...any)) (*sshChannel, error) {
	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, err
	}

	c := &sshChannel{
		client:   client,
		session:  session,
		stdin:    stdin,
		dbgPrint: dbgPrint,
		data:     make(chan []byte, 32),
		errs:     make(chan []byte, 32),
		done:     make(chan int, 1),
	}
	go c.pump(stdout, c.data)
	go c.pumpLines(stderr)
	return c, nil
}

func (c *sshChannel) pump(r io.Reader, dst chan []byte) {
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			dst <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (c *sshChannel) pumpLines(r io.Reader) {
	br := bufio.NewScanner(r)
	for br.Scan() {
		line := append([]byte(nil), br.Bytes()...)
		c.errs <- line
	}
}

func (c *sshChannel) start(cmd string) error {
	c.dbgPrint("sending command: %s", cmd)
	if err := c.session.Start(cmd); err != nil {
		return err
	}
	go func() {
		err := c.wait()
		code := 0
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				code = exitErr.ExitStatus()
			} else {
				code = -1
			}
		}
		c.done <- code
	}()
	return nil
}

func (c *sshChannel) Write(p []byte) (int, error) {
	return c.stdin.Write(p)
}

// SetReadTimeout configures the deadline used by Poll calls whose context
// carries no deadline of their own. Zero disables the timeout.
func (c *sshChannel) SetReadTimeout(d time.Duration) {
	c.readTO = d
}

func (c *sshChannel) Poll(ctx context.Context) (transport.Event, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.readTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTO)
		defer cancel()
	}

	select {
	case chunk := <-c.data:
		return transport.Event{Kind: transport.Data, Payload: chunk}, nil
	case line := <-c.errs:
		return transport.Event{Kind: transport.Stderr, Payload: line}, nil
	case code := <-c.done:
		// Drain any data that raced the exit notification.
		select {
		case chunk := <-c.data:
			c.done <- code
			return transport.Event{Kind: transport.Data, Payload: chunk}, nil
		default:
		}
		return transport.Event{Kind: transport.Stopped, Code: code}, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return transport.Event{Kind: transport.None}, nil
		}
		return transport.Event{}, ctx.Err()
	}
}

func (c *sshChannel) Close() error {
	c.closeOnce.Do(func() {
		_ = c.stdin.Close()
		if err := c.wait(); err != nil {
			if _, ok := err.(*ssh.ExitError); !ok {
				c.closeErr = fmt.Errorf("ssh session wait: %w", err)
			}
		}
		_ = c.session.Close()
		if err := c.client.Close(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

var _ transport.Channel = &sshChannel{}
