// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ssh implements transport.Dialer over a real SSH connection,
// invoking git-upload-pack / git-receive-pack on the remote end exactly
// as the native git ssh transport does.
package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pinebranch/gitwire/modules/trace"
	"github.com/pinebranch/gitwire/pkg/transport"
	"github.com/pinebranch/gitwire/pkg/version"
	"golang.org/x/crypto/ssh"
)

const protocolVersionPrefix = "SSH-2.0-"

// DefaultUsername is used when an endpoint omits one.
const DefaultUsername = "git"

var dialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 30 * time.Second,
}

type client struct {
	*transport.Endpoint
	Hostname string
	Port     string
	verbose  bool
}

// NewDialer returns a transport.Dialer that connects over SSH.
func NewDialer(verbose bool) transport.Dialer {
	return &dialerImpl{verbose: verbose}
}

type dialerImpl struct {
	verbose bool
}

func (d *dialerImpl) Dial(ctx context.Context, endpoint *transport.Endpoint, op transport.Operation) (transport.Channel, error) {
	cc := &client{
		Endpoint: endpoint,
		Hostname: endpoint.Host,
		Port:     strconv.Itoa(endpoint.Port),
		verbose:  d.verbose,
	}
	if endpoint.Port == 0 {
		cc.Port = strconv.Itoa(transport.DefaultPort)
	}
	user := endpoint.User
	if user == "" {
		user = DefaultUsername
	}

	addr := net.JoinHostPort(cc.Hostname, cc.Port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	cc.traceConn(conn)

	auth, err := cc.prepareAuthMethod()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		ClientVersion:   protocolVersionPrefix + version.BannerVersion(),
		HostKeyCallback: cc.HostKeyCallback,
		BannerCallback:  ssh.BannerDisplayStderr(),
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	cc.traceSSH(sshConn)

	sshClient := ssh.NewClient(sshConn, chans, reqs)
	session, err := sshClient.NewSession()
	if err != nil {
		_ = sshClient.Close()
		return nil, err
	}

	for k, v := range endpoint.ExtraEnv {
		if isHarmlessEnv(k) {
			_ = session.Setenv(k, v)
		}
	}

	ch, err := newChannel(sshClient, session, cc.DbgPrint)
	if err != nil {
		_ = session.Close()
		_ = sshClient.Close()
		return nil, err
	}

	cmd := fmt.Sprintf("%s '%s'", op, endpoint.Path)
	if err := ch.start(cmd); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

var guardEnv = map[string]bool{
	"LANG": true,
	"TERM": true,
}

func isHarmlessEnv(name string) bool {
	return !guardEnv[name]
}

func (c *client) traceConn(conn net.Conn) {
	if !c.verbose {
		return
	}
	addr, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return
	}
	c.DbgPrint("connecting to %s [%s] port %s", c.Host, addr, port)
}

func (c *client) traceSSH(cc ssh.Conn) {
	if !c.verbose {
		return
	}
	c.DbgPrint("remote software version %s", cc.ServerVersion())
}

func (c *client) DbgPrint(format string, args ...any) {
	if !c.verbose {
		return
	}
	trace.DbgPrint(format, args...)
}

var _ transport.Dialer = &dialerImpl{}
