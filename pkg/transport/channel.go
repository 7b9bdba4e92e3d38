// Copyright 2018 Sourced Technologies, S.L.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"time"
)

// Kind enumerates the events a Channel can produce while polling a remote
// command.
type Kind int

const (
	// None is returned when a poll timed out without new data.
	None Kind = iota
	// Data carries a chunk of stdout bytes (pkt-line / pack data).
	Data
	// Stderr carries a chunk of stderr bytes (server-side progress/info).
	Stderr
	// Stopped indicates the remote command has exited; Code holds its
	// exit status.
	Stopped
)

// Event is produced by Channel.Poll.
type Event struct {
	Kind    Kind
	Payload []byte
	Code    int
}

// Channel is a transport-agnostic duplex byte stream to a remote Git
// command (git-upload-pack, git-receive-pack). Implementations wrap a
// concrete transport (SSH today); the pkt-line and packfile layers are
// built only against this interface.
type Channel interface {
	Write(p []byte) (int, error)
	Poll(ctx context.Context) (Event, error)
	SetReadTimeout(d time.Duration)
	Close() error
}

// Operation names the remote-side git command a Channel should invoke.
type Operation string

const (
	UploadPack  Operation = "git-upload-pack"
	ReceivePack Operation = "git-receive-pack"
)

// Dialer opens a Channel to the given endpoint for the given operation.
type Dialer interface {
	Dial(ctx context.Context, endpoint *Endpoint, op Operation) (Channel, error)
}
