// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ssh

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

func keyTypeName(key ssh.PublicKey) string {
	kt := key.Type()
	switch kt {
	case "ssh-rsa":
		return "RSA"
	case "ssh-dss":
		return "DSA"
	case "ssh-ed25519":
		return "ED25519"
	default:
		if strings.HasPrefix(kt, "ecdsa-sha2-") {
			return "ECDSA"
		}
	}
	return kt
}

// DefaultKnownHostsPath returns the default user known_hosts file.
func DefaultKnownHostsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh", "known_hosts"), nil
}

// DefaultKnownHosts returns a host key callback backed by the default
// known_hosts path.
func DefaultKnownHosts() (ssh.HostKeyCallback, error) {
	p, err := DefaultKnownHostsPath()
	if err != nil {
		return nil, err
	}
	return knownhosts.New(p)
}

func addForKnownHost(host string, remote net.Addr, key ssh.PublicKey, knownHostsFile string) error {
	fd, err := os.OpenFile(knownHostsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer fd.Close()

	remoteNormalized := knownhosts.Normalize(remote.String())
	hostNormalized := knownhosts.Normalize(host)
	addresses := []string{remoteNormalized}
	if hostNormalized != remoteNormalized {
		addresses = append(addresses, hostNormalized)
	}
	_, err = fd.WriteString(knownhosts.Line(addresses, key) + "\n")
	return err
}

func unfoldKeyError(hostname string, key ssh.PublicKey, ke *knownhosts.KeyError) {
	k0 := ke.Want[0]
	fmt.Fprintf(os.Stderr, `WARNING: REMOTE HOST IDENTIFICATION HAS CHANGED!
The fingerprint for the %s key sent by %s is %s.
Offending key in %s:%d is %s.
Host key verification failed.
`,
		keyTypeName(key), hostname, ssh.FingerprintSHA256(key),
		k0.Filename, k0.Line, ssh.FingerprintSHA256(k0.Key))
}

func checkForKnownHosts(host string, remote net.Addr, key ssh.PublicKey, knownHostsFile string) (bool, error) {
	callback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return false, err
	}
	if err = callback(host, remote, key); err == nil {
		return true, nil
	}
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) && len(keyErr.Want) > 0 {
		unfoldKeyError(host, key, keyErr)
		return true, keyErr
	}
	return false, err
}

func (c *client) HostKeyCallback(host string, remote net.Addr, key ssh.PublicKey) error {
	knownHostsFile, err := DefaultKnownHostsPath()
	if err != nil {
		return err
	}
	found, err := checkForKnownHosts(host, remote, key, knownHostsFile)
	if found {
		return err
	}
	return addForKnownHost(host, remote, key, knownHostsFile)
}

func (c *client) openPrivateKey(name string) (ssh.Signer, error) {
	fd, err := os.Open(name)
	if err != nil {
		c.DbgPrint("read private key %s error: %v", name, err)
		return nil, err
	}
	defer fd.Close()
	buf, err := io.ReadAll(fd)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(buf)
	if err != nil {
		return nil, err
	}
	c.DbgPrint("offering public key: %s %s", name, ssh.FingerprintSHA256(signer.PublicKey()))
	return signer, nil
}

func (c *client) sshAuthSigners() ([]ssh.Signer, error) {
	sock, ok := os.LookupEnv("SSH_AUTH_SOCK")
	if !ok {
		return nil, nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("could not find ssh agent: %w", err)
	}
	defer conn.Close()
	return agent.NewClient(conn).Signers()
}

// PublicKeys collects candidate signers in priority order: an explicit
// key path from the endpoint, the user's default identities, then the
// SSH agent.
func (c *client) PublicKeys() ([]ssh.Signer, error) {
	signers := make([]ssh.Signer, 0, 5)

	if c.KeyPath != "" {
		if signer, err := c.openPrivateKey(c.KeyPath); err == nil {
			signers = append(signers, signer)
		}
	}

	homePath, err := os.UserHomeDir()
	if err == nil {
		for _, n := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			signer, err := c.openPrivateKey(filepath.Join(homePath, ".ssh", n))
			if err != nil {
				continue
			}
			signers = append(signers, signer)
		}
	}

	if agentSigners, err := c.sshAuthSigners(); err == nil {
		signers = append(signers, agentSigners...)
	}
	return signers, nil
}

func (c *client) prepareAuthMethod() ([]ssh.AuthMethod, error) {
	return []ssh.AuthMethod{
		ssh.PublicKeysCallback(c.PublicKeys),
	}, nil
}
