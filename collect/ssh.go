// Copyright 2024 Google LLC.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collect

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// RemoteDir is the collect directory used on the remote system.
const RemoteDir = "/tmp/vmtest-collect"

// SSH collects artifacts from a booted installed system.
type SSH struct {
	client *ssh.Client
	host   string
}

// DialSSH connects to host ("addr:port") as user with a PEM private key.
func DialSSH(user, host string, pembytes []byte) (*SSH, error) {
	signer, err := ssh.ParsePrivateKey(pembytes)
	if err != nil {
		return nil, fmt.Errorf("parsing plain private key failed %v", err)
	}
	sshConfig := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
	}
	// Test VMs are created fresh for every run, there is no known host key.
	sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()

	client, err := ssh.Dial("tcp", host, sshConfig)
	if err != nil {
		return nil, err
	}
	return &SSH{client: client, host: host}, nil
}

// Close closes the connection.
func (s *SSH) Close() error {
	return s.client.Close()
}

// run runs a shell script read from stdin in a new session and returns its
// standard output. The session is closed when ctx is done.
func (s *SSH) run(ctx context.Context, script string) ([]byte, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdin = strings.NewReader(script)
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run("sudo bash -s") }()
	select {
	case err = <-done:
	case <-ctx.Done():
		session.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		return stdout.Bytes(), fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Collect runs the collect scripts on the remote system and unpacks the
// remote collect directory into dir.
func (s *SSH) Collect(ctx context.Context, dir string, scripts []string) error {
	log := logrus.WithField("host", s.host)
	if _, err := s.run(ctx, fmt.Sprintf("rm -rf %[1]s && mkdir -p %[1]s", RemoteDir)); err != nil {
		return fmt.Errorf("failed to create remote collect dir: %w", err)
	}
	for i, script := range scripts {
		if _, err := s.run(ctx, Render(script, RemoteDir)); err != nil {
			// Scripts copy files which may not exist on every release.
			log.Warnf("collect script %d failed: %v", i, err)
		}
	}
	archive, err := s.run(ctx, fmt.Sprintf("tar -C %s -cf - .", RemoteDir))
	if err != nil {
		return fmt.Errorf("failed to archive remote collect dir: %w", err)
	}
	log.Infof("Fetched %d bytes of artifacts", len(archive))
	return Untar(bytes.NewReader(archive), dir)
}
