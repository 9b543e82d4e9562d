package sshkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/reconquest/karma-go"
	"golang.org/x/crypto/ssh"
)

const (
	BlockSize = 4096
)

// Key is an ephemeral deploy key: generated per pipeline, registered on
// the remote as a read-only deploy key out of band, thrown away with the
// workspace.
type Key struct {
	Private string
	Public  string
}

func Generate() (*Key, error) {
	private, err := generatePrivateKey(BlockSize)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to generate private part",
		)
	}

	public, err := generatePublicKey(&private.PublicKey)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to generate public part",
		)
	}

	privatePEM := marshalPrivateKeyToPEM(private)

	return &Key{Private: string(privatePEM), Public: string(public)}, nil
}

// Fingerprint is the SHA256 fingerprint of the public part, the one the
// operator registers on the remote side.
func (key *Key) Fingerprint() string {
	public, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key.Public))
	if err != nil {
		return ""
	}

	return ssh.FingerprintSHA256(public)
}

// Materialize writes the private part into dir and returns its path,
// ready to be handed to ssh -i via GIT_SSH_COMMAND.
func (key *Key) Materialize(dir string) (string, error) {
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to create directory for ssh key: %s", dir,
		)
	}

	path := filepath.Join(dir, "id_rsa")

	err = ioutil.WriteFile(path, []byte(key.Private), 0o600)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to write private key: %s", path,
		)
	}

	err = ioutil.WriteFile(path+".pub", []byte(key.Public), 0o644)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to write public key: %s", path+".pub",
		)
	}

	return path, nil
}

// GitSSHCommand returns the GIT_SSH_COMMAND value pointing git at the
// materialized key. Host key checking is off: the key is ephemeral and
// the clone happens in a throwaway workspace.
func GitSSHCommand(keyPath string) string {
	return "ssh -i " + keyPath +
		" -o StrictHostKeyChecking=no" +
		" -o UserKnownHostsFile=/dev/null"
}

func generatePrivateKey(bitSize int) (*rsa.PrivateKey, error) {
	private, err := rsa.GenerateKey(rand.Reader, bitSize)
	if err != nil {
		return nil, err
	}

	err = private.Validate()
	if err != nil {
		return nil, err
	}

	return private, nil
}

func marshalPrivateKeyToPEM(private *rsa.PrivateKey) []byte {
	der := x509.MarshalPKCS1PrivateKey(private)

	block := pem.Block{
		Type:    "RSA PRIVATE KEY",
		Headers: nil,
		Bytes:   der,
	}

	return pem.EncodeToMemory(&block)
}

func generatePublicKey(private *rsa.PublicKey) ([]byte, error) {
	public, err := ssh.NewPublicKey(private)
	if err != nil {
		return nil, err
	}

	return ssh.MarshalAuthorizedKey(public), nil
}
