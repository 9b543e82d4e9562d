package sshkey

import (
	"encoding/pem"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	test := assert.New(t)

	key, err := Generate()
	test.NoError(err)

	block, _ := pem.Decode([]byte(key.Private))
	test.NotNil(block)
	test.Equal("RSA PRIVATE KEY", block.Type)

	test.True(strings.HasPrefix(key.Public, "ssh-rsa "))
}

func TestKey_Materialize(t *testing.T) {
	test := assert.New(t)

	dir, err := ioutil.TempDir("", "sshkey-")
	test.NoError(err)
	defer os.RemoveAll(dir)

	key, err := Generate()
	test.NoError(err)

	path, err := key.Materialize(dir + "/keys")
	test.NoError(err)

	info, err := os.Stat(path)
	test.NoError(err)
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("private key mode: %v", info.Mode().Perm())
	}

	contents, err := ioutil.ReadFile(path)
	test.NoError(err)
	test.Equal(key.Private, string(contents))

	public, err := ioutil.ReadFile(path + ".pub")
	test.NoError(err)
	test.Equal(key.Public, string(public))
}

func TestGitSSHCommand(t *testing.T) {
	test := assert.New(t)

	cmd := GitSSHCommand("/keys/id_rsa")
	test.Contains(cmd, "-i /keys/id_rsa")
	test.Contains(cmd, "StrictHostKeyChecking=no")
}
