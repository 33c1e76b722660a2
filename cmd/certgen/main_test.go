package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	b, err := generate(options{
		ips:      []net.IP{net.IPv4(10, 0, 0, 1)},
		hosts:    []string{"portal.local"},
		org:      "test",
		bits:     2048,
		validFor: time.Hour,
	})
	require.NoError(t, err)

	_, err = tls.X509KeyPair(b.CertPEM, b.KeyPEM)
	require.NoError(t, err)

	block, _ := pem.Decode(b.CertPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(b.CAPEM))
	_, err = cert.Verify(x509.VerifyOptions{
		Roots:   pool,
		DNSName: "portal.local",
	})
	assert.NoError(t, err)
	assert.True(t, cert.IPAddresses[0].Equal(net.IPv4(10, 0, 0, 1)))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	args := []string{"--out", dir, "--bits", "2048", "--ip", "127.0.0.1"}
	require.NoError(t, run(args))
	for _, f := range []string{"cert.pem", "key.pem", "ca.pem"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}

	assert.Error(t, run(args))
	assert.NoError(t, run(append(args, "--force")))
}
