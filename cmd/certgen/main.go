// Command certgen writes a self-signed CA and a server certificate for
// running the portal over TLS locally (server.cert_file, server.key_file).
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

type options struct {
	ips      []net.IP
	hosts    []string
	org      string
	bits     int
	validFor time.Duration
}

type bundle struct {
	CertPEM []byte
	KeyPEM  []byte
	CAPEM   []byte
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("certgen", pflag.ContinueOnError)
	ips := fs.IPSlice("ip", []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}, "IP addresses the certificate is valid for")
	hosts := fs.StringSlice("host", []string{"localhost"}, "DNS names the certificate is valid for")
	org := fs.String("org", "memberportal dev", "certificate organization")
	bits := fs.Int("bits", 4096, "RSA key size")
	validFor := fs.Duration("valid-for", 10*365*24*time.Hour, "certificate lifetime")
	out := fs.String("out", ".", "output directory")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	certFile := filepath.Join(*out, "cert.pem")
	keyFile := filepath.Join(*out, "key.pem")
	caFile := filepath.Join(*out, "ca.pem")
	if !*force && !isCertMissing(certFile, keyFile) {
		return errors.New("cert exists, use --force to overwrite")
	}

	b, err := generate(options{
		ips:      *ips,
		hosts:    *hosts,
		org:      *org,
		bits:     *bits,
		validFor: *validFor,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(certFile, b.CertPEM, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(keyFile, b.KeyPEM, 0o600); err != nil {
		return err
	}
	return os.WriteFile(caFile, b.CAPEM, 0o600)
}

func generate(opts options) (bundle, error) {
	now := time.Now()
	subject := pkix.Name{Organization: []string{opts.org}}

	ca := &x509.Certificate{
		SerialNumber:          randomSerial(),
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              now.Add(opts.validFor),
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caKey, err := rsa.GenerateKey(rand.Reader, opts.bits)
	if err != nil {
		return bundle{}, err
	}
	caDER, err := x509.CreateCertificate(rand.Reader, ca, ca, &caKey.PublicKey, caKey)
	if err != nil {
		return bundle{}, err
	}

	cert := &x509.Certificate{
		SerialNumber: randomSerial(),
		Subject:      subject,
		IPAddresses:  opts.ips,
		DNSNames:     opts.hosts,
		NotBefore:    now,
		NotAfter:     now.Add(opts.validFor),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	certKey, err := rsa.GenerateKey(rand.Reader, opts.bits)
	if err != nil {
		return bundle{}, err
	}
	certDER, err := x509.CreateCertificate(rand.Reader, cert, ca, &certKey.PublicKey, caKey)
	if err != nil {
		return bundle{}, err
	}

	var b bundle
	if b.CAPEM, err = encodePEM("CERTIFICATE", caDER); err != nil {
		return bundle{}, err
	}
	if b.CertPEM, err = encodePEM("CERTIFICATE", certDER); err != nil {
		return bundle{}, err
	}
	if b.KeyPEM, err = encodePEM("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(certKey)); err != nil {
		return bundle{}, err
	}
	return b, nil
}

func encodePEM(blockType string, der []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := pem.Encode(buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isCertMissing(files ...string) bool {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			return true
		}
	}
	return false
}

func randomSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	i, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(err)
	}
	return i
}
