// Package tlsconf builds client TLS configurations for socket handlers.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
)

const KeyLogEnv = "LOGCHAIN_KEYLOG_FILE"

func ParseCAFile(certfile string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	pem, err := os.ReadFile(certfile)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", certfile, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("PEM parsing error")
	}
	return pool, nil
}

// ClientConfig loads the client certificate from certFile and keyFile. With
// empty caFile the system cert pool verifies the server.
func ClientConfig(serverName, caFile, certFile, keyFile string,
) (*tls.Config, error) {
	var certs []tls.Certificate
	if certFile != "" {
		clientCert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("cannot load client cert: %w", err)
		}
		certs = append(certs, clientCert)
	}

	var rootCAs *x509.CertPool
	var err error
	if caFile == "" {
		if rootCAs, err = x509.SystemCertPool(); err != nil {
			return nil, fmt.Errorf("cannot open system cert pool: %w", err)
		}
	} else if rootCAs, err = ParseCAFile(caFile); err != nil {
		return nil, fmt.Errorf("cannot parse CA cert: %w", err)
	}

	keyLog, err := keylogFromEnv()
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: certs,
		RootCAs:      rootCAs,
		ServerName:   serverName,
		KeyLogWriter: keyLog,
	}
	return tlsConfig, nil
}

func keylogFromEnv() (io.Writer, error) {
	outfile := os.Getenv(KeyLogEnv)
	if outfile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(outfile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open key log: %w", err)
	}
	return f, nil
}
