package engine

import (
	"crypto/tls"
	"fmt"
)

// TLSConfig enables HTTPS with a certificate and key from disk.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// BuildConfig builds and returns the TLS configuration.
// Returns nil if TLS is not enabled.
func (c TLSConfig) BuildConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
