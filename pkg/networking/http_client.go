// Copyright 2025 Stacklok, Inc.
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

package networking

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// HttpTimeout is the default overall client timeout.
const HttpTimeout = 30 * time.Second

const (
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
)

// HttpClientBuilder builds an *http.Client for talking to the upstream
// service, with optional CA bundle pinning, TLS verification control, and
// proxy configuration. Authentication headers are attached per-request by
// the auth provider, not baked into the transport, since OAuth access tokens
// rotate over the client's lifetime.
type HttpClientBuilder struct {
	clientTimeout time.Duration
	caCertPath    string
	insecureSkip  bool
	httpProxy     string
	httpsProxy    string
}

// NewHttpClientBuilder returns a builder with the teacher's conventional
// defaults: a 30s overall timeout and verified TLS.
func NewHttpClientBuilder() *HttpClientBuilder {
	return &HttpClientBuilder{clientTimeout: HttpTimeout}
}

// WithTimeout overrides the overall client timeout.
func (b *HttpClientBuilder) WithTimeout(d time.Duration) *HttpClientBuilder {
	b.clientTimeout = d
	return b
}

// WithCABundle pins a custom CA certificate bundle, read at Build time.
func (b *HttpClientBuilder) WithCABundle(path string) *HttpClientBuilder {
	b.caCertPath = path
	return b
}

// WithTLSVerify controls certificate verification; false sets
// InsecureSkipVerify (for development against self-signed upstreams only).
func (b *HttpClientBuilder) WithTLSVerify(verify bool) *HttpClientBuilder {
	b.insecureSkip = !verify
	return b
}

// WithProxy sets the HTTP and HTTPS proxy URLs (either may be empty).
func (b *HttpClientBuilder) WithProxy(httpProxy, httpsProxy string) *HttpClientBuilder {
	b.httpProxy = httpProxy
	b.httpsProxy = httpsProxy
	return b
}

// Build constructs the *http.Client.
func (b *HttpClientBuilder) Build() (*http.Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: b.insecureSkip} //nolint:gosec // operator opt-in only

	if b.caCertPath != "" {
		pem, err := os.ReadFile(b.caCertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate bundle: %s", b.caCertPath)
		}
		tlsConfig.RootCAs = pool
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}

	if b.httpProxy != "" || b.httpsProxy != "" {
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			raw := b.httpsProxy
			if req.URL.Scheme == "http" && b.httpProxy != "" {
				raw = b.httpProxy
			}
			if raw == "" {
				return nil, nil
			}
			return url.Parse(raw)
		}
	}

	return &http.Client{Timeout: b.clientTimeout, Transport: transport}, nil
}
