// HTTP clients for article and image fetches. HTTPS requests go out
// with a browser TLS fingerprint via utls, routed to HTTP/1.1 or
// HTTP/2 by ALPN; plain HTTP uses a standard client. All dialing is
// wrapped by an SSRF guard that refuses private and loopback
// addresses.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

const requestTimeout = 30 * time.Second

// maxResponseBytes caps how much of any single response body is read.
const maxResponseBytes int64 = 128 * 1024 * 1024 // 128 MB

var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",    // IPv4 loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // RFC3927 link-local
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Errorf("parse error on %q: %v", cidr, err))
		}
		privateIPBlocks = append(privateIPBlocks, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	if os.Getenv("PAPERONI_TEST_ALLOW_LOCAL") == "1" {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialContext wraps a dialer to block connections to private IPs.
// It resolves the hostname, checks the IP, and then dials the safe IP
// directly to avoid TOCTOU re-resolution.
func safeDialContext(dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, err
		}

		var safeIP net.IP
		for _, ip := range ips {
			if !isPrivateIP(ip) {
				safeIP = ip
				break
			}
		}
		if safeIP == nil {
			return nil, fmt.Errorf("blocked connection to private/local IP for %s", host)
		}

		// For TLS, the caller is responsible for SNI using the
		// original hostname.
		safeAddr := net.JoinHostPort(safeIP.String(), port)
		return dialer.DialContext(ctx, network, safeAddr)
	}
}

// readLimited reads up to limit bytes from r, rejecting responses that
// exceed it. A non-positive limit reads everything.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum allowed size (%s)", humanSize(limit))
	}
	return data, nil
}

// humanSize formats a byte count for log lines.
func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

// utlsConn wraps a utls.UConn and satisfies net.Conn plus the
// ConnectionState interface that net/http2 needs.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// newBrowserClient creates an HTTP client that mimics a real browser's
// TLS fingerprint. Redirects are not followed; the fetch pipeline
// handles Location headers itself.
func newBrowserClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	rt := &browserTransport{
		dialer: dialer,
		h1: &http.Transport{
			DialContext: safeDialContext(dialer),
		},
		h2: &http2.Transport{},
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type browserTransport struct {
	dialer *net.Dialer
	h1     *http.Transport
	h2     *http2.Transport
}

func (bt *browserTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := safeDialContext(bt.dialer)(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
	}, utls.HelloFirefox_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}

	alpn := tlsConn.ConnectionState().NegotiatedProtocol
	return &utlsConn{tlsConn}, alpn, nil
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr = addr + ":443"
	}

	conn, alpn, err := bt.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := bt.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2conn.RoundTrip(req)
	}

	// For HTTP/1.1, inject the TLS conn into a one-shot transport.
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
	}
	return transport.RoundTrip(req)
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}

// browserRequest builds a GET request with the header set a browser
// would send for a top-level navigation.
func browserRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	return req, nil
}
