// Package proxy builds HTTP clients that honour the user's proxy settings
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// ErrUnsupportedType is returned for proxy schemes other than http, socks5 and socks5h
var ErrUnsupportedType = errors.New("unsupported proxy type")

// Timeouts bounds the phases of a request. A zero Total leaves the body
// unbounded, which large downloads need.
type Timeouts struct {
	Connect  time.Duration
	Response time.Duration
	Total    time.Duration
}

// Preset timeouts for the different callers
var (
	TestTimeouts     = Timeouts{Connect: 4 * time.Second, Response: 5 * time.Second, Total: 5 * time.Second}
	CheckTimeouts    = Timeouts{Connect: 8 * time.Second, Response: 12 * time.Second, Total: 12 * time.Second}
	DownloadTimeouts = Timeouts{Connect: 10 * time.Second, Response: 30 * time.Second}
)

// NewClient returns an HTTP client routed through cfg when the proxy is active
// and a direct client otherwise. Redirects are followed.
func NewClient(cfg config.ProxyConfig, timeouts Timeouts) (*http.Client, error) {
	dialer := &net.Dialer{Timeout: timeouts.Connect, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeouts.Connect,
		ResponseHeaderTimeout: timeouts.Response,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	if cfg.Active() {
		proxyURL, err := url.Parse(cfg.URL())
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address: %w", err)
		}

		switch proxyURL.Scheme {
		case config.ProxyHTTP:
			transport.Proxy = http.ProxyURL(proxyURL)
		case config.ProxySOCKS5, config.ProxySOCKS5H:
			dial, err := socksDialContext(proxyURL, dialer)
			if err != nil {
				return nil, err
			}
			transport.DialContext = dial
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, proxyURL.Scheme)
		}
		logger.Debug(logger.CategoryProxy, "Using %s proxy %s", proxyURL.Scheme, proxyURL.Host)
	}

	return &http.Client{Transport: transport, Timeout: timeouts.Total}, nil
}

// socksDialContext dials through a SOCKS5 proxy. socks5h hands host names to
// the proxy; plain socks5 resolves them locally first.
func socksDialContext(proxyURL *url.URL, forward *net.Dialer) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	d, err := xproxy.FromURL(proxyURL, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS dialer: %w", err)
	}
	cd, ok := d.(xproxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: SOCKS dialer without context support", ErrUnsupportedType)
	}

	remoteDNS := proxyURL.Scheme == config.ProxySOCKS5H
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !remoteDNS {
			resolved, err := resolveLocally(ctx, addr)
			if err != nil {
				return nil, err
			}
			addr = resolved
		}
		return cd.DialContext(ctx, network, addr)
	}, nil
}

func resolveLocally(ctx context.Context, addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return addr, nil
	}
	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("resolve %s: no addresses", host)
	}
	return net.JoinHostPort(ips[0], port), nil
}

// Test sends one request through cfg to target and reports a human readable verdict
func Test(ctx context.Context, cfg config.ProxyConfig, target string) (bool, string) {
	if !cfg.Enabled {
		return true, "Proxy disabled."
	}
	if cfg.Host == "" || cfg.Port == "" {
		return false, "Host/port is empty."
	}

	if sshBanner(ctx, net.JoinHostPort(cfg.Host, cfg.Port)) {
		logger.Warning(logger.CategoryProxy, "Proxy port %s:%s answered with an SSH banner", cfg.Host, cfg.Port)
		return false, sshMessage
	}

	client, err := NewClient(cfg, TestTimeouts)
	if err != nil {
		return false, err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("User-Agent", "Mediascribe-Proxy-Test/1.0")

	resp, err := client.Do(req)
	if err != nil {
		logger.Warning(logger.CategoryProxy, "Proxy test failed: %v", err)
		return false, describeError(err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("Proxy reachable, but target returned HTTP %d.", resp.StatusCode)
	}

	host := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		host = u.Host
	}
	return true, fmt.Sprintf("Connected via %s proxy to %s (HTTP %d).", cfg.Type, host, resp.StatusCode)
}

const sshMessage = "Proxy port looks like SSH service, not SOCKS/HTTP proxy."

// bannerWait is how long the proxy port gets to greet first. HTTP and SOCKS
// proxies stay silent until the client speaks.
var bannerWait = 600 * time.Millisecond

// sshBanner reports whether the server at addr greets with an SSH banner
func sshBanner(ctx context.Context, addr string) bool {
	d := net.Dialer{Timeout: TestTimeouts.Connect}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(bannerWait))
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return false
	}
	return string(buf) == "SSH-"
}

func describeError(err error) string {
	text := err.Error()
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "ssh-2.0"),
		strings.Contains(low, `malformed http response "ssh-`),
		strings.Contains(low, "unexpected protocol version 83"),
		strings.Contains(low, "debian"):
		return sshMessage
	}
	return text
}
