package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-barlow-spady/mediascribe/config"
)

// proxyFromServer turns a test server address into an active proxy config
func proxyFromServer(t *testing.T, rawURL, typ string) config.ProxyConfig {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return config.ProxyConfig{Enabled: true, Type: typ, Host: host, Port: port}
}

func TestTestDisabledAndIncomplete(t *testing.T) {
	ok, detail := Test(context.Background(), config.DefaultProxyConfig(), "http://unused")
	assert.True(t, ok)
	assert.Equal(t, "Proxy disabled.", detail)

	ok, detail = Test(context.Background(), config.ProxyConfig{Enabled: true, Type: "http", Host: "h"}, "http://unused")
	assert.False(t, ok)
	assert.Equal(t, "Host/port is empty.", detail)
}

func TestTestThroughHTTPProxy(t *testing.T) {
	var seenHost, seenAuth string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHost = r.URL.Host
		seenAuth = r.Header.Get("Proxy-Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer proxySrv.Close()

	cfg := proxyFromServer(t, proxySrv.URL, config.ProxyHTTP)
	cfg.User, cfg.Pass = "user", "pass"

	ok, detail := Test(context.Background(), cfg, "http://models.example/")
	assert.True(t, ok, detail)
	assert.Equal(t, "Connected via http proxy to models.example (HTTP 200).", detail)
	assert.Equal(t, "models.example", seenHost)
	assert.NotEmpty(t, seenAuth, "basic auth must be forwarded to the proxy")
}

func TestTestTargetError(t *testing.T) {
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer proxySrv.Close()

	ok, detail := Test(context.Background(), proxyFromServer(t, proxySrv.URL, config.ProxyHTTP), "http://models.example/")
	assert.False(t, ok)
	assert.Equal(t, "Proxy reachable, but target returned HTTP 403.", detail)
}

// sshServer greets every connection with an OpenSSH banner
func sshServer(t *testing.T, banner string) (string, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Write([]byte(banner))
			conn.Close()
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestTestDetectsSSHPort(t *testing.T) {
	for _, banner := range []string{
		"SSH-2.0-OpenSSH_8.9p1 Ubuntu-3\r\n",
		"SSH-2.0-OpenSSH_9.2p1 Debian-2+deb12u3\r\n",
	} {
		host, port := sshServer(t, banner)
		for _, typ := range config.ProxyTypes {
			cfg := config.ProxyConfig{Enabled: true, Type: typ, Host: host, Port: port}

			ok, detail := Test(context.Background(), cfg, "http://models.example/")
			assert.False(t, ok, typ)
			assert.Equal(t, "Proxy port looks like SSH service, not SOCKS/HTTP proxy.", detail, typ)
		}
	}
}

func TestDescribeError(t *testing.T) {
	ssh := "Proxy port looks like SSH service, not SOCKS/HTTP proxy."
	assert.Equal(t, ssh, describeError(errors.New(`Get "http://x/": net/http: HTTP/1.x transport connection broken: malformed HTTP response "SSH-2.0-OpenSSH_8.9p1"`)))
	assert.Equal(t, ssh, describeError(errors.New("socks connect tcp 127.0.0.1:22->x:80: unexpected protocol version 83")))
	assert.Equal(t, "dial tcp: connection refused", describeError(errors.New("dial tcp: connection refused")))
}

// socksServer is a minimal SOCKS5 endpoint that records the address type and
// host of the first CONNECT request, then refuses it.
func socksServer(t *testing.T) (string, string, <-chan [2]string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	seen := make(chan [2]string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		head := make([]byte, 2)
		if _, err := io.ReadFull(conn, head); err != nil {
			return
		}
		methods := make([]byte, head[1])
		if _, err := io.ReadFull(conn, methods); err != nil {
			return
		}
		conn.Write([]byte{5, 0})

		req := make([]byte, 4)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		var host string
		switch req[3] {
		case 1:
			addr := make([]byte, 4)
			io.ReadFull(conn, addr)
			host = net.IP(addr).String()
		case 4:
			addr := make([]byte, 16)
			io.ReadFull(conn, addr)
			host = net.IP(addr).String()
		case 3:
			n := make([]byte, 1)
			io.ReadFull(conn, n)
			name := make([]byte, n[0])
			io.ReadFull(conn, name)
			host = string(name)
		}
		seen <- [2]string{fmt.Sprint(req[3]), host}
		conn.Write([]byte{5, 1, 0, 1, 0, 0, 0, 0, 0, 0})
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, seen
}

func TestSOCKSNameResolution(t *testing.T) {
	tests := []struct {
		typ      string
		target   string
		wantType []string
		wantHost string
	}{
		{config.ProxySOCKS5, "http://localhost/", []string{"1", "4"}, ""},
		{config.ProxySOCKS5H, "http://models.example/", []string{"3"}, "models.example"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			host, port, seen := socksServer(t)
			client, err := NewClient(config.ProxyConfig{Enabled: true, Type: tt.typ, Host: host, Port: port}, TestTimeouts)
			require.NoError(t, err)

			_, err = client.Get(tt.target)
			assert.Error(t, err, "the fake proxy refuses every connect")

			select {
			case got := <-seen:
				assert.Contains(t, tt.wantType, got[0])
				if tt.wantHost != "" {
					assert.Equal(t, tt.wantHost, got[1])
				} else {
					assert.NotEqual(t, "localhost", got[1], "socks5 must resolve locally")
				}
			case <-time.After(5 * time.Second):
				t.Fatal("no CONNECT request reached the proxy")
			}
		})
	}
}

func TestNewClientVariants(t *testing.T) {
	direct, err := NewClient(config.DefaultProxyConfig(), CheckTimeouts)
	require.NoError(t, err)
	assert.Equal(t, CheckTimeouts.Total, direct.Timeout)
	assert.Nil(t, direct.Transport.(*http.Transport).Proxy)

	for _, typ := range []string{config.ProxySOCKS5, config.ProxySOCKS5H} {
		client, err := NewClient(config.ProxyConfig{Enabled: true, Type: typ, Host: "127.0.0.1", Port: "1080"}, DownloadTimeouts)
		require.NoError(t, err, typ)
		transport := client.Transport.(*http.Transport)
		assert.Nil(t, transport.Proxy, "SOCKS proxies dial directly")
		assert.NotNil(t, transport.DialContext)
		assert.Zero(t, client.Timeout, "downloads are not bounded in total")
	}

	_, err = NewClient(config.ProxyConfig{Enabled: true, Type: "ftp", Host: "h", Port: "21"}, TestTimeouts)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
