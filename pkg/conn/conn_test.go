package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evhttpd/evhttpd/pkg/dispatch"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

func testOptions() Options {
	return Options{
		TotalRecvTimeout: time.Second,
		KeepAliveTimeout: 200 * time.Millisecond,
		TotalSendTimeout: time.Second,
		NeedKeepAlive:    true,
	}
}

func TestConnectionServesOneRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	table := dispatch.NewTable()
	table.Register(httpmsg.MethodGet, "/hello", func(req *httpmsg.Request, resp *httpmsg.Response) {
		resp.StatusCode = 200
		resp.Headers.Add("Content-Type", "text/plain")
		resp.Body = []byte("hi")
	})

	c := New(server, testOptions(), table, Counters{}, nil)
	done := make(chan struct{})
	go func() {
		c.Serve(context.Background())
		close(done)
	}()

	_, err := client.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	resp := string(buf[:n])

	require.Contains(t, resp, "HTTP/1.1 200")
	require.Contains(t, resp, "hi")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection did not close after Connection: close")
	}
}

func TestConnectionKeepAliveServesSecondRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	table := dispatch.NewTable()
	table.Register(httpmsg.MethodGet, "/a", func(req *httpmsg.Request, resp *httpmsg.Response) {
		resp.StatusCode = 200
		resp.Body = []byte("A")
	})
	table.Register(httpmsg.MethodGet, "/b", func(req *httpmsg.Request, resp *httpmsg.Response) {
		resp.StatusCode = 200
		resp.Body = []byte("B")
	})

	c := New(server, testOptions(), table, Counters{}, nil)
	done := make(chan struct{})
	go func() {
		c.Serve(context.Background())
		close(done)
	}()

	client.SetDeadline(time.Now().Add(3 * time.Second))

	_, err := client.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "A")

	_, err = client.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	n, err = client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "B")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection did not close after second Connection: close")
	}
}

func TestConnectionHandlerOverridesKeepalive(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	table := dispatch.NewTable()
	table.Register(httpmsg.MethodGet, "/force-close", func(req *httpmsg.Request, resp *httpmsg.Response) {
		resp.StatusCode = 200
		resp.Body = []byte("bye")
		resp.NeedKeepalive = false
	})
	table.Register(httpmsg.MethodGet, "/second", func(req *httpmsg.Request, resp *httpmsg.Response) {
		resp.StatusCode = 200
		resp.Body = []byte("unreachable")
	})

	c := New(server, testOptions(), table, Counters{}, nil)
	done := make(chan struct{})
	go func() {
		c.Serve(context.Background())
		close(done)
	}()

	client.SetDeadline(time.Now().Add(3 * time.Second))

	// Request asks to keep the connection alive (default HTTP/1.1
	// behavior), but the handler overrides NeedKeepalive to false.
	_, err := client.Write([]byte("GET /force-close HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "bye")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection did not close after handler overrode NeedKeepalive to false")
	}
}

func TestConnectionReturns404ForUnregisteredPath(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	table := dispatch.NewTable()
	c := New(server, testOptions(), table, Counters{}, nil)
	go c.Serve(context.Background())

	_, err := client.Write([]byte("GET /missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "HTTP/1.1 404")
}
