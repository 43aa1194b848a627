package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedEvent struct {
	Type string `json:"type"`
}

func (e namedEvent) Name() string { return e.Type }

func TestFormat(t *testing.T) {
	msg, err := format(namedEvent{Type: "allocation_completed"})
	require.NoError(t, err)
	assert.Equal(t, "event: allocation_completed\ndata: {\"type\":\"allocation_completed\"}\n\n", string(msg))

	msg, err = format(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"n\":1}\n\n", string(msg))

	_, err = format(func() {})
	assert.Error(t, err)
}

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	h.Broadcast(namedEvent{Type: "topology_changed"})

	var got []string
	for len(got) < 2 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if l := strings.TrimSpace(line); l != "" {
			got = append(got, l)
		}
	}
	assert.Equal(t, []string{"event: topology_changed", `data: {"type":"topology_changed"}`}, got)
}

func TestRunStopsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
