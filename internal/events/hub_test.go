package events

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastJSONToTCPClient(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })

	hub.Add(server)
	assert.Equal(t, 1, hub.Count())

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(client)
		if sc.Scan() {
			lines <- sc.Text()
		}
	}()

	hub.BroadcastJSON(Event{Type: TypeImportItem, Payload: map[string]any{"appid": 620}})

	select {
	case line := <-lines:
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, "import.item", ev.Type)
		assert.EqualValues(t, 620, ev.Payload["appid"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBroadcastDropsDeadClients(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	hub.Add(server)
	client.Close()
	server.Close()

	// closed pipe must be evicted, not block forever
	hub.BroadcastJSON(Event{Type: TypeImportPage})
	assert.Equal(t, 0, hub.Count())
}

func TestStats(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, Stats{}, hub.Stats())

	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	hub.Add(server)
	assert.Equal(t, Stats{TCPClients: 1}, hub.Stats())

	hub.Remove(server)
	assert.Equal(t, Stats{}, hub.Stats())
}
