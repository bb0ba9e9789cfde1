package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceliveness/pkg/dto"
)

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{send: make(chan []byte, 4)}
	h.register <- client

	personID := uuid.New()
	h.BroadcastVerdict(&dto.WSEvent{Type: "verdict", Data: dto.VerdictEventResponse{
		PersonID:   &personID,
		Prediction: "Live",
	}})

	select {
	case msg := <-client.send:
		var event dto.WSEvent
		require.NoError(t, json.Unmarshal(msg, &event))
		require.Equal(t, "verdict", event.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{send: make(chan []byte, 4)}
	h.register <- client
	h.unregister <- client

	select {
	case _, ok := <-client.send:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send channel to close")
	}
}

func TestHubDropsSlowClientsRatherThanBlocking(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{send: make(chan []byte)} // unbuffered, no reader
	h.register <- client

	for i := 0; i < 8; i++ {
		h.BroadcastVerdict(&dto.WSEvent{Type: "verdict"})
	}

	// The hub must not deadlock even though nothing drains client.send.
	other := &Client{send: make(chan []byte, 1)}
	h.register <- other
	h.BroadcastVerdict(&dto.WSEvent{Type: "verdict"})

	select {
	case <-other.send:
	case <-time.After(time.Second):
		t.Fatal("hub appears to have deadlocked on a slow client")
	}
}
