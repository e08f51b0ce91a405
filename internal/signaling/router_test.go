package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_SendDeliversToAllConnections(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	desktop := newFakePeer(1, ChannelVoice)
	mobile := newFakePeer(1, ChannelChat)
	registry.Register(desktop)
	registry.Register(mobile)

	delivered := router.Send(1, NewErrorFrame("test"))

	assert.True(t, delivered)
	assert.Len(t, desktop.frames, 1)
	assert.Len(t, mobile.frames, 1)
	assert.JSONEq(t, string(desktop.frames[0]), string(mobile.frames[0]))
}

func TestRouter_SendToOfflineUserReportsFalse(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	delivered := router.Send(99, NewErrorFrame("test"))

	assert.False(t, delivered)
}

func TestRouter_SendTrueWhenAnyConnectionAccepts(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	saturated := newFakePeer(1, ChannelVoice)
	saturated.accept = false
	healthy := newFakePeer(1, ChannelChat)
	registry.Register(saturated)
	registry.Register(healthy)

	delivered := router.Send(1, NewErrorFrame("test"))

	assert.True(t, delivered)
	assert.Empty(t, saturated.frames)
	assert.Len(t, healthy.frames, 1)
}

func TestRouter_SendFalseWhenEveryConnectionRejects(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	saturated := newFakePeer(1, ChannelVoice)
	saturated.accept = false
	registry.Register(saturated)

	assert.False(t, router.Send(1, NewErrorFrame("test")))
}

func TestRouter_SendRawDeliversVerbatim(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	peer := newFakePeer(1, ChannelVoice)
	registry.Register(peer)

	frame := []byte(`{"type":"call_ended","callId":5,"reason":"ended"}`)
	assert.True(t, router.SendRaw(1, frame))
	assert.Equal(t, frame, peer.frames[0])
}

func TestRouter_SendMarshalsPayload(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, nil, nil)

	peer := newFakePeer(1, ChannelVoice)
	registry.Register(peer)

	router.Send(1, CallInitiatedFrame{Type: TypeCallInitiated, CallID: 42})

	var decoded CallInitiatedFrame
	assert.NoError(t, json.Unmarshal(peer.frames[0], &decoded))
	assert.Equal(t, TypeCallInitiated, decoded.Type)
	assert.Equal(t, int64(42), decoded.CallID)
}
