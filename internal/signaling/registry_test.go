package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakePeer is a minimal Peer for registry and router tests
type fakePeer struct {
	userID  int64
	channel Channel
	accept  bool
	frames  [][]byte
}

func (p *fakePeer) UserID() int64    { return p.userID }
func (p *fakePeer) Channel() Channel { return p.channel }

func (p *fakePeer) Enqueue(frame []byte) bool {
	if !p.accept {
		return false
	}
	p.frames = append(p.frames, frame)
	return true
}

func newFakePeer(userID int64, channel Channel) *fakePeer {
	return &fakePeer{userID: userID, channel: channel, accept: true}
}

func TestRegistry_RegisterCountsPerUser(t *testing.T) {
	registry := NewRegistry()

	voice := newFakePeer(1, ChannelVoice)
	chat := newFakePeer(1, ChannelChat)

	assert.Equal(t, 1, registry.Register(voice))
	assert.Equal(t, 2, registry.Register(chat))
	assert.Equal(t, 1, registry.Register(newFakePeer(2, ChannelVoice)))

	assert.Equal(t, 3, registry.Count())
	assert.Len(t, registry.Connections(1), 2)
	assert.Len(t, registry.Connections(2), 1)
}

func TestRegistry_UnregisterRemovesOnlyThatConnection(t *testing.T) {
	registry := NewRegistry()

	voice := newFakePeer(1, ChannelVoice)
	chat := newFakePeer(1, ChannelChat)
	registry.Register(voice)
	registry.Register(chat)

	remaining := registry.Unregister(voice)

	assert.Equal(t, 1, remaining)
	assert.True(t, registry.IsOnline(1))

	conns := registry.Connections(1)
	assert.Len(t, conns, 1)
	assert.Equal(t, ChannelChat, conns[0].Channel())
}

func TestRegistry_LastUnregisterTakesUserOffline(t *testing.T) {
	registry := NewRegistry()

	peer := newFakePeer(7, ChannelVoice)
	registry.Register(peer)

	assert.True(t, registry.IsOnline(7))
	assert.Equal(t, 0, registry.Unregister(peer))
	assert.False(t, registry.IsOnline(7))
	assert.Nil(t, registry.Connections(7))
}

func TestRegistry_UnregisterUnknownPeerIsIgnored(t *testing.T) {
	registry := NewRegistry()

	registry.Register(newFakePeer(1, ChannelVoice))
	stranger := newFakePeer(1, ChannelChat)

	assert.Equal(t, 1, registry.Unregister(stranger))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_ConnectionsReturnsCopy(t *testing.T) {
	registry := NewRegistry()

	peer := newFakePeer(1, ChannelVoice)
	registry.Register(peer)

	conns := registry.Connections(1)
	conns[0] = nil

	assert.Equal(t, peer, registry.Connections(1)[0])
}
