package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ValidOffer(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_offer","targetId":2,"isRoom":false,"sdp":{"type":"offer"},"callType":"video"}`))

	assert.NoError(t, err)
	offer, ok := msg.(*CallOffer)
	assert.True(t, ok)
	assert.Equal(t, int64(2), offer.TargetID)
	assert.False(t, offer.IsRoom)
	assert.Equal(t, "video", offer.CallType)
	assert.JSONEq(t, `{"type":"offer"}`, string(offer.SDP))
}

func TestParse_RoomOffer(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_offer","targetId":10,"isRoom":true,"sdp":{},"callType":"audio"}`))

	assert.NoError(t, err)
	offer := msg.(*CallOffer)
	assert.True(t, offer.IsRoom)
	assert.Equal(t, int64(10), offer.TargetID)
}

func TestParse_OfferMissingTarget(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_offer","sdp":{},"callType":"audio"}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "targetId")
}

func TestParse_OfferMissingSDP(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_offer","targetId":2,"callType":"audio"}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sdp")
}

func TestParse_OfferNullSDP(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_offer","targetId":2,"sdp":null,"callType":"audio"}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sdp")
}

func TestParse_OfferBadCallType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_offer","targetId":2,"sdp":{},"callType":"hologram"}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "callType")
}

func TestParse_ValidAnswer(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_answer","callId":7,"sdp":{"type":"answer"}}`))

	assert.NoError(t, err)
	answer := msg.(*CallAnswer)
	assert.Equal(t, int64(7), answer.CallID)
}

func TestParse_AnswerMissingCallID(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_answer","sdp":{}}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "callId")
}

func TestParse_ValidDecline(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_decline","callId":7,"reason":"busy"}`))

	assert.NoError(t, err)
	decline := msg.(*CallDecline)
	assert.Equal(t, int64(7), decline.CallID)
	assert.Equal(t, "busy", decline.Reason)
}

func TestParse_ValidICECandidate(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_ice_candidate","targetId":3,"candidate":{"candidate":"candidate:0 1 UDP"}}`))

	assert.NoError(t, err)
	ice := msg.(*CallICECandidate)
	assert.Equal(t, int64(3), ice.TargetID)
}

func TestParse_ICECandidateMissingCandidate(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_ice_candidate","targetId":3}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "candidate")
}

func TestParse_ValidEnd(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"call_end","callId":9}`))

	assert.NoError(t, err)
	end := msg.(*CallEnd)
	assert.Equal(t, int64(9), end.CallID)
	assert.Empty(t, end.Reason)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"call_teleport","callId":1}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown")
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))

	assert.Error(t, err)

	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}
