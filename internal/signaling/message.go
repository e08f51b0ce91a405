package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
)

// Inbound message types
const (
	TypeCallOffer        = "call_offer"
	TypeCallAnswer       = "call_answer"
	TypeCallDecline      = "call_decline"
	TypeCallICECandidate = "call_ice_candidate"
	TypeCallEnd          = "call_end"
)

// Outbound frame types
const (
	TypeCallIncoming   = "call_incoming"
	TypeCallInitiated  = "call_initiated"
	TypeCallAnswered   = "call_answered"
	TypeCallDeclined   = "call_declined"
	TypeCallEnded      = "call_ended"
	TypeCallEndSuccess = "call_end_success"
	TypeError          = "error"
)

// ProtocolError is a client-facing validation failure. Its message is safe to
// echo back in an error frame.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func protocolErrorf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

// CallOffer initiates a call toward a user or a room
type CallOffer struct {
	TargetID int64           `json:"targetId"`
	IsRoom   bool            `json:"isRoom"`
	SDP      json.RawMessage `json:"sdp"`
	CallType string          `json:"callType"`
}

// CallAnswer accepts a pending call
type CallAnswer struct {
	CallID int64           `json:"callId"`
	SDP    json.RawMessage `json:"sdp"`
}

// CallDecline rejects a pending call
type CallDecline struct {
	CallID int64  `json:"callId"`
	Reason string `json:"reason"`
}

// CallICECandidate relays a connectivity candidate between peers
type CallICECandidate struct {
	TargetID  int64           `json:"targetId"`
	Candidate json.RawMessage `json:"candidate"`
}

// CallEnd terminates a call
type CallEnd struct {
	CallID int64  `json:"callId"`
	Reason string `json:"reason"`
}

type envelope struct {
	Type string `json:"type"`
}

// Parse decodes and validates one inbound signaling frame. It returns one of
// the typed inbound messages, or a *ProtocolError describing what the client
// got wrong.
func Parse(data []byte) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, protocolErrorf("Invalid message format")
	}

	switch env.Type {
	case TypeCallOffer:
		var msg CallOffer
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, protocolErrorf("Invalid message format")
		}
		if msg.TargetID <= 0 {
			return nil, protocolErrorf("Missing required field: targetId")
		}
		if !rawFieldPresent(msg.SDP) {
			return nil, protocolErrorf("Missing required field: sdp")
		}
		if msg.CallType != constants.CallTypeAudio && msg.CallType != constants.CallTypeVideo {
			return nil, protocolErrorf("Invalid callType: must be audio or video")
		}
		return &msg, nil

	case TypeCallAnswer:
		var msg CallAnswer
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, protocolErrorf("Invalid message format")
		}
		if msg.CallID <= 0 {
			return nil, protocolErrorf("Missing required field: callId")
		}
		if !rawFieldPresent(msg.SDP) {
			return nil, protocolErrorf("Missing required field: sdp")
		}
		return &msg, nil

	case TypeCallDecline:
		var msg CallDecline
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, protocolErrorf("Invalid message format")
		}
		if msg.CallID <= 0 {
			return nil, protocolErrorf("Missing required field: callId")
		}
		return &msg, nil

	case TypeCallICECandidate:
		var msg CallICECandidate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, protocolErrorf("Invalid message format")
		}
		if msg.TargetID <= 0 {
			return nil, protocolErrorf("Missing required field: targetId")
		}
		if !rawFieldPresent(msg.Candidate) {
			return nil, protocolErrorf("Missing required field: candidate")
		}
		return &msg, nil

	case TypeCallEnd:
		var msg CallEnd
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, protocolErrorf("Invalid message format")
		}
		if msg.CallID <= 0 {
			return nil, protocolErrorf("Missing required field: callId")
		}
		return &msg, nil
	}

	return nil, protocolErrorf("Unknown call message type")
}

// rawFieldPresent reports whether a raw JSON field was supplied with a
// non-null value
func rawFieldPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// CallerInfo identifies the user that initiated a call
type CallerInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// IncomingCall describes a ringing call to its recipients
type IncomingCall struct {
	ID       int64           `json:"id"`
	CallType string          `json:"callType"`
	IsRoom   bool            `json:"isRoom"`
	RoomID   *int64          `json:"roomId,omitempty"`
	RoomName string          `json:"roomName,omitempty"`
	Caller   CallerInfo      `json:"caller"`
	SDP      json.RawMessage `json:"sdp"`
}

// CallIncomingFrame notifies a recipient of a ringing call
type CallIncomingFrame struct {
	Type string       `json:"type"`
	Call IncomingCall `json:"call"`
}

// CallInitiatedFrame acknowledges an offer back to the caller
type CallInitiatedFrame struct {
	Type   string `json:"type"`
	CallID int64  `json:"callId"`
}

// CallAnsweredFrame notifies the caller the call was accepted
type CallAnsweredFrame struct {
	Type     string          `json:"type"`
	CallID   int64           `json:"callId"`
	UserID   int64           `json:"userId"`
	CallType string          `json:"callType"`
	SDP      json.RawMessage `json:"sdp"`
}

// CallDeclinedFrame notifies the caller the call was rejected
type CallDeclinedFrame struct {
	Type   string `json:"type"`
	CallID int64  `json:"callId"`
	UserID int64  `json:"userId"`
	Reason string `json:"reason"`
}

// ICECandidateFrame relays a connectivity candidate to its target
type ICECandidateFrame struct {
	Type      string          `json:"type"`
	UserID    int64           `json:"userId"`
	Candidate json.RawMessage `json:"candidate"`
}

// CallEndedFrame notifies a participant the call is over
type CallEndedFrame struct {
	Type   string `json:"type"`
	CallID int64  `json:"callId"`
	Reason string `json:"reason"`
}

// CallEndSuccessFrame acknowledges a call_end back to its sender
type CallEndSuccessFrame struct {
	Type   string `json:"type"`
	CallID int64  `json:"callId"`
}

// ErrorFrame reports a non-fatal protocol error to the originating connection
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorFrame builds an error frame with the given message
func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}
