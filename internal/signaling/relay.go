package signaling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/domain"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/metrics"
)

// CallStore persists call records. Status transitions are compare-and-set:
// the bool result reports whether this invocation performed the transition.
type CallStore interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID int64) (*domain.Call, error)
	MarkAnswered(ctx context.Context, callID int64, answeredAt time.Time) (bool, error)
	MarkDeclined(ctx context.Context, callID int64) (bool, error)
	MarkMissed(ctx context.Context, callID int64) (bool, error)
	MarkEnded(ctx context.Context, callID int64, endedAt time.Time, duration int) (bool, error)
}

// UserStore resolves users referenced by signaling events
type UserStore interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
}

// RoomStore resolves rooms and their membership for group calls
type RoomStore interface {
	GetByID(ctx context.Context, roomID int64) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID int64) ([]*domain.User, error)
}

// Sender routes a payload to all live connections of a user
type Sender interface {
	Send(targetUserID int64, payload interface{}) bool
}

// ReplyFunc delivers a frame to the connection the triggering event arrived
// on. Error frames go only to that connection, never to the user's other
// devices.
type ReplyFunc func(payload interface{})

// Config holds relay tuning knobs
type Config struct {
	// RingTimeout is how long a pending call rings before it is marked
	// missed. Zero selects the default. Every pending call gets a timer:
	// without one, a call nobody answers or ends would stay pending and
	// the active-call gauge would never come back down.
	RingTimeout time.Duration
}

// Relay is the call-signaling state machine. It validates inbound events,
// creates and mutates call records, resolves recipient sets, and emits routed
// frames. It keeps no call state of its own beyond ring timers; the store is
// the single source of truth, so any process that can reach the store and the
// router can handle any event for a given call.
type Relay struct {
	calls  CallStore
	users  UserStore
	rooms  RoomStore
	router Sender

	log     *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewRelay creates a relay over the given collaborators. log and m may be nil.
func NewRelay(calls CallStore, users UserStore, rooms RoomStore, router Sender, log *zap.Logger, m *metrics.Metrics, cfg Config) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RingTimeout <= 0 {
		cfg.RingTimeout = constants.DefaultRingTimeout
	}
	return &Relay{
		calls:   calls,
		users:   users,
		rooms:   rooms,
		router:  router,
		log:     log,
		metrics: m,
		cfg:     cfg,
		timers:  make(map[int64]*time.Timer),
	}
}

// HandleMessage processes one inbound signaling frame from senderID. All
// failures degrade to an error frame on the originating connection; nothing
// escapes to crash the socket or the process.
func (r *Relay) HandleMessage(ctx context.Context, senderID int64, data []byte, reply ReplyFunc) {
	msg, err := Parse(data)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			r.sendError(reply, perr.Message)
			return
		}
		r.sendError(reply, "Invalid message format")
		return
	}

	switch m := msg.(type) {
	case *CallOffer:
		r.handleOffer(ctx, senderID, m, reply)
	case *CallAnswer:
		r.handleAnswer(ctx, senderID, m, reply)
	case *CallDecline:
		r.handleDecline(ctx, senderID, m, reply)
	case *CallICECandidate:
		r.handleICECandidate(senderID, m)
	case *CallEnd:
		r.handleEnd(ctx, senderID, m, reply)
	}
}

// Shutdown cancels all outstanding ring timers
func (r *Relay) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

func (r *Relay) handleOffer(ctx context.Context, senderID int64, offer *CallOffer, reply ReplyFunc) {
	caller, err := r.users.GetByID(ctx, senderID)
	if err != nil {
		r.storageFailure(reply, "Failed to initiate call", err)
		return
	}

	var (
		call       *domain.Call
		recipients []int64
		roomName   string
	)

	if offer.IsRoom {
		room, err := r.rooms.GetByID(ctx, offer.TargetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.sendError(reply, "Room not found")
			} else {
				r.storageFailure(reply, "Failed to initiate call", err)
			}
			return
		}
		members, err := r.rooms.GetMembers(ctx, offer.TargetID)
		if err != nil {
			r.storageFailure(reply, "Failed to initiate call", err)
			return
		}
		for _, m := range members {
			if m.ID != senderID {
				recipients = append(recipients, m.ID)
			}
		}
		roomID := room.ID
		roomName = room.Name
		call = &domain.Call{
			CallerID:  senderID,
			RoomID:    &roomID,
			CallType:  offer.CallType,
			Status:    constants.CallStatusPending,
			StartedAt: time.Now(),
		}
	} else {
		if _, err := r.users.GetByID(ctx, offer.TargetID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.sendError(reply, "User not found")
			} else {
				r.storageFailure(reply, "Failed to initiate call", err)
			}
			return
		}
		receiverID := offer.TargetID
		recipients = []int64{receiverID}
		call = &domain.Call{
			CallerID:   senderID,
			ReceiverID: &receiverID,
			CallType:   offer.CallType,
			Status:     constants.CallStatusPending,
			StartedAt:  time.Now(),
		}
	}

	if err := r.calls.Create(ctx, call); err != nil {
		r.storageFailure(reply, "Failed to initiate call", err)
		return
	}

	if r.metrics != nil {
		r.metrics.IncrementActiveCalls()
	}

	incoming := CallIncomingFrame{
		Type: TypeCallIncoming,
		Call: IncomingCall{
			ID:       call.ID,
			CallType: call.CallType,
			IsRoom:   offer.IsRoom,
			RoomID:   call.RoomID,
			RoomName: roomName,
			Caller:   CallerInfo{ID: caller.ID, Username: caller.Username},
			SDP:      offer.SDP,
		},
	}

	// Best-effort fan-out: an offline recipient is a no-op, not an error
	for _, recipientID := range recipients {
		if offer.IsRoom && r.metrics != nil {
			r.metrics.RecordFanoutTarget()
		}
		if !r.router.Send(recipientID, incoming) {
			r.log.Debug("call offer not delivered",
				zap.Int64("call_id", call.ID),
				zap.Int64("recipient_id", recipientID))
		}
	}

	reply(CallInitiatedFrame{Type: TypeCallInitiated, CallID: call.ID})
	r.scheduleRingTimeout(call, recipients)

	r.log.Info("call initiated",
		zap.Int64("call_id", call.ID),
		zap.Int64("caller_id", senderID),
		zap.Int64("target_id", offer.TargetID),
		zap.Bool("is_room", offer.IsRoom),
		zap.String("call_type", call.CallType))
}

func (r *Relay) handleAnswer(ctx context.Context, senderID int64, answer *CallAnswer, reply ReplyFunc) {
	call, err := r.calls.GetByID(ctx, answer.CallID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.sendError(reply, "Call not found")
		} else {
			r.storageFailure(reply, "Failed to answer call", err)
		}
		return
	}

	answered, err := r.calls.MarkAnswered(ctx, call.ID, time.Now())
	if err != nil {
		r.storageFailure(reply, "Failed to answer call", err)
		return
	}
	if !answered {
		// Lost the compare-and-set: a duplicate answer or the call already
		// reached a terminal status. The caller hears about the first answer
		// only.
		r.sendError(reply, "Call already answered")
		return
	}

	r.cancelRingTimer(call.ID)

	r.router.Send(call.CallerID, CallAnsweredFrame{
		Type:     TypeCallAnswered,
		CallID:   call.ID,
		UserID:   senderID,
		CallType: call.CallType,
		SDP:      answer.SDP,
	})

	r.log.Info("call answered",
		zap.Int64("call_id", call.ID),
		zap.Int64("answerer_id", senderID))
}

func (r *Relay) handleDecline(ctx context.Context, senderID int64, decline *CallDecline, reply ReplyFunc) {
	call, err := r.calls.GetByID(ctx, decline.CallID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.sendError(reply, "Call not found")
		} else {
			r.storageFailure(reply, "Failed to decline call", err)
		}
		return
	}

	declined, err := r.calls.MarkDeclined(ctx, call.ID)
	if err != nil {
		r.storageFailure(reply, "Failed to decline call", err)
		return
	}
	if !declined {
		r.sendError(reply, "Call is no longer pending")
		return
	}

	r.cancelRingTimer(call.ID)
	r.recordTerminal(call.CallType, constants.CallStatusDeclined)

	reason := decline.Reason
	if reason == "" {
		reason = "declined"
	}
	r.router.Send(call.CallerID, CallDeclinedFrame{
		Type:   TypeCallDeclined,
		CallID: call.ID,
		UserID: senderID,
		Reason: reason,
	})

	r.log.Info("call declined",
		zap.Int64("call_id", call.ID),
		zap.Int64("decliner_id", senderID))
}

// handleICECandidate is a pure relay: no call record is touched and a
// missing recipient is silently absorbed.
func (r *Relay) handleICECandidate(senderID int64, candidate *CallICECandidate) {
	r.router.Send(candidate.TargetID, ICECandidateFrame{
		Type:      TypeCallICECandidate,
		UserID:    senderID,
		Candidate: candidate.Candidate,
	})
}

func (r *Relay) handleEnd(ctx context.Context, senderID int64, end *CallEnd, reply ReplyFunc) {
	call, err := r.calls.GetByID(ctx, end.CallID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.sendError(reply, "Call not found")
		} else {
			r.storageFailure(reply, "Failed to end call", err)
		}
		return
	}

	// Only a participant may end the call
	var members []*domain.User
	if call.IsGroup() {
		members, err = r.rooms.GetMembers(ctx, *call.RoomID)
		if err != nil {
			r.storageFailure(reply, "Failed to end call", err)
			return
		}
		isMember := false
		for _, m := range members {
			if m.ID == senderID {
				isMember = true
				break
			}
		}
		if !isMember {
			r.sendError(reply, "Not a participant in this call")
			return
		}
	} else if senderID != call.CallerID &&
		(call.ReceiverID == nil || *call.ReceiverID != senderID) {
		r.sendError(reply, "Not a participant in this call")
		return
	}

	endedAt := time.Now()
	duration := 0
	if call.AnsweredAt != nil {
		duration = int(endedAt.Sub(*call.AnsweredAt).Seconds())
		if duration < 0 {
			duration = 0
		}
	}

	ended, err := r.calls.MarkEnded(ctx, call.ID, endedAt, duration)
	if err != nil {
		r.storageFailure(reply, "Failed to end call", err)
		return
	}
	if !ended {
		r.sendError(reply, "Call has already ended")
		return
	}

	r.cancelRingTimer(call.ID)
	r.recordTerminal(call.CallType, constants.CallStatusEnded)
	if r.metrics != nil {
		r.metrics.RecordCallDuration(call.CallType, time.Duration(duration)*time.Second)
	}

	reason := end.Reason
	if reason == "" {
		reason = "ended"
	}
	endedFrame := CallEndedFrame{Type: TypeCallEnded, CallID: call.ID, Reason: reason}

	if call.IsGroup() {
		for _, m := range members {
			if m.ID == senderID {
				continue
			}
			if r.metrics != nil {
				r.metrics.RecordFanoutTarget()
			}
			r.router.Send(m.ID, endedFrame)
		}
	} else {
		otherParty := call.CallerID
		if senderID == call.CallerID && call.ReceiverID != nil {
			otherParty = *call.ReceiverID
		}
		r.router.Send(otherParty, endedFrame)
	}

	reply(CallEndSuccessFrame{Type: TypeCallEndSuccess, CallID: call.ID})

	r.log.Info("call ended",
		zap.Int64("call_id", call.ID),
		zap.Int64("ender_id", senderID),
		zap.Int("duration_seconds", duration),
		zap.String("reason", reason))
}

// scheduleRingTimeout arms the pending-to-missed transition for an
// unanswered call. Recipients are captured at offer time.
func (r *Relay) scheduleRingTimeout(call *domain.Call, recipients []int64) {
	callID := call.ID
	callType := call.CallType
	callerID := call.CallerID

	r.mu.Lock()
	r.timers[callID] = time.AfterFunc(r.cfg.RingTimeout, func() {
		r.expireRing(callID, callType, callerID, recipients)
	})
	r.mu.Unlock()
}

func (r *Relay) expireRing(callID int64, callType string, callerID int64, recipients []int64) {
	r.mu.Lock()
	delete(r.timers, callID)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	missed, err := r.calls.MarkMissed(ctx, callID)
	if err != nil {
		r.log.Error("failed to expire unanswered call",
			zap.Int64("call_id", callID),
			zap.Error(err))
		sentry.CaptureException(err)
		return
	}
	if !missed {
		// Answered, declined, or ended in the meantime
		return
	}

	r.recordTerminal(callType, constants.CallStatusMissed)

	frame := CallEndedFrame{Type: TypeCallEnded, CallID: callID, Reason: "unanswered"}
	r.router.Send(callerID, frame)
	for _, recipientID := range recipients {
		r.router.Send(recipientID, frame)
	}

	r.log.Info("call missed", zap.Int64("call_id", callID))
}

func (r *Relay) cancelRingTimer(callID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[callID]; ok {
		t.Stop()
		delete(r.timers, callID)
	}
}

func (r *Relay) recordTerminal(callType, status string) {
	if r.metrics == nil {
		return
	}
	m := r.metrics
	m.RecordCall(callType, status)
	m.DecrementActiveCalls()
}

func (r *Relay) sendError(reply ReplyFunc, message string) {
	if r.metrics != nil {
		r.metrics.RecordSignalError(message)
	}
	reply(NewErrorFrame(message))
}

// storageFailure logs and reports a persistence error, then degrades it to a
// generic error frame without leaking internals to the client.
func (r *Relay) storageFailure(reply ReplyFunc, message string, err error) {
	r.log.Error(message, zap.Error(err))
	sentry.CaptureException(err)
	r.sendError(reply, message)
}
