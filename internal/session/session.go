// Package session implements the per-connection SMPP state machine: bind
// lifecycle, request/response correlation, keepalive, and the
// submit_sm/deliver_sm handshake.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ajankovic-labs/smsc/internal/pdu"
)

// ErrMsgQueueFull is the sentinel a SubmitHandler returns to signal that
// submit_sm was rejected only because the upstream queue is at capacity,
// so handleSubmit can respond ESME_RMSGQFUL instead of ESME_RSYSERR.
var ErrMsgQueueFull = errors.New("session: message queue is full")

// Error implements the error and Temporary interfaces for session-layer
// failures that aren't a peer-reported SMPP status.
type Error struct {
	Msg  string
	Temp bool
}

func (e Error) Error() string { return e.Msg }

// Temporary reports whether retrying the operation might succeed.
func (e Error) Temporary() bool { return e.Temp }

// State is one of the six states in the session lifecycle.
type State int

const (
	// StateOpen is the initial state: connected, not yet bound.
	StateOpen State = iota
	// StateBoundTx is bound as transmitter: may submit_sm.
	StateBoundTx
	// StateBoundRx is bound as receiver: may be delivered to.
	StateBoundRx
	// StateBoundTRx is bound as transceiver: both directions.
	StateBoundTRx
	// StateUnbound has completed the unbind handshake and is tearing down.
	StateUnbound
	// StateClosed is terminal; the connection is gone.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateBoundTx:
		return "BOUND_TX"
	case StateBoundRx:
		return "BOUND_RX"
	case StateBoundTRx:
		return "BOUND_TRX"
	case StateUnbound:
		return "UNBOUND"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CredentialCheck authenticates a bind attempt. A nil CredentialCheck
// passed via Conf means every bind succeeds.
type CredentialCheck func(systemID, password string) bool

// SubmitHandler is invoked for every accepted submit_sm. It returns the
// message id to echo in submit_sm_resp, or an error to cause an
// ESME_RSYSERR reply.
type SubmitHandler func(sess *Session, p *pdu.SubmitSm) (messageID string, err error)

// Metrics is the subset of internal/metrics used by a session. Declared
// here so this package doesn't import metrics' Prometheus registration
// code directly.
type Metrics interface {
	PDUReceived(command string)
	PDUSent(command string)
	SessionBound(kind string)
}

// Conf configures a Session. Zero-value fields fall back to package
// defaults.
type Conf struct {
	SystemID           string
	ID                 string
	Logger             *logrus.Logger
	CredentialCheck    CredentialCheck
	OnSubmit           SubmitHandler
	Metrics            Metrics
	EnquireLinkTimeout time.Duration
	ResponseTimeout    time.Duration
}

func (c *Conf) setDefaults() {
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.EnquireLinkTimeout == 0 {
		c.EnquireLinkTimeout = 30 * time.Second
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 10 * time.Second
	}
	if c.ID == "" {
		c.ID = genSessionID()
	}
}

type pending struct {
	resp pdu.PDU
	err  error
}

// Session coordinates one bound peer's protocol state. It is owned
// exclusively by its own read goroutine plus whichever goroutine calls
// Send/DeliverMessage; all mutable state is guarded by mu.
type Session struct {
	conf   Conf
	conn   io.ReadWriteCloser
	buf    []byte
	wg     sync.WaitGroup
	mu     sync.Mutex
	seq    uint32
	sent   map[uint32]chan pending
	state  State
	sysID  string
	closed chan struct{}

	closedFrom State // bind state at the moment Close first ran

	lastActivity int64 // unix nanos, atomic
}

func genSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// New wraps conn in a Session and starts its read loop and keepalive
// task. The Session takes ownership of conn and closes it on teardown.
func New(conn io.ReadWriteCloser, conf Conf) *Session {
	conf.setDefaults()
	sess := &Session{
		conf:   conf,
		conn:   conn,
		sent:   make(map[uint32]chan pending),
		closed: make(chan struct{}),
	}
	sess.touch()
	sess.wg.Add(2)
	go sess.readLoop()
	go sess.keepalive()
	return sess
}

// ID uniquely identifies the session for the lifetime of the process.
func (s *Session) ID() string { return s.conf.ID }

// SystemID is the system_id presented at bind time, or "-" before bind.
func (s *Session) SystemID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sysID == "" {
		return "-"
	}
	return s.sysID
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClosedFrom reports the bind state the session held the moment Close
// first tore it down, so callers that only observe the session after
// NotifyClosed fires can still tell a bound transmitter from a receiver
// or transceiver instead of always seeing StateClosed.
func (s *Session) ClosedFrom() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closedFrom
}

// CanReceive reports whether the session is eligible for deliver_message:
// bound as a receiver or transceiver.
func (s *Session) CanReceive() bool {
	st := s.State()
	return st == StateBoundRx || st == StateBoundTRx
}

// RemoteAddr returns the peer's address, or "" if the transport doesn't
// expose one.
func (s *Session) RemoteAddr() string {
	if ra, ok := s.conn.(interface{ RemoteAddr() net.Addr }); ok {
		return ra.RemoteAddr().String()
	}
	return ""
}

func (s *Session) String() string {
	return fmt.Sprintf("(%s:%s:%s)", s.SystemID(), s.ID(), s.State())
}

func (s *Session) touch() {
	atomic.StoreInt64(&s.lastActivity, time.Now().UnixNano())
}

func (s *Session) idleFor() time.Duration {
	last := atomic.LoadInt64(&s.lastActivity)
	return time.Since(time.Unix(0, last))
}

// NotifyClosed returns a channel closed once the session reaches
// StateClosed.
func (s *Session) NotifyClosed() <-chan struct{} { return s.closed }

// readLoop grows buf until a full frame is available, hands it to the
// codec, and repeats.
func (s *Session) readLoop() {
	defer s.wg.Done()
	chunk := make([]byte, 4096)
	for {
		for len(s.buf) < 4 {
			n, err := s.conn.Read(chunk)
			if n > 0 {
				s.buf = append(s.buf, chunk[:n]...)
				s.touch()
			}
			if err != nil {
				s.teardown(err)
				return
			}
			if n == 0 {
				s.teardown(io.EOF)
				return
			}
		}
		length, _ := pdu.PeekLength(s.buf)
		if length > pdu.MaxPDUSize {
			s.conf.Logger.WithField("session", s.String()).Error("frame exceeds max pdu size, closing")
			s.teardown(pdu.ErrTooLarge)
			return
		}
		if length < 16 {
			s.conf.Logger.WithField("session", s.String()).Error("frame below header size, closing")
			s.teardown(pdu.ErrShortFrame)
			return
		}
		for uint32(len(s.buf)) < length {
			n, err := s.conn.Read(chunk)
			if n > 0 {
				s.buf = append(s.buf, chunk[:n]...)
				s.touch()
			}
			if err != nil {
				s.teardown(err)
				return
			}
			if n == 0 {
				s.teardown(io.EOF)
				return
			}
		}
		frame := s.buf[:length]
		s.buf = s.buf[length:]
		s.handleFrame(frame)
	}
}

func (s *Session) handleFrame(frame []byte) {
	h, p, err := pdu.Decode(frame)
	if err != nil {
		s.handleDecodeError(h, err)
		return
	}
	if s.conf.Metrics != nil {
		s.conf.Metrics.PDUReceived(h.CommandID.String())
	}
	if pdu.IsRequest(h.CommandID) {
		s.wg.Add(1)
		go s.handleRequest(h, p)
		return
	}
	s.mu.Lock()
	ch, ok := s.sent[h.Sequence]
	if ok {
		delete(s.sent, h.Sequence)
	}
	s.mu.Unlock()
	if !ok {
		s.conf.Logger.WithFields(logrus.Fields{
			"session": s.String(),
			"command": h.CommandID.String(),
		}).Warn("unexpected response, no pending request for sequence")
		return
	}
	ch <- pending{resp: p, err: statusToError(h.Status)}
}

// handleDecodeError applies the decode-failure policy: a known sequence
// number (i.e. the header parsed) gets a generic_nack and the session
// continues; an unparseable header closes the session outright.
func (s *Session) handleDecodeError(h pdu.Header, err error) {
	switch {
	case errors.Is(err, pdu.ErrUnknownCommand), errors.Is(err, pdu.ErrMalformedBody):
		nack := &pdu.GenericNack{}
		if _, encErr := s.encodeAndWrite(nack, pdu.StatusInvCmdID, h.Sequence); encErr != nil {
			s.conf.Logger.WithField("session", s.String()).WithError(encErr).Error("writing generic_nack")
			s.teardown(encErr)
		}
	default:
		s.teardown(err)
	}
}

func (s *Session) handleRequest(h pdu.Header, req pdu.PDU) {
	defer s.wg.Done()
	switch p := req.(type) {
	case *pdu.BindTx:
		s.handleBind(h.Sequence, p.SystemID, p.Password, StateBoundTx, p.Response(s.conf.SystemID))
	case *pdu.BindRx:
		s.handleBind(h.Sequence, p.SystemID, p.Password, StateBoundRx, p.Response(s.conf.SystemID))
	case *pdu.BindTRx:
		s.handleBind(h.Sequence, p.SystemID, p.Password, StateBoundTRx, p.Response(s.conf.SystemID))
	case *pdu.EnquireLink:
		s.respond(h.Sequence, p.Response(), pdu.StatusOK)
	case *pdu.Unbind:
		s.handleUnbind(h.Sequence, p)
	case *pdu.SubmitSm:
		s.handleSubmit(h.Sequence, p)
	case *pdu.GenericNack:
		// peer rejected something we sent as a response; nothing to do.
	default:
		s.respond(h.Sequence, &pdu.GenericNack{}, pdu.StatusInvCmdID)
	}
}

func (s *Session) handleBind(seq uint32, systemID, password string, target State, resp pdu.PDU) {
	s.mu.Lock()
	cur := s.state
	s.mu.Unlock()
	if cur != StateOpen {
		s.respond(seq, resp, pdu.StatusAlyBnd)
		return
	}
	if s.conf.CredentialCheck != nil && !s.conf.CredentialCheck(systemID, password) {
		s.respond(seq, resp, pdu.StatusBindFail)
		return
	}
	s.mu.Lock()
	s.sysID = systemID
	s.state = target
	s.mu.Unlock()
	if s.conf.Metrics != nil {
		s.conf.Metrics.SessionBound(target.String())
	}
	s.respond(seq, resp, pdu.StatusOK)
}

func (s *Session) handleUnbind(seq uint32, req *pdu.Unbind) {
	s.mu.Lock()
	s.state = StateUnbound
	s.mu.Unlock()
	s.respond(seq, req.Response(), pdu.StatusOK)
	go s.Close()
}

func (s *Session) handleSubmit(seq uint32, req *pdu.SubmitSm) {
	st := s.State()
	if st != StateBoundTx && st != StateBoundTRx {
		s.respond(seq, req.Response(""), pdu.StatusInvBnd)
		return
	}
	if s.conf.OnSubmit == nil {
		s.respond(seq, req.Response(""), pdu.StatusSysErr)
		return
	}
	msgID, err := s.conf.OnSubmit(s, req)
	if errors.Is(err, ErrMsgQueueFull) {
		s.conf.Logger.WithField("session", s.String()).Warn("submit rejected, message queue full")
		s.respond(seq, req.Response(""), pdu.StatusMsgQFul)
		return
	}
	if err != nil {
		s.conf.Logger.WithField("session", s.String()).WithError(err).Error("submit handler failed")
		s.respond(seq, req.Response(""), pdu.StatusSysErr)
		return
	}
	s.respond(seq, req.Response(msgID), pdu.StatusOK)
}

func (s *Session) respond(seq uint32, resp pdu.PDU, status pdu.Status) {
	if _, err := s.encodeAndWrite(resp, status, seq); err != nil {
		s.conf.Logger.WithField("session", s.String()).WithError(err).Error("writing response")
		s.teardown(err)
		return
	}
	if s.conf.Metrics != nil {
		s.conf.Metrics.PDUSent(resp.CommandID().String())
	}
}

func (s *Session) encodeAndWrite(p pdu.PDU, status pdu.Status, seq uint32) (int, error) {
	frame, err := pdu.Encode(p, status, seq)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(frame)
}

// nextSeq returns the next outbound sequence number. Must be called
// without holding mu, since it locks internally.
func (s *Session) nextSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Send writes req with a freshly assigned sequence number and blocks
// until the peer's response arrives or ctx is done.
func (s *Session) Send(ctx context.Context, req pdu.PDU) (pdu.PDU, error) {
	seq := s.nextSeq()
	ch := make(chan pending, 1)
	s.mu.Lock()
	s.sent[seq] = ch
	s.mu.Unlock()

	frame, err := pdu.Encode(req, pdu.StatusOK, seq)
	if err != nil {
		s.mu.Lock()
		delete(s.sent, seq)
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Lock()
	_, err = s.conn.Write(frame)
	s.mu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.sent, seq)
		s.mu.Unlock()
		return nil, err
	}
	if s.conf.Metrics != nil {
		s.conf.Metrics.PDUSent(req.CommandID().String())
	}

	select {
	case p, ok := <-ch:
		if !ok {
			return nil, Error{Msg: "session closed before receiving response", Temp: false}
		}
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeliverMessage builds and sends a deliver_sm to this session, waiting
// up to the configured response timeout for deliver_sm_resp. It returns
// true iff the peer answered ESME_ROK.
func (s *Session) DeliverMessage(source, destination string, sourceTon pdu.TON, sourceNpi pdu.NPI, destTon pdu.TON, destNpi pdu.NPI, payload string, dataCoding pdu.DataCoding, esmClass byte) bool {
	if !s.CanReceive() {
		return false
	}
	req := &pdu.DeliverSm{
		SourceAddrTon:   sourceTon,
		SourceAddrNpi:   sourceNpi,
		SourceAddr:      source,
		DestAddrTon:     destTon,
		DestAddrNpi:     destNpi,
		DestinationAddr: destination,
		EsmClass:        esmClass,
		DataCoding:      dataCoding,
		ShortMessage:    payload,
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.ResponseTimeout)
	defer cancel()
	resp, err := s.Send(ctx, req)
	if err != nil {
		return false
	}
	_, ok := resp.(*pdu.DeliverSmResp)
	return ok
}

// keepalive issues an enquire_link after EnquireLinkTimeout of silence on
// a bound session and terminates the session if it goes unanswered.
func (s *Session) keepalive() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.conf.EnquireLinkTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			st := s.State()
			if st == StateClosed || st == StateUnbound {
				return
			}
			if st == StateOpen {
				continue
			}
			if s.idleFor() < s.conf.EnquireLinkTimeout {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.conf.ResponseTimeout)
			_, err := s.Send(ctx, &pdu.EnquireLink{})
			cancel()
			if err != nil {
				s.conf.Logger.WithField("session", s.String()).Warn("keepalive timed out, closing session")
				s.teardown(err)
				return
			}
		}
	}
}

func (s *Session) teardown(err error) {
	if err != nil && err != io.EOF {
		s.conf.Logger.WithField("session", s.String()).WithError(err).Info("session terminating")
	}
	go s.Close()
}

// Close tears the session down: cancels pending promises, closes the
// connection, and marks the session CLOSED. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.closedFrom = s.state
	s.state = StateClosed
	for seq, ch := range s.sent {
		delete(s.sent, seq)
		close(ch)
	}
	s.mu.Unlock()
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
