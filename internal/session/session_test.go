package session_test

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/session"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// fakePeer sends a request over conn and reads back exactly one response
// frame, decoding both ends with the pdu codec.
type fakePeer struct {
	t    *testing.T
	conn net.Conn
	seq  uint32
}

func (p *fakePeer) send(req pdu.PDU) {
	p.seq++
	frame, err := pdu.Encode(req, pdu.StatusOK, p.seq)
	require.NoError(p.t, err)
	_, err = p.conn.Write(frame)
	require.NoError(p.t, err)
}

func (p *fakePeer) recv() (pdu.Header, pdu.PDU) {
	header := make([]byte, 4)
	_, err := readFull(p.conn, header)
	require.NoError(p.t, err)
	length, _ := pdu.PeekLength(header)
	frame := make([]byte, length)
	copy(frame, header)
	_, err = readFull(p.conn, frame[4:])
	require.NoError(p.t, err)
	h, pp, err := pdu.Decode(frame)
	require.NoError(p.t, err)
	return h, pp
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func newPair(t *testing.T, conf session.Conf) (*session.Session, *fakePeer) {
	server, client := net.Pipe()
	if conf.Logger == nil {
		conf.Logger = testLogger()
	}
	sess := session.New(server, conf)
	t.Cleanup(func() { sess.Close() })
	return sess, &fakePeer{t: t, conn: client}
}

func TestBindTransceiverSuccess(t *testing.T) {
	sess, peer := newPair(t, session.Conf{SystemID: "SMSC"})
	peer.send(&pdu.BindTRx{SystemID: "client", Password: "secret"})
	h, resp := peer.recv()
	assert.Equal(t, pdu.BindTransceiverRespID, h.CommandID)
	assert.Equal(t, pdu.StatusOK, h.Status)
	btrx, ok := resp.(*pdu.BindTRxResp)
	require.True(t, ok)
	assert.Equal(t, "SMSC", btrx.SystemID)

	require.Eventually(t, func() bool {
		return sess.State() == session.StateBoundTRx
	}, time.Second, time.Millisecond)
	assert.Equal(t, "client", sess.SystemID())
}

func TestBindFailsCredentialCheck(t *testing.T) {
	sess, peer := newPair(t, session.Conf{
		CredentialCheck: func(systemID, password string) bool { return false },
	})
	peer.send(&pdu.BindTx{SystemID: "client", Password: "wrong"})
	h, _ := peer.recv()
	assert.Equal(t, pdu.StatusBindFail, h.Status)
	assert.Equal(t, session.StateOpen, sess.State())
}

func TestRebindAlreadyBound(t *testing.T) {
	sess, peer := newPair(t, session.Conf{})
	peer.send(&pdu.BindTRx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTRx }, time.Second, time.Millisecond)

	peer.send(&pdu.BindTRx{SystemID: "client", Password: "x"})
	h, _ := peer.recv()
	assert.Equal(t, pdu.StatusAlyBnd, h.Status)
}

func TestSubmitSmRejectedBeforeBind(t *testing.T) {
	_, peer := newPair(t, session.Conf{})
	peer.send(&pdu.SubmitSm{SourceAddr: "a", DestinationAddr: "b", ShortMessage: "hi"})
	h, resp := peer.recv()
	assert.Equal(t, pdu.StatusInvBnd, h.Status)
	sr, ok := resp.(*pdu.SubmitSmResp)
	require.True(t, ok)
	assert.Empty(t, sr.MessageID)
}

func TestSubmitSmAcceptedWhenBoundTx(t *testing.T) {
	var captured *pdu.SubmitSm
	sess, peer := newPair(t, session.Conf{
		OnSubmit: func(s *session.Session, p *pdu.SubmitSm) (string, error) {
			captured = p
			return "MSG123", nil
		},
	})
	peer.send(&pdu.BindTx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTx }, time.Second, time.Millisecond)

	peer.send(&pdu.SubmitSm{SourceAddr: "alice", DestinationAddr: "bob", ShortMessage: "hi"})
	h, resp := peer.recv()
	assert.Equal(t, pdu.StatusOK, h.Status)
	sr := resp.(*pdu.SubmitSmResp)
	assert.Equal(t, "MSG123", sr.MessageID)
	require.NotNil(t, captured)
	assert.Equal(t, "alice", captured.SourceAddr)
}

func TestSubmitSmHandlerErrorYieldsSysErr(t *testing.T) {
	sess, peer := newPair(t, session.Conf{
		OnSubmit: func(s *session.Session, p *pdu.SubmitSm) (string, error) {
			return "", assertErr{}
		},
	})
	peer.send(&pdu.BindTx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTx }, time.Second, time.Millisecond)

	peer.send(&pdu.SubmitSm{SourceAddr: "a", DestinationAddr: "b", ShortMessage: "hi"})
	h, _ := peer.recv()
	assert.Equal(t, pdu.StatusSysErr, h.Status)
}

func TestSubmitSmQueueFullYieldsMsgQFul(t *testing.T) {
	sess, peer := newPair(t, session.Conf{
		OnSubmit: func(s *session.Session, p *pdu.SubmitSm) (string, error) {
			return "", session.ErrMsgQueueFull
		},
	})
	peer.send(&pdu.BindTx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTx }, time.Second, time.Millisecond)

	peer.send(&pdu.SubmitSm{SourceAddr: "a", DestinationAddr: "b", ShortMessage: "hi"})
	h, _ := peer.recv()
	assert.Equal(t, pdu.StatusMsgQFul, h.Status)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestUnbindClosesSession(t *testing.T) {
	sess, peer := newPair(t, session.Conf{})
	peer.send(&pdu.BindTRx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTRx }, time.Second, time.Millisecond)

	peer.send(&pdu.Unbind{})
	h, _ := peer.recv()
	assert.Equal(t, pdu.UnbindRespID, h.CommandID)

	select {
	case <-sess.NotifyClosed():
	case <-time.After(time.Second):
		t.Fatal("session did not close after unbind")
	}
}

func TestEnquireLinkAnsweredWithoutBind(t *testing.T) {
	_, peer := newPair(t, session.Conf{})
	peer.send(&pdu.EnquireLink{})
	h, _ := peer.recv()
	assert.Equal(t, pdu.EnquireLinkRespID, h.CommandID)
	assert.Equal(t, pdu.StatusOK, h.Status)
}

func TestDeliverMessageRequiresBoundRx(t *testing.T) {
	sess, peer := newPair(t, session.Conf{})
	peer.send(&pdu.BindTx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTx }, time.Second, time.Millisecond)

	ok := sess.DeliverMessage("src", "dst", 0, 0, 0, 0, "payload", pdu.DataCodingDefault, 0)
	assert.False(t, ok)
}

func TestDeliverMessageToTransceiver(t *testing.T) {
	sess, peer := newPair(t, session.Conf{})
	peer.send(&pdu.BindTRx{SystemID: "client", Password: "x"})
	peer.recv()
	require.Eventually(t, func() bool { return sess.State() == session.StateBoundTRx }, time.Second, time.Millisecond)

	done := make(chan bool, 1)
	go func() {
		done <- sess.DeliverMessage("src", "dst", 0, 0, 0, 0, "payload", pdu.DataCodingDefault, 0)
	}()

	h, req := peer.recv()
	assert.Equal(t, pdu.DeliverSmID, h.CommandID)
	ds := req.(*pdu.DeliverSm)
	assert.Equal(t, "payload", ds.ShortMessage)

	resp := ds.Response()
	frame, err := pdu.Encode(resp, pdu.StatusOK, h.Sequence)
	require.NoError(t, err)
	_, err = peer.conn.Write(frame)
	require.NoError(t, err)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("DeliverMessage did not return")
	}
}
