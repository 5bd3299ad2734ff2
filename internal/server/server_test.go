package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/queue"
	"github.com/ajankovic-labs/smsc/internal/server"
)

// testClient is a minimal SMPP peer used to drive a server under test
// without pulling in the session package's own framing internals.
type testClient struct {
	t    *testing.T
	conn net.Conn
	seq  uint32
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(p pdu.PDU) {
	c.seq++
	frame, err := pdu.Encode(p, pdu.StatusOK, c.seq)
	require.NoError(c.t, err)
	_, err = c.conn.Write(frame)
	require.NoError(c.t, err)
}

func (c *testClient) recv() (pdu.Header, pdu.PDU) {
	header := make([]byte, 4)
	_, err := readFull(c.conn, header)
	require.NoError(c.t, err)
	length, _ := pdu.PeekLength(header)
	frame := make([]byte, length)
	copy(frame, header)
	_, err = readFull(c.conn, frame[4:])
	require.NoError(c.t, err)
	h, p, err := pdu.Decode(frame)
	require.NoError(c.t, err)
	return h, p
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

func startServer(t *testing.T, conf server.Config) (*server.Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(ln.Addr().String(), conf, nil, nil)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return srv, ln.Addr().String()
}

func TestSubmitSmQueuesIncomingMessage(t *testing.T) {
	srv, addr := startServer(t, server.Config{SystemID: "SMSC"})
	client := dial(t, addr)
	client.send(&pdu.BindTx{SystemID: "esme", Password: "x"})
	client.recv()

	client.send(&pdu.SubmitSm{SourceAddr: "111", DestinationAddr: "222", ShortMessage: "hi"})
	h, resp := client.recv()
	assert.Equal(t, pdu.StatusOK, h.Status)
	sr := resp.(*pdu.SubmitSmResp)
	assert.NotEmpty(t, sr.MessageID)

	msg, ok := srv.Queues.GetIncoming(time.Second)
	require.True(t, ok)
	assert.Equal(t, "111", msg.Sender)
	assert.Equal(t, "222", msg.Recipient)
	assert.Equal(t, "hi", msg.Message)
}

func TestDispatcherDeliversToBoundReceiver(t *testing.T) {
	srv, addr := startServer(t, server.Config{SystemID: "SMSC"})
	client := dial(t, addr)
	client.send(&pdu.BindTRx{SystemID: "esme", Password: "x"})
	client.recv()

	srv.Enqueue(queue.SMSMessage{
		MessageID: "M1",
		Sender:    "111",
		Recipient: "222",
		Message:   "hello",
	})

	h, req := client.recv()
	assert.Equal(t, pdu.DeliverSmID, h.CommandID)
	ds := req.(*pdu.DeliverSm)
	assert.Equal(t, "hello", ds.ShortMessage)

	resp := ds.Response()
	frame, err := pdu.Encode(resp, pdu.StatusOK, h.Sequence)
	require.NoError(t, err)
	_, err = client.conn.Write(frame)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		evt, ok := srv.Bus.Next(10 * time.Millisecond)
		return ok && evt.Type == queue.EventDelivered && evt.MessageID == "M1"
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherFailsWithNoEligibleReceiver(t *testing.T) {
	srv, _ := startServer(t, server.Config{
		SystemID:     "SMSC",
		MaxDeliveryRetries: 1,
		RetryBackoff: 10 * time.Millisecond,
	})

	srv.Enqueue(queue.SMSMessage{MessageID: "M2", Sender: "111", Recipient: "222", Message: "hello"})

	require.Eventually(t, func() bool {
		evt, ok := srv.Bus.Next(10 * time.Millisecond)
		return ok && evt.Type == queue.EventFailed && evt.MessageID == "M2"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, srv.Queues.OutgoingLen())
}

func TestDeliveryReceiptRoundTrip(t *testing.T) {
	srv, addr := startServer(t, server.Config{SystemID: "SMSC"})
	client := dial(t, addr)
	client.send(&pdu.BindTRx{SystemID: "esme", Password: "x"})
	client.recv()

	client.send(&pdu.SubmitSm{
		SourceAddr:         "111",
		DestinationAddr:    "222",
		ShortMessage:       "hi",
		RegisteredDelivery: pdu.RegisteredDeliveryReceipt,
	})
	h, resp := client.recv()
	require.Equal(t, pdu.StatusOK, h.Status)
	submitted := resp.(*pdu.SubmitSmResp).MessageID
	require.NotEmpty(t, submitted)

	incoming, ok := srv.Queues.GetIncoming(time.Second)
	require.True(t, ok)
	require.Equal(t, submitted, incoming.MessageID)
	require.True(t, incoming.RequestReceipt)
	require.NotEmpty(t, incoming.OriginSessionID)

	// An upstream collaborator re-submits the same message for mobile
	// termination, carrying forward the receipt-tracking fields captured
	// off the incoming queue.
	srv.Enqueue(incoming)

	h, req := client.recv()
	require.Equal(t, pdu.DeliverSmID, h.CommandID)
	mt := req.(*pdu.DeliverSm)
	assert.Equal(t, "hi", mt.ShortMessage)

	mtResp := mt.Response()
	frame, err := pdu.Encode(mtResp, pdu.StatusOK, h.Sequence)
	require.NoError(t, err)
	_, err = client.conn.Write(frame)
	require.NoError(t, err)

	h, req = client.recv()
	require.Equal(t, pdu.DeliverSmID, h.CommandID)
	dlr := req.(*pdu.DeliverSm)
	assert.Equal(t, byte(pdu.EsmClassDeliveryRcpt), dlr.EsmClass)

	receipt, err := pdu.ParseDeliveryReceipt(dlr.ShortMessage)
	require.NoError(t, err)
	assert.Equal(t, submitted, receipt.MessageID)
	assert.Equal(t, pdu.DelStatDelivered, receipt.Stat)
	assert.Equal(t, "001", receipt.Delivered)

	dlrResp := dlr.Response()
	frame, err = pdu.Encode(dlrResp, pdu.StatusOK, h.Sequence)
	require.NoError(t, err)
	_, err = client.conn.Write(frame)
	require.NoError(t, err)
}

func TestUnbindClosesAllSessions(t *testing.T) {
	srv, addr := startServer(t, server.Config{SystemID: "SMSC"})
	client := dial(t, addr)
	client.send(&pdu.BindTx{SystemID: "esme", Password: "x"})
	client.recv()

	client.send(&pdu.Unbind{})
	h, _ := client.recv()
	assert.Equal(t, pdu.UnbindRespID, h.CommandID)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, srv.Unbind(ctx))
}
