package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajankovic-labs/smsc/internal/mock"
	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/session"
)

// TestReadLoopReassemblesFragmentedFrame drives the frame reader's
// growing-buffer logic directly: the bind_transceiver request arrives
// split across two separate Read syscalls, well short of a full frame on
// the first one, and the session must still buffer, decode, and respond
// correctly once the frame completes.
func TestReadLoopReassemblesFragmentedFrame(t *testing.T) {
	reqFrame, err := pdu.Encode(&pdu.BindTRx{SystemID: "client", Password: "secret"}, pdu.StatusOK, 1)
	require.NoError(t, err)
	require.Greater(t, len(reqFrame), 8, "fixture frame too short to fragment meaningfully")

	respFrame, err := pdu.Encode((&pdu.BindTRx{}).Response("SMSC"), pdu.StatusOK, 1)
	require.NoError(t, err)

	conn := mock.NewConn().
		ByteRead(reqFrame[:6]).NoResp().
		ByteRead(reqFrame[6:]).ByteWrite(respFrame).
		Closed()

	sess := session.New(conn, session.Conf{SystemID: "SMSC"})

	require.Eventually(t, func() bool {
		return sess.State() == session.StateBoundTRx
	}, time.Second, time.Millisecond)

	require.NoError(t, sess.Close())
	for _, e := range conn.Validate() {
		t.Error(e)
	}
}
