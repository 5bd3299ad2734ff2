package pdu_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajankovic-labs/smsc/internal/pdu"
)

func hexStr(s string) string {
	return strings.ReplaceAll(s, "|", "")
}

var marshalCases = []struct {
	desc   string
	hex    string
	pdu    pdu.PDU
}{
	{
		"bind_transceiver",
		"74657374|00|746573743270617300|00|34|01|01|00",
		&pdu.BindTRx{
			SystemID:         "test",
			Password:         "test2pas",
			InterfaceVersion: 0x34,
			AddrTon:          1,
			AddrNpi:          1,
		},
	},
	{
		"bind_transceiver_resp with sc_interface_version",
		"7465737400|0210|0001|34",
		&pdu.BindTRxResp{
			SystemID: "test",
			Options:  pdu.NewOptions().SetScInterfaceVersion(0x34),
		},
	},
	{
		"submit_sm minimal",
		"00|00|00|7465737400|00|00|746573743200|00|00|00|00|00|00|00|00|00|03|6d7367",
		&pdu.SubmitSm{
			SourceAddr:      "test",
			DestinationAddr: "test2",
			ShortMessage:    "msg",
		},
	},
	{
		"unbind empty body",
		"",
		&pdu.Unbind{},
	},
	{
		"enquire_link empty body",
		"",
		&pdu.EnquireLink{},
	},
}

func TestMarshalBinary(t *testing.T) {
	for _, tc := range marshalCases {
		t.Run(tc.desc, func(t *testing.T) {
			b, err := tc.pdu.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, hexStr(tc.hex), hex.EncodeToString(b))
		})
	}
}

func TestUnmarshalBinary(t *testing.T) {
	for _, tc := range marshalCases {
		t.Run(tc.desc, func(t *testing.T) {
			body, err := hex.DecodeString(hexStr(tc.hex))
			require.NoError(t, err)
			got := pdu.NewPDU(tc.pdu.CommandID())
			require.NoError(t, got.UnmarshalBinary(body))
			assert.Equal(t, tc.pdu, got)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range marshalCases {
		t.Run(tc.desc, func(t *testing.T) {
			frame, err := pdu.Encode(tc.pdu, pdu.StatusOK, 7)
			require.NoError(t, err)

			h, got, err := pdu.Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, tc.pdu.CommandID(), h.CommandID)
			assert.Equal(t, uint32(7), h.Sequence)
			assert.Equal(t, uint32(len(frame)), h.Length)
			assert.Equal(t, tc.pdu, got)
		})
	}
}

func TestDecodeShortFrame(t *testing.T) {
	_, _, err := pdu.Decode([]byte{0, 0, 0, 1})
	assert.ErrorIs(t, err, pdu.ErrShortFrame)
}

func TestDecodeUnknownCommand(t *testing.T) {
	frame := make([]byte, 16)
	frame[3] = 16
	frame[7] = 0x7F // command_id = 0x7F, not a known variant
	_, _, err := pdu.Decode(frame)
	assert.ErrorIs(t, err, pdu.ErrUnknownCommand)
}

func TestDecodeLengthMismatch(t *testing.T) {
	frame, err := pdu.Encode(&pdu.EnquireLink{}, pdu.StatusOK, 1)
	require.NoError(t, err)
	frame = append(frame, 0xFF) // trailing byte not reflected in command_length
	_, _, err = pdu.Decode(frame)
	assert.ErrorIs(t, err, pdu.ErrShortFrame)
}

func TestPeekLength(t *testing.T) {
	frame, err := pdu.Encode(&pdu.EnquireLink{}, pdu.StatusOK, 1)
	require.NoError(t, err)
	l, ok := pdu.PeekLength(frame)
	require.True(t, ok)
	assert.Equal(t, uint32(len(frame)), l)

	_, ok = pdu.PeekLength(frame[:2])
	assert.False(t, ok)
}

func TestBindMalformedSystemID(t *testing.T) {
	// no NUL terminator anywhere in the body
	body := make([]byte, 20)
	for i := range body {
		body[i] = 'a'
	}
	var b pdu.BindTx
	err := b.UnmarshalBinary(body)
	require.Error(t, err)
	assert.ErrorIs(t, err, pdu.ErrMalformedString)
}

func TestSubmitSmShortMessageOverrunsBody(t *testing.T) {
	// sm_length claims 5 bytes but only 2 follow
	raw, _ := hex.DecodeString(hexStr("00|00|00|7465737400|00|00|746573743200|00|00|00|00|00|00|00|00|00|05|6869"))
	var s pdu.SubmitSm
	err := s.UnmarshalBinary(raw)
	require.Error(t, err)
}
