package pdu

import (
	"encoding"
	"encoding/binary"
	"fmt"
)

// PDU is the interface every variant implements. CommandID is the
// tagged-union discriminant; MarshalBinary/UnmarshalBinary encode and
// decode the body only — the 16 byte header is handled by Encode/Decode.
type PDU interface {
	CommandID() CommandID
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// NewPDU constructs a zero-value PDU for id, or nil if id is not one of
// the fifteen variants this server implements.
func NewPDU(id CommandID) PDU {
	switch id {
	case GenericNackID:
		return &GenericNack{}
	case BindReceiverID:
		return &BindRx{}
	case BindReceiverRespID:
		return &BindRxResp{}
	case BindTransmitterID:
		return &BindTx{}
	case BindTransmitterRespID:
		return &BindTxResp{}
	case BindTransceiverID:
		return &BindTRx{}
	case BindTransceiverRespID:
		return &BindTRxResp{}
	case EnquireLinkID:
		return &EnquireLink{}
	case EnquireLinkRespID:
		return &EnquireLinkResp{}
	case SubmitSmID:
		return &SubmitSm{}
	case SubmitSmRespID:
		return &SubmitSmResp{}
	case DeliverSmID:
		return &DeliverSm{}
	case DeliverSmRespID:
		return &DeliverSmResp{}
	case UnbindID:
		return &Unbind{}
	case UnbindRespID:
		return &UnbindResp{}
	}
	return nil
}

// PeekLength returns the big-endian command_length from the first four
// bytes of buf, or false if fewer than four bytes are available.
func PeekLength(buf []byte) (uint32, bool) {
	if len(buf) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[:4]), true
}

// Encode serializes p with a freshly computed 16 byte header prepended.
// command_length is always 16+len(body).
func Encode(p PDU, status Status, seq uint32) ([]byte, error) {
	body, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	total := 16 + len(body)
	buf := make([]byte, total)
	encodeHeader(buf, uint32(total), p.CommandID(), status, seq)
	copy(buf[16:], body)
	return buf, nil
}

// Decode parses a complete frame of exactly Header.Length bytes.
// frame[:16] is the header, frame[16:] the body.
func Decode(frame []byte) (Header, PDU, error) {
	h, err := decodeHeader(frame)
	if err != nil {
		return h, nil, err
	}
	if uint32(len(frame)) != h.Length {
		return h, nil, fmt.Errorf("%w: frame length %d does not match command_length %d", ErrShortFrame, len(frame), h.Length)
	}
	p := NewPDU(h.CommandID)
	if p == nil {
		return h, nil, ErrUnknownCommand
	}
	body := frame[16:]
	if len(body) == 0 {
		return h, p, nil
	}
	if err := p.UnmarshalBinary(body); err != nil {
		return h, p, fmt.Errorf("%w: %s", ErrMalformedBody, err)
	}
	return h, p, nil
}
