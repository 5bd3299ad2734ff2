package pdu

import (
	"encoding/binary"
	"fmt"
)

// Header is the 16 byte envelope every PDU carries: four big-endian
// uint32 fields.
type Header struct {
	Length    uint32
	CommandID CommandID
	Status    Status
	Sequence  uint32
}

// decodeHeader parses the first 16 bytes of a frame. Callers are
// expected to have already checked len(buf) >= 16.
func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < 16 {
		return Header{}, ErrShortFrame
	}
	h := Header{
		Length:    binary.BigEndian.Uint32(buf[0:4]),
		CommandID: CommandID(binary.BigEndian.Uint32(buf[4:8])),
		Status:    Status(binary.BigEndian.Uint32(buf[8:12])),
		Sequence:  binary.BigEndian.Uint32(buf[12:16]),
	}
	if h.Length < 16 {
		return h, ErrShortFrame
	}
	if h.Length > MaxPDUSize {
		return h, ErrTooLarge
	}
	return h, nil
}

func encodeHeader(buf []byte, length uint32, id CommandID, status Status, seq uint32) {
	if len(buf) < 16 {
		panic(fmt.Sprintf("smpp/pdu: header buffer too small: %d", len(buf)))
	}
	binary.BigEndian.PutUint32(buf[0:4], length)
	binary.BigEndian.PutUint32(buf[4:8], uint32(id))
	binary.BigEndian.PutUint32(buf[8:12], uint32(status))
	binary.BigEndian.PutUint32(buf[12:16], seq)
}
