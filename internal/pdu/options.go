package pdu

import (
	"encoding/binary"
	"fmt"
)

// Options holds the optional TLV parameters attached to a PDU. Only
// sc_interface_version (bind responses), receipted_message_id and
// message_state (deliver_sm) are interpreted by this codec; any other
// tag is kept opaque and round-trips unchanged.
type Options struct {
	fields map[TagID][]byte
}

// NewOptions creates an empty TLV set.
func NewOptions() *Options {
	return &Options{fields: make(map[TagID][]byte)}
}

// Set assigns a raw TLV value.
func (o *Options) Set(tag TagID, val []byte) *Options {
	o.fields[tag] = val
	return o
}

// SetSingle assigns a one byte TLV value.
func (o *Options) SetSingle(tag TagID, val int) *Options {
	o.fields[tag] = []byte{byte(val)}
	return o
}

// SetCString assigns a NUL-terminated string TLV value.
func (o *Options) SetCString(tag TagID, val string) *Options {
	o.fields[tag] = append([]byte(val), 0)
	return o
}

// Get returns the raw bytes for tag, if present.
func (o *Options) Get(tag TagID) ([]byte, bool) {
	val, ok := o.fields[tag]
	return val, ok
}

// GetSingle returns tag's value as a one byte integer.
func (o *Options) GetSingle(tag TagID) (int, bool) {
	val, ok := o.fields[tag]
	if !ok || len(val) == 0 {
		return 0, false
	}
	return int(val[0]), true
}

// GetCString returns tag's value with its trailing NUL stripped.
func (o *Options) GetCString(tag TagID) (string, bool) {
	b, ok := o.fields[tag]
	if !ok || len(b) == 0 {
		return "", false
	}
	return string(b[:len(b)-1]), true
}

// ScInterfaceVersion is a helper for the one TLV bind_*_resp carries.
func (o *Options) ScInterfaceVersion() int {
	val, _ := o.GetSingle(TagScInterfaceVersion)
	return val
}

// SetScInterfaceVersion sets sc_interface_version.
func (o *Options) SetScInterfaceVersion(val int) *Options {
	return o.SetSingle(TagScInterfaceVersion, val)
}

// ReceiptedMessageID is a helper for deliver_sm's optional receipt chain tag.
func (o *Options) ReceiptedMessageID() string {
	val, _ := o.GetCString(TagReceiptedMessageID)
	return val
}

// SetReceiptedMessageID sets receipted_message_id.
func (o *Options) SetReceiptedMessageID(val string) *Options {
	return o.SetCString(TagReceiptedMessageID, val)
}

// MessageState is a helper for deliver_sm's optional message_state tag.
func (o *Options) MessageState() int {
	val, _ := o.GetSingle(TagMessageState)
	return val
}

// SetMessageState sets message_state.
func (o *Options) SetMessageState(val int) *Options {
	return o.SetSingle(TagMessageState, val)
}

// MarshalBinary encodes every field as a tag/length/value triple. Field
// order is not significant on the wire.
func (o *Options) MarshalBinary() ([]byte, error) {
	var out []byte
	for tag, val := range o.fields {
		tlv := make([]byte, 4+len(val))
		binary.BigEndian.PutUint16(tlv[:2], uint16(tag))
		binary.BigEndian.PutUint16(tlv[2:4], uint16(len(val)))
		copy(tlv[4:], val)
		out = append(out, tlv...)
	}
	return out, nil
}

// UnmarshalBinary parses a sequence of TLVs, skipping (but preserving
// the bytes of) any tag this codec doesn't interpret.
func (o *Options) UnmarshalBinary(buf []byte) error {
	n := 0
	for n < len(buf) {
		if len(buf)-n < 4 {
			return fmt.Errorf("%w: truncated optional parameter header", ErrMalformedBody)
		}
		tag := TagID(binary.BigEndian.Uint16(buf[n : n+2]))
		l := int(binary.BigEndian.Uint16(buf[n+2 : n+4]))
		if n+4+l > len(buf) {
			return fmt.Errorf("%w: optional parameter %d length %d overruns body", ErrMalformedBody, tag, l)
		}
		val := make([]byte, l)
		copy(val, buf[n+4:n+4+l])
		o.fields[tag] = val
		n += 4 + l
	}
	return nil
}
