package pdu

//go:generate stringer -type=Status,CommandID,TON,NPI,DataCoding

const (
	// MaxPDUSize is the largest command_length this codec will accept on
	// decode, per SMPP 3.4's conventional 64KB PDU ceiling.
	MaxPDUSize = 65535
	// MaxShortMessageLen is the largest short_message payload this codec
	// will accept, per SMPP 3.4 §3.4.1. sm_length itself is still read as
	// a raw byte, so a peer claiming more than this is a MalformedBody.
	MaxShortMessageLen = 254
)

// Status represents the four byte command_status field.
type Status uint32

// SMPP 3.4 command status codes. Only a subset is ever produced by this
// server (see session package), the rest are kept so StatusError can
// describe any status a peer sends back on bind/submit/deliver.
const (
	StatusOK              Status = 0x00000000
	StatusInvMsgLen       Status = 0x00000001
	StatusInvCmdLen       Status = 0x00000002
	StatusInvCmdID        Status = 0x00000003
	StatusInvBnd          Status = 0x00000004
	StatusAlyBnd          Status = 0x00000005
	StatusInvPrtFlg       Status = 0x00000006
	StatusInvRegDlvFlg    Status = 0x00000007
	StatusSysErr          Status = 0x00000008
	StatusInvSrcAdr       Status = 0x0000000A
	StatusInvDstAdr       Status = 0x0000000B
	StatusInvMsgID        Status = 0x0000000C
	StatusBindFail        Status = 0x0000000D
	StatusInvPaswd        Status = 0x0000000E
	StatusInvSysID        Status = 0x0000000F
	StatusMsgQFul         Status = 0x00000014
	StatusInvSerTyp       Status = 0x00000015
	StatusInvEsmClass     Status = 0x00000043
	StatusThrottled       Status = 0x00000058
	StatusUnknownErr      Status = 0x000000FF
)

// CommandID is the four byte command_id field. Only the fifteen PDU
// variants this server implements are enumerated; submit_multi, data_sm,
// query_sm, cancel_sm, replace_sm and outbind are non-goals.
type CommandID uint32

const (
	GenericNackID         CommandID = 0x80000000
	BindReceiverID        CommandID = 0x00000001
	BindReceiverRespID    CommandID = 0x80000001
	BindTransmitterID     CommandID = 0x00000002
	BindTransmitterRespID CommandID = 0x80000002
	SubmitSmID            CommandID = 0x00000004
	SubmitSmRespID        CommandID = 0x80000004
	DeliverSmID           CommandID = 0x00000005
	DeliverSmRespID       CommandID = 0x80000005
	UnbindID              CommandID = 0x00000006
	UnbindRespID          CommandID = 0x80000006
	BindTransceiverID     CommandID = 0x00000009
	BindTransceiverRespID CommandID = 0x80000009
	EnquireLinkID         CommandID = 0x00000015
	EnquireLinkRespID     CommandID = 0x80000015
)

// TagID is the two byte optional-parameter tag identifier.
type TagID uint16

const (
	TagReceiptedMessageID TagID = 0x001E
	TagMessageState       TagID = 0x0427
	TagScInterfaceVersion TagID = 0x0210
)

// TON is the address Type-Of-Number enum. Unrecognized values are kept
// as-is; validation is a session-layer concern.
type TON uint8

// NPI is the address Numbering-Plan-Indicator enum. Same policy as TON.
type NPI uint8

// DataCoding is the submit_sm/deliver_sm data_coding enum. Unrecognized
// values are preserved verbatim.
type DataCoding uint8

const (
	DataCodingDefault  DataCoding = 0x00
	DataCodingIA5      DataCoding = 0x01
	DataCodingLatin1   DataCoding = 0x03
	DataCodingUCS2     DataCoding = 0x08
	DataCodingBinary   DataCoding = 0x04
	DataCodingBinary8  DataCoding = 0x02
)

// EsmClass bits, used to tag DLRs (esm_class=0x04, "SMSC Delivery
// Receipt") and to recognize UDH presence on inbound PDUs.
const (
	EsmClassDefault      = 0x00
	EsmClassDeliveryRcpt = 0x04
	EsmClassUDHI         = 0x40
)

// RegisteredDelivery bits.
const (
	RegisteredDeliveryNone      = 0x00
	RegisteredDeliveryReceipt   = 0x01
	RegisteredDeliveryFailure   = 0x02
)

func (id CommandID) String() string {
	switch id {
	case GenericNackID:
		return "generic_nack"
	case BindReceiverID:
		return "bind_receiver"
	case BindReceiverRespID:
		return "bind_receiver_resp"
	case BindTransmitterID:
		return "bind_transmitter"
	case BindTransmitterRespID:
		return "bind_transmitter_resp"
	case SubmitSmID:
		return "submit_sm"
	case SubmitSmRespID:
		return "submit_sm_resp"
	case DeliverSmID:
		return "deliver_sm"
	case DeliverSmRespID:
		return "deliver_sm_resp"
	case UnbindID:
		return "unbind"
	case UnbindRespID:
		return "unbind_resp"
	case BindTransceiverID:
		return "bind_transceiver"
	case BindTransceiverRespID:
		return "bind_transceiver_resp"
	case EnquireLinkID:
		return "enquire_link"
	case EnquireLinkRespID:
		return "enquire_link_resp"
	default:
		return "unknown"
	}
}

// IsRequest reports whether id identifies a request PDU (bit 31 clear).
func IsRequest(id CommandID) bool {
	return id&0x80000000 == 0
}

// ResponseID returns the _resp command id for a request id.
func ResponseID(id CommandID) CommandID {
	return id | 0x80000000
}
