package pdu

import (
	"time"

	"github.com/ajankovic-labs/smsc/internal/smsctime"
)

// DeliverSm is the deliver_sm request PDU: the SMSC pushing a message to
// a bound receiver/transceiver, including delivery receipts. Delivery
// receipts carry no TLVs beyond receipted_message_id and message_state.
type DeliverSm struct {
	ServiceType          string
	SourceAddrTon        TON
	SourceAddrNpi        NPI
	SourceAddr           string
	DestAddrTon          TON
	DestAddrNpi          NPI
	DestinationAddr      string
	EsmClass             byte
	ProtocolID           byte
	PriorityFlag         byte
	ScheduleDeliveryTime time.Time
	ValidityPeriod       time.Time
	RegisteredDelivery   byte
	ReplaceIfPresentFlag byte
	DataCoding           DataCoding
	SmDefaultMsgID       byte
	ShortMessage         string
	Options              *Options
}

func (p DeliverSm) CommandID() CommandID { return DeliverSmID }

// Response builds the deliver_sm_resp. message_id is always empty on a
// deliver_sm_resp in this server.
func (p DeliverSm) Response() *DeliverSmResp {
	return &DeliverSmResp{}
}

func (p DeliverSm) MarshalBinary() ([]byte, error) {
	out := encodeCOctet(p.ServiceType, maxServiceType+1)
	out = append(out, byte(p.SourceAddrTon), byte(p.SourceAddrNpi))
	out = append(out, encodeCOctet(p.SourceAddr, maxAddr+1)...)
	out = append(out, byte(p.DestAddrTon), byte(p.DestAddrNpi))
	out = append(out, encodeCOctet(p.DestinationAddr, maxAddr+1)...)
	out = append(out, p.EsmClass, p.ProtocolID, p.PriorityFlag)

	sched, err := formatOptionalTime(p.ScheduleDeliveryTime)
	if err != nil {
		return nil, fieldErr(ScheduleDeliveryTimeFld, err)
	}
	out = append(out, sched...)
	valid, err := formatOptionalTime(p.ValidityPeriod)
	if err != nil {
		return nil, fieldErr(ValidityPeriodFld, err)
	}
	out = append(out, valid...)

	out = append(out, p.RegisteredDelivery, p.ReplaceIfPresentFlag, byte(p.DataCoding), p.SmDefaultMsgID)
	sm := []byte(p.ShortMessage)
	if len(sm) > MaxShortMessageLen {
		sm = sm[:MaxShortMessageLen]
	}
	out = append(out, byte(len(sm)))
	out = append(out, sm...)
	if p.Options == nil {
		return out, nil
	}
	opts, err := p.Options.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, opts...), nil
}

func (p *DeliverSm) UnmarshalBinary(body []byte) error {
	r := newReader(body)
	var err error
	if p.ServiceType, err = r.cOctet(maxServiceType + 1); err != nil {
		return fieldErr(ServiceTypeFld, err)
	}
	v, err := r.byte()
	if err != nil {
		return fieldErr(SourceAddrTonFld, err)
	}
	p.SourceAddrTon = TON(v)
	if v, err = r.byte(); err != nil {
		return fieldErr(SourceAddrNpiFld, err)
	}
	p.SourceAddrNpi = NPI(v)
	if p.SourceAddr, err = r.cOctet(maxAddr + 1); err != nil {
		return fieldErr(SourceAddrFld, err)
	}
	if v, err = r.byte(); err != nil {
		return fieldErr(DestAddrTonFld, err)
	}
	p.DestAddrTon = TON(v)
	if v, err = r.byte(); err != nil {
		return fieldErr(DestAddrNpiFld, err)
	}
	p.DestAddrNpi = NPI(v)
	if p.DestinationAddr, err = r.cOctet(maxAddr + 1); err != nil {
		return fieldErr(DestinationAddrFld, err)
	}
	if p.EsmClass, err = r.byte(); err != nil {
		return fieldErr(EsmClassFld, err)
	}
	if p.ProtocolID, err = r.byte(); err != nil {
		return fieldErr(ProtocolIDFld, err)
	}
	if p.PriorityFlag, err = r.byte(); err != nil {
		return fieldErr(PriorityFlagFld, err)
	}
	sched, err := r.cOctet(maxScheduleTime + 1)
	if err != nil {
		return fieldErr(ScheduleDeliveryTimeFld, err)
	}
	if p.ScheduleDeliveryTime, err = smsctime.Parse([]byte(sched)); err != nil {
		return fieldErr(ScheduleDeliveryTimeFld, err)
	}
	valid, err := r.cOctet(maxValidityPeriod + 1)
	if err != nil {
		return fieldErr(ValidityPeriodFld, err)
	}
	if p.ValidityPeriod, err = smsctime.Parse([]byte(valid)); err != nil {
		return fieldErr(ValidityPeriodFld, err)
	}
	if p.RegisteredDelivery, err = r.byte(); err != nil {
		return fieldErr(RegisteredDeliveryFld, err)
	}
	if p.ReplaceIfPresentFlag, err = r.byte(); err != nil {
		return fieldErr(ReplaceIfPresentFlagFld, err)
	}
	if v, err = r.byte(); err != nil {
		return fieldErr(DataCodingFld, err)
	}
	p.DataCoding = DataCoding(v)
	if p.SmDefaultMsgID, err = r.byte(); err != nil {
		return fieldErr(SmDefaultMsgIDFld, err)
	}
	if p.ShortMessage, err = r.shortMessage(MaxShortMessageLen); err != nil {
		return fieldErr(ShortMessageFld, err)
	}
	if r.len() == 0 {
		return nil
	}
	p.Options = NewOptions()
	return p.Options.UnmarshalBinary(r.remaining())
}

// DeliverSmResp is the deliver_sm_resp PDU. message_id is carried but
// always empty in this server's replies.
type DeliverSmResp struct {
	MessageID string
}

func (p DeliverSmResp) CommandID() CommandID { return DeliverSmRespID }

func (p DeliverSmResp) MarshalBinary() ([]byte, error) {
	return encodeCOctet(p.MessageID, maxMessageIDString), nil
}

func (p *DeliverSmResp) UnmarshalBinary(body []byte) error {
	r := newReader(body)
	if r.len() == 0 {
		return nil
	}
	msgID, err := r.cOctet(maxMessageIDString)
	if err != nil {
		return fieldErr(MessageIDFld, err)
	}
	p.MessageID = msgID
	return nil
}
