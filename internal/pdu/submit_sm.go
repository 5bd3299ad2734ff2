package pdu

import (
	"time"

	"github.com/ajankovic-labs/smsc/internal/smsctime"
)

// submit_sm/deliver_sm mandatory string field maxima.
const (
	maxServiceType     = 6
	maxAddr            = 21
	maxScheduleTime    = 17
	maxValidityPeriod  = 17
	maxMessageIDString = 65
)

// SubmitSm is the submit_sm request PDU: an ESME handing the SMSC one
// short message to deliver.
type SubmitSm struct {
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

func (p SubmitSm) CommandID() CommandID { return SubmitSmID }

// Response builds the submit_sm_resp carrying the SMSC-assigned message_id.
func (p SubmitSm) Response(msgID string) *SubmitSmResp {
	return &SubmitSmResp{MessageID: msgID}
}

func (p SubmitSm) MarshalBinary() ([]byte, error) {
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

func (p *SubmitSm) UnmarshalBinary(body []byte) error {
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

// SubmitSmResp is the submit_sm_resp PDU.
type SubmitSmResp struct {
	MessageID string
	Options   *Options
}

func (p SubmitSmResp) CommandID() CommandID { return SubmitSmRespID }

func (p SubmitSmResp) MarshalBinary() ([]byte, error) {
	out := encodeCOctet(p.MessageID, maxMessageIDString)
	if p.Options == nil {
		return out, nil
	}
	opts, err := p.Options.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, opts...), nil
}

func (p *SubmitSmResp) UnmarshalBinary(body []byte) error {
	r := newReader(body)
	msgID, err := r.cOctet(maxMessageIDString)
	if err != nil {
		return fieldErr(MessageIDFld, err)
	}
	p.MessageID = msgID
	if r.len() == 0 {
		return nil
	}
	p.Options = NewOptions()
	return p.Options.UnmarshalBinary(r.remaining())
}

// formatOptionalTime renders t as an absolute SMPP time string, or a
// single NUL ("immediate"/"no expiry") if t is the zero value.
func formatOptionalTime(t time.Time) ([]byte, error) {
	if t.IsZero() {
		return []byte{0}, nil
	}
	s, err := smsctime.Format(smsctime.Absolute, t)
	if err != nil {
		return nil, err
	}
	return append([]byte(s), 0), nil
}
