package pdu

// Bind mandatory field maxima: system_id<=16, password<=9,
// system_type<=13, address_range<=41.
const (
	maxSystemID     = 16
	maxPassword     = 9
	maxSystemType   = 13
	maxAddressRange = 41
	maxBindBody     = 7 // interface_version + addr_ton + addr_npi bytes, plus the NUL of each of the four c-octets
)

// bindBody is the mandatory-field layout shared by bind_transmitter,
// bind_receiver and bind_transceiver.
type bindBody struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTon          TON
	AddrNpi          NPI
	AddressRange     string
}

func (b bindBody) marshal() []byte {
	out := encodeCOctet(b.SystemID, maxSystemID)
	out = append(out, encodeCOctet(b.Password, maxPassword)...)
	out = append(out, encodeCOctet(b.SystemType, maxSystemType)...)
	out = append(out, byte(b.InterfaceVersion), byte(b.AddrTon), byte(b.AddrNpi))
	out = append(out, encodeCOctet(b.AddressRange, maxAddressRange)...)
	return out
}

func unmarshalBind(body []byte) (bindBody, error) {
	var b bindBody
	r := newReader(body)
	var err error
	if b.SystemID, err = r.cOctet(maxSystemID); err != nil {
		return b, fieldErr(SystemIDFld, err)
	}
	if b.Password, err = r.cOctet(maxPassword); err != nil {
		return b, fieldErr(PasswordFld, err)
	}
	if b.SystemType, err = r.cOctet(maxSystemType); err != nil {
		return b, fieldErr(SystemTypeFld, err)
	}
	v, err := r.byte()
	if err != nil {
		return b, fieldErr(InterfaceVersionFld, err)
	}
	b.InterfaceVersion = v
	v, err = r.byte()
	if err != nil {
		return b, fieldErr(AddrTonFld, err)
	}
	b.AddrTon = TON(v)
	v, err = r.byte()
	if err != nil {
		return b, fieldErr(AddrNpiFld, err)
	}
	b.AddrNpi = NPI(v)
	if b.AddressRange, err = r.cOctet(maxAddressRange); err != nil {
		return b, fieldErr(AddressRangeFld, err)
	}
	return b, nil
}

// bindRespBody is the system_id + optional TLVs layout shared by every
// bind_*_resp.
type bindRespBody struct {
	SystemID string
	Options  *Options
}

func (b bindRespBody) marshal() ([]byte, error) {
	out := encodeCOctet(b.SystemID, maxSystemID)
	if b.Options == nil {
		return out, nil
	}
	opts, err := b.Options.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, opts...), nil
}

func unmarshalBindResp(body []byte) (bindRespBody, error) {
	var b bindRespBody
	r := newReader(body)
	sysID, err := r.cOctet(maxSystemID)
	if err != nil {
		return b, fieldErr(SystemIDFld, err)
	}
	b.SystemID = sysID
	// Trailing bytes are optional TLVs; unknown tags are skipped but
	// preserved.
	if r.len() > 0 {
		b.Options = NewOptions()
		if err := b.Options.UnmarshalBinary(r.remaining()); err != nil {
			return b, err
		}
	}
	return b, nil
}

// BindTx is the bind_transmitter request PDU.
type BindTx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTon          TON
	AddrNpi          NPI
	AddressRange     string
}

func (p BindTx) CommandID() CommandID { return BindTransmitterID }

// Response builds the bind_transmitter_resp carrying the server's system_id.
func (p BindTx) Response(systemID string) *BindTxResp {
	return &BindTxResp{SystemID: systemID}
}

func (p BindTx) MarshalBinary() ([]byte, error) {
	return bindBody(p).marshal(), nil
}

func (p *BindTx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBind(body)
	if err != nil {
		return err
	}
	*p = BindTx(b)
	return nil
}

// BindTxResp is the bind_transmitter_resp PDU.
type BindTxResp struct {
	SystemID string
	Options  *Options
}

func (p BindTxResp) CommandID() CommandID { return BindTransmitterRespID }

func (p BindTxResp) MarshalBinary() ([]byte, error) {
	return bindRespBody(p).marshal()
}

func (p *BindTxResp) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindResp(body)
	if err != nil {
		return err
	}
	*p = BindTxResp(b)
	return nil
}

// BindRx is the bind_receiver request PDU.
type BindRx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTon          TON
	AddrNpi          NPI
	AddressRange     string
}

func (p BindRx) CommandID() CommandID { return BindReceiverID }

// Response builds the bind_receiver_resp carrying the server's system_id.
func (p BindRx) Response(systemID string) *BindRxResp {
	return &BindRxResp{SystemID: systemID}
}

func (p BindRx) MarshalBinary() ([]byte, error) {
	return bindBody(p).marshal(), nil
}

func (p *BindRx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBind(body)
	if err != nil {
		return err
	}
	*p = BindRx(b)
	return nil
}

// BindRxResp is the bind_receiver_resp PDU.
type BindRxResp struct {
	SystemID string
	Options  *Options
}

func (p BindRxResp) CommandID() CommandID { return BindReceiverRespID }

func (p BindRxResp) MarshalBinary() ([]byte, error) {
	return bindRespBody(p).marshal()
}

func (p *BindRxResp) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindResp(body)
	if err != nil {
		return err
	}
	*p = BindRxResp(b)
	return nil
}

// BindTRx is the bind_transceiver request PDU.
type BindTRx struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTon          TON
	AddrNpi          NPI
	AddressRange     string
}

func (p BindTRx) CommandID() CommandID { return BindTransceiverID }

// Response builds the bind_transceiver_resp carrying the server's system_id.
func (p BindTRx) Response(systemID string) *BindTRxResp {
	return &BindTRxResp{SystemID: systemID}
}

func (p BindTRx) MarshalBinary() ([]byte, error) {
	return bindBody(p).marshal(), nil
}

func (p *BindTRx) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBind(body)
	if err != nil {
		return err
	}
	*p = BindTRx(b)
	return nil
}

// BindTRxResp is the bind_transceiver_resp PDU.
type BindTRxResp struct {
	SystemID string
	Options  *Options
}

func (p BindTRxResp) CommandID() CommandID { return BindTransceiverRespID }

func (p BindTRxResp) MarshalBinary() ([]byte, error) {
	return bindRespBody(p).marshal()
}

func (p *BindTRxResp) UnmarshalBinary(body []byte) error {
	b, err := unmarshalBindResp(body)
	if err != nil {
		return err
	}
	*p = BindTRxResp(b)
	return nil
}
