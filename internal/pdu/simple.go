package pdu

// Unbind carries no mandatory body fields.
type Unbind struct{}

func (p Unbind) CommandID() CommandID       { return UnbindID }
func (p Unbind) Response() *UnbindResp      { return &UnbindResp{} }
func (p Unbind) MarshalBinary() ([]byte, error) { return nil, nil }
func (p *Unbind) UnmarshalBinary(body []byte) error { return nil }

// UnbindResp carries no mandatory body fields.
type UnbindResp struct{}

func (p UnbindResp) CommandID() CommandID       { return UnbindRespID }
func (p UnbindResp) MarshalBinary() ([]byte, error) { return nil, nil }
func (p *UnbindResp) UnmarshalBinary(body []byte) error { return nil }

// EnquireLink is the keepalive request PDU, no mandatory body fields.
type EnquireLink struct{}

func (p EnquireLink) CommandID() CommandID       { return EnquireLinkID }
func (p EnquireLink) Response() *EnquireLinkResp { return &EnquireLinkResp{} }
func (p EnquireLink) MarshalBinary() ([]byte, error) { return nil, nil }
func (p *EnquireLink) UnmarshalBinary(body []byte) error { return nil }

// EnquireLinkResp carries no mandatory body fields.
type EnquireLinkResp struct{}

func (p EnquireLinkResp) CommandID() CommandID       { return EnquireLinkRespID }
func (p EnquireLinkResp) MarshalBinary() ([]byte, error) { return nil, nil }
func (p *EnquireLinkResp) UnmarshalBinary(body []byte) error { return nil }

// GenericNack always carries StatusInvCmdID or StatusSysErr as its
// command_status (set by the caller of pdu.Encode); the high bit of its
// command_id is always set.
type GenericNack struct{}

func (p GenericNack) CommandID() CommandID       { return GenericNackID }
func (p GenericNack) MarshalBinary() ([]byte, error) { return nil, nil }
func (p *GenericNack) UnmarshalBinary(body []byte) error { return nil }
