package session

import (
	"fmt"

	"github.com/ajankovic-labs/smsc/internal/pdu"
)

// StatusError wraps an SMPP command_status a peer returned in a response
// PDU so callers can inspect it with errors.As.
type StatusError struct {
	msg    string
	status pdu.Status
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s (0x%X)", e.msg, uint32(e.status))
}

// Status returns the wire status code.
func (e StatusError) Status() pdu.Status { return e.status }

func statusToError(status pdu.Status) error {
	switch status {
	case pdu.StatusOK:
		return nil
	case pdu.StatusInvMsgLen:
		return StatusError{"message length is invalid", status}
	case pdu.StatusInvCmdLen:
		return StatusError{"command length is invalid", status}
	case pdu.StatusInvCmdID:
		return StatusError{"invalid command id", status}
	case pdu.StatusInvBnd:
		return StatusError{"incorrect bind status for given command", status}
	case pdu.StatusAlyBnd:
		return StatusError{"already in bound state", status}
	case pdu.StatusInvPrtFlg:
		return StatusError{"invalid priority flag", status}
	case pdu.StatusInvRegDlvFlg:
		return StatusError{"invalid registered delivery flag", status}
	case pdu.StatusSysErr:
		return StatusError{"system error", status}
	case pdu.StatusInvSrcAdr:
		return StatusError{"invalid source address", status}
	case pdu.StatusInvDstAdr:
		return StatusError{"invalid destination address", status}
	case pdu.StatusInvMsgID:
		return StatusError{"message id is invalid", status}
	case pdu.StatusBindFail:
		return StatusError{"bind failed", status}
	case pdu.StatusInvPaswd:
		return StatusError{"invalid password", status}
	case pdu.StatusInvSysID:
		return StatusError{"invalid system id", status}
	case pdu.StatusMsgQFul:
		return StatusError{"message queue full", status}
	case pdu.StatusInvSerTyp:
		return StatusError{"invalid service type", status}
	case pdu.StatusInvEsmClass:
		return StatusError{"invalid esm_class field data", status}
	case pdu.StatusThrottled:
		return StatusError{"throttling error", status}
	default:
		return StatusError{"unknown status", status}
	}
}
