package pdu

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DelStat is the delivery receipt's stat field, per SMPP 3.4 appendix B.
type DelStat string

const (
	DelStatEnRoute       DelStat = "ENROUTE"
	DelStatDelivered     DelStat = "DELIVRD"
	DelStatExpired       DelStat = "EXPIRED"
	DelStatDeleted       DelStat = "DELETED"
	DelStatUndeliverable DelStat = "UNDELIV"
	DelStatAccepted      DelStat = "ACCEPTD"
	DelStatUnknown       DelStat = "UNKNOWN"
	DelStatRejected      DelStat = "REJECTD"
)

// receiptDateLayout is SMPP's YYMMDDhhmm used inside receipt text, distinct
// from the wire schedule/validity layouts in package smsctime.
const receiptDateLayout = "0601021504"

// DeliveryReceipt is the parsed form of a deliver_sm short_message
// carrying a DLR. This server always emits sub=001, dlvrd ∈ {001,000};
// other values are accepted on parse for completeness.
type DeliveryReceipt struct {
	MessageID  string
	Sub        string
	Delivered  string
	SubmitDate time.Time
	DoneDate   time.Time
	Stat       DelStat
	Err        string
	Text       string
}

// String renders the receipt text in SMPP 3.4 appendix B's format:
// "id:{MID} sub:001 dlvrd:{001|000} submit date:{YYMMDDhhmm} done
// date:{YYMMDDhhmm} stat:{DELIVRD|UNDELIV} err:{EEE} text:{<=20 chars}".
func (dr *DeliveryReceipt) String() string {
	text := dr.Text
	if len(text) > 20 {
		text = text[:20]
	}
	return fmt.Sprintf(
		"id:%s sub:%s dlvrd:%s submit date:%s done date:%s stat:%s err:%s text:%s",
		dr.MessageID, dr.Sub, dr.Delivered,
		dr.SubmitDate.Format(receiptDateLayout), dr.DoneDate.Format(receiptDateLayout),
		dr.Stat, dr.Err, text,
	)
}

// NewReceipt builds the DLR for a terminal delivery outcome. delivered
// selects the dlvrd/stat pair reported to the originating session.
func NewReceipt(messageID string, submitted, done time.Time, delivered bool) *DeliveryReceipt {
	dr := &DeliveryReceipt{
		MessageID:  messageID,
		Sub:        "001",
		SubmitDate: submitted,
		DoneDate:   done,
		Err:        "000",
	}
	if delivered {
		dr.Delivered = "001"
		dr.Stat = DelStatDelivered
	} else {
		dr.Delivered = "000"
		dr.Stat = DelStatUndeliverable
	}
	return dr
}

var receiptField = regexp.MustCompile(`(\w+ ?\w+)+:([\w\-]+)`)

// ParseDeliveryReceipt parses the DLR text format defined in SMPP 3.4
// appendix B, as emitted by NewReceipt/String.
func ParseDeliveryReceipt(sm string) (*DeliveryReceipt, error) {
	invalid := fmt.Errorf("smpp/pdu: invalid receipt format: %q", sm)
	i := strings.Index(sm, "text:")
	if i == -1 {
		return nil, invalid
	}
	dr := &DeliveryReceipt{}
	matches := receiptField.FindAllStringSubmatch(sm[:i], -1)
	for idx, m := range matches {
		if len(m) != 3 {
			return nil, invalid
		}
		switch idx {
		case 0:
			if m[1] != "id" {
				return nil, invalid
			}
			dr.MessageID = m[2]
		case 1:
			if m[1] != "sub" {
				return nil, invalid
			}
			dr.Sub = m[2]
		case 2:
			if m[1] != "dlvrd" {
				return nil, invalid
			}
			dr.Delivered = m[2]
		case 3:
			if m[1] != "submit date" {
				return nil, invalid
			}
			t, err := time.Parse(receiptDateLayout, m[2])
			if err != nil {
				return nil, invalid
			}
			dr.SubmitDate = t
		case 4:
			if m[1] != "done date" {
				return nil, invalid
			}
			t, err := time.Parse(receiptDateLayout, m[2])
			if err != nil {
				return nil, invalid
			}
			dr.DoneDate = t
		case 5:
			if m[1] != "stat" {
				return nil, invalid
			}
			dr.Stat = DelStat(m[2])
		case 6:
			if m[1] != "err" {
				return nil, invalid
			}
			dr.Err = m[2]
		default:
			return nil, invalid
		}
	}
	dr.Text = sm[i+len("text:"):]
	return dr, nil
}
