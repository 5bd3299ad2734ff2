package server

import (
	"sync"
	"time"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/queue"
)

// pendingReceipt is the bookkeeping kept for a submitted message until its
// delivery receipt is generated or its TTL expires.
type pendingReceipt struct {
	originSessionID string

	sender       string
	senderTon    pdu.TON
	senderNpi    pdu.NPI
	recipient    string
	recipientTon pdu.TON
	recipientNpi pdu.NPI

	text       string
	submitTime time.Time
	deadline   time.Time
}

// receiptStore holds pending_delivery_reports: an entry per message_id that
// requested a delivery receipt, swept for expiry on a ticker.
type receiptStore struct {
	mu      sync.Mutex
	entries map[string]pendingReceipt
	ttl     time.Duration
}

func newReceiptStore(ttl time.Duration) *receiptStore {
	return &receiptStore{entries: make(map[string]pendingReceipt), ttl: ttl}
}

func (s *receiptStore) track(m queue.SMSMessage) {
	if !m.RequestReceipt {
		return
	}
	deadline := time.Now().Add(s.ttl)
	if !m.ValidityPeriod.IsZero() {
		deadline = m.ValidityPeriod
	}
	s.mu.Lock()
	s.entries[m.MessageID] = pendingReceipt{
		originSessionID: m.OriginSessionID,
		sender:          m.Sender,
		senderTon:       pdu.TON(m.SenderTon),
		senderNpi:       pdu.NPI(m.SenderNpi),
		recipient:       m.Recipient,
		recipientTon:    pdu.TON(m.RecipientTon),
		recipientNpi:    pdu.NPI(m.RecipientNpi),
		text:            m.Message,
		submitTime:      m.SentTime,
		deadline:        deadline,
	}
	s.mu.Unlock()
}

// take removes and returns the pending entry for id, if any.
func (s *receiptStore) take(id string) (pendingReceipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	return p, ok
}

// sweep drops every entry past its deadline and reports how many were
// dropped, for logging/metrics.
func (s *receiptStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, p := range s.entries {
		if now.After(p.deadline) {
			delete(s.entries, id)
			dropped++
		}
	}
	return dropped
}

func (s *receiptStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// buildReceipt renders the SMPP 3.4 appendix B delivery receipt text for a
// completed message. The source/destination swap for the receipt's
// deliver_sm is done by the caller (consumer.emitReceipt).
func buildReceipt(p pendingReceipt, messageID string, delivered bool, doneTime time.Time) *pdu.DeliveryReceipt {
	dr := pdu.NewReceipt(messageID, p.submitTime, doneTime, delivered)
	dr.Text = p.text
	return dr
}
