package server

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/queue"
)

var (
	ucs2Encoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	ucs2Decoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
)

// encodeOutbound picks data_coding=DEFAULT for ASCII text and falls back to
// UCS2 (UTF-16BE) for anything outside the 7-bit range.
func encodeOutbound(text string) (string, pdu.DataCoding, error) {
	if isASCII(text) {
		return text, pdu.DataCodingDefault, nil
	}
	encoded, err := ucs2Encoder.String(text)
	if err != nil {
		return "", 0, err
	}
	return encoded, pdu.DataCodingUCS2, nil
}

// decodeInbound reverses encodeOutbound for a received short_message:
// a UCS2 (UTF-16BE) payload is decoded to a Go string; every other
// data_coding this server accepts is already single-byte text and
// passes through unchanged.
func decodeInbound(shortMessage string, coding pdu.DataCoding) (string, error) {
	if coding != pdu.DataCodingUCS2 {
		return shortMessage, nil
	}
	return ucs2Decoder.String(shortMessage)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// pollTick is the interval the dispatcher and event consumer use to poll
// their respective queues, short enough to observe shutdown promptly.
const pollTick = time.Second

// dispatcher is the outbound delivery loop: dequeue, first-fit deliver,
// retry with backoff, and on exhaustion report MESSAGE_FAILED.
type dispatcher struct {
	queue      *queue.SMSQueue
	bus        *queue.EventBus
	registry   *registry
	receipts   *receiptStore
	metrics    Metrics
	logger     *logrus.Logger
	maxRetries int
	retryWait  time.Duration

	mu       sync.Mutex
	attempts map[string]int
	backoffs map[string]backoff.BackOff
}

func newDispatcher(q *queue.SMSQueue, bus *queue.EventBus, reg *registry, receipts *receiptStore, metrics Metrics, logger *logrus.Logger, maxRetries int, retryWait time.Duration) *dispatcher {
	return &dispatcher{
		queue:      q,
		bus:        bus,
		registry:   reg,
		receipts:   receipts,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
		retryWait:  retryWait,
		attempts:   make(map[string]int),
		backoffs:   make(map[string]backoff.BackOff),
	}
}

// nextWait increments the failed-delivery counter for messageID and
// reports how long to wait before the next attempt, or that the message
// has exhausted its max_delivery_retries attempts. cenkalti/backoff's own
// WithMaxRetries compares its try count before incrementing it, which
// allows one extra attempt past maxTries; counting attempts explicitly
// here keeps the total at exactly maxRetries.
func (d *dispatcher) nextWait(messageID string) (wait time.Duration, exhausted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts[messageID]++
	if d.attempts[messageID] >= d.maxRetries {
		delete(d.attempts, messageID)
		delete(d.backoffs, messageID)
		return 0, true
	}
	b, ok := d.backoffs[messageID]
	if !ok {
		b = backoff.NewConstantBackOff(d.retryWait)
		d.backoffs[messageID] = b
	}
	return b.NextBackOff(), false
}

func (d *dispatcher) clearBackoff(messageID string) {
	d.mu.Lock()
	delete(d.attempts, messageID)
	delete(d.backoffs, messageID)
	d.mu.Unlock()
}

// run drains the outgoing queue until ctx is cancelled.
func (d *dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m, ok := d.queue.GetOutgoing(pollTick)
		if !ok {
			continue
		}
		d.deliverOne(m)
	}
}

func (d *dispatcher) deliverOne(m queue.SMSMessage) {
	payload, coding, err := encodeOutbound(m.Message)
	if err != nil {
		d.logger.WithError(err).WithField("message_id", m.MessageID).Error("encoding outbound message failed")
		coding = pdu.DataCoding(m.DataCoding)
		payload = m.Message
	}

	esmClass := byte(pdu.EsmClassDefault)
	for _, sess := range d.registry.eligible() {
		if sess.DeliverMessage(m.Sender, m.Recipient, pdu.TON(m.SenderTon), pdu.NPI(m.SenderNpi), pdu.TON(m.RecipientTon), pdu.NPI(m.RecipientNpi), payload, coding, esmClass) {
			m.DeliveredTime = time.Now()
			d.clearBackoff(m.MessageID)
			d.metrics.DeliveryAttempt("delivered")
			d.bus.Publish(queue.SMSEvent{
				Type:      queue.EventDelivered,
				MessageID: m.MessageID,
				Data:      map[string]string{"session_id": sess.ID()},
			})
			return
		}
	}

	wait, exhausted := d.nextWait(m.MessageID)
	if exhausted {
		d.metrics.DeliveryAttempt("failed")
		d.bus.Publish(queue.SMSEvent{
			Type:      queue.EventFailed,
			MessageID: m.MessageID,
			Data:      map[string]string{"reason": "No available session to deliver message"},
		})
		return
	}
	d.metrics.DeliveryAttempt("retry")
	time.Sleep(wait)
	d.queue.PutOutgoing(m)
}
