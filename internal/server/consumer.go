package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/queue"
)

// consumer reads MESSAGE_DELIVERED/MESSAGE_FAILED events off the bus and
// turns each into a delivery receipt for the originating session, if one
// was requested and is still tracked.
type consumer struct {
	bus      *queue.EventBus
	registry *registry
	receipts *receiptStore
	metrics  Metrics
	logger   *logrus.Logger
}

func newConsumer(bus *queue.EventBus, reg *registry, receipts *receiptStore, metrics Metrics, logger *logrus.Logger) *consumer {
	return &consumer{bus: bus, registry: reg, receipts: receipts, metrics: metrics, logger: logger}
}

func (c *consumer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		evt, ok := c.bus.Next(pollTick)
		if !ok {
			continue
		}
		switch evt.Type {
		case queue.EventDelivered:
			c.emitReceipt(evt.MessageID, true)
		case queue.EventFailed, queue.EventExpired:
			c.emitReceipt(evt.MessageID, false)
		}
	}
}

func (c *consumer) emitReceipt(messageID string, delivered bool) {
	pending, ok := c.receipts.take(messageID)
	if !ok {
		return
	}
	origin, ok := c.registry.get(pending.originSessionID)
	if !ok || !origin.CanReceive() {
		c.logger.WithField("message_id", messageID).Info("dropping delivery receipt: originating session no longer eligible")
		return
	}

	receipt := buildReceipt(pending, messageID, delivered, time.Now())
	ok = origin.DeliverMessage(
		pending.recipient, pending.sender,
		pending.recipientTon, pending.recipientNpi,
		pending.senderTon, pending.senderNpi,
		receipt.String(), pdu.DataCodingDefault, pdu.EsmClassDeliveryRcpt,
	)
	if !ok {
		c.logger.WithField("message_id", messageID).Info("dropping delivery receipt: delivery to originating session failed")
		return
	}
	c.metrics.DLREmitted()
}
