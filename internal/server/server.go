// Package server implements the SMSC accept loop, session registry,
// outbound dispatcher and delivery-receipt event consumer.
package server

import (
	"context"
	"encoding/hex"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ajankovic-labs/smsc/internal/pdu"
	"github.com/ajankovic-labs/smsc/internal/queue"
	"github.com/ajankovic-labs/smsc/internal/session"
)

// Metrics is the full set of collectors the server fabric drives, a
// superset of the narrower interface session.Session depends on.
type Metrics interface {
	session.Metrics
	DeliveryAttempt(outcome string)
	DLREmitted()
	SubmitResult(status string)
	SetQueueDepth(name string, depth int)
	SessionClosed(kind string)
}

// tcpKeepAliveListener sets TCP keep-alive timeouts on accepted
// connections so dead peers eventually go away.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}

// Config configures a Server instance. Zero values are filled in with the
// same defaults config.Config exposes at the process boundary.
type Config struct {
	SystemID            string
	CredentialCheck     session.CredentialCheck
	EnquireLinkTimeout  time.Duration
	ResponseTimeout     time.Duration
	MaxDeliveryRetries  int
	RetryBackoff        time.Duration
	PendingReceiptTTL   time.Duration
	Logger              *logrus.Logger
	Metrics             Metrics
}

func (c *Config) setDefaults() {
	if c.SystemID == "" {
		c.SystemID = "SMSC"
	}
	if c.EnquireLinkTimeout == 0 {
		c.EnquireLinkTimeout = 30 * time.Second
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 10 * time.Second
	}
	if c.MaxDeliveryRetries == 0 {
		c.MaxDeliveryRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.PendingReceiptTTL == 0 {
		c.PendingReceiptTTL = 48 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
}

// Server accepts SMPP connections, runs one Session per connection, and
// drives the outbound dispatcher and delivery-receipt consumer against a
// shared SMSQueue/EventBus pair.
type Server struct {
	Addr   string
	Conf   Config
	Queues *queue.SMSQueue
	Bus    *queue.EventBus

	registry *registry
	receipts *receiptStore

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	doneChan  chan struct{}

	wg sync.WaitGroup
}

// New builds a Server ready to Serve. q and bus may be shared with other
// adapters; if nil, fresh ones are created.
func New(addr string, conf Config, q *queue.SMSQueue, bus *queue.EventBus) *Server {
	conf.setDefaults()
	if q == nil {
		q = queue.NewSMSQueue()
	}
	if bus == nil {
		bus = queue.NewEventBus()
	}
	return &Server{
		Addr:     addr,
		Conf:     conf,
		Queues:   q,
		Bus:      bus,
		registry: newRegistry(),
		receipts: newReceiptStore(conf.PendingReceiptTTL),
	}
}

// ListenAndServe starts the TCP listener and blocks in Serve.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":2775"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return srv.Serve(ln)
	}
	return srv.Serve(tcpKeepAliveListener{tcpLn})
}

// Serve accepts connections on ln, running one session per connection,
// plus the dispatcher/consumer/sweeper background tasks. Blocks until the
// listener is closed or Close/Unbind is called.
func (srv *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	srv.trackListener(ln, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-srv.getDoneChan()
		cancel()
	}()

	disp := newDispatcher(srv.Queues, srv.Bus, srv.registry, srv.receipts, srv.metrics(), srv.Conf.Logger, srv.Conf.MaxDeliveryRetries, srv.Conf.RetryBackoff)
	cons := newConsumer(srv.Bus, srv.registry, srv.receipts, srv.metrics(), srv.Conf.Logger)
	srv.wg.Add(3)
	go func() { defer srv.wg.Done(); disp.run(ctx) }()
	go func() { defer srv.wg.Done(); cons.run(ctx) }()
	go func() { defer srv.wg.Done(); srv.sweepLoop(ctx) }()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-srv.getDoneChan():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := time.Second; tempDelay > max {
					tempDelay = max
				}
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.handleConn(conn)
		}()
	}
}

func (srv *Server) handleConn(conn net.Conn) {
	sess := session.New(conn, session.Conf{
		SystemID:           srv.Conf.SystemID,
		CredentialCheck:    srv.Conf.CredentialCheck,
		OnSubmit:           srv.onSubmit,
		Metrics:            srv.metrics(),
		EnquireLinkTimeout: srv.Conf.EnquireLinkTimeout,
		ResponseTimeout:    srv.Conf.ResponseTimeout,
		Logger:             srv.Conf.Logger,
	})
	srv.registry.add(sess)

	select {
	case <-sess.NotifyClosed():
	case <-srv.getDoneChan():
		sess.Close()
	}

	srv.registry.remove(sess)
	srv.metrics().SessionClosed(boundKindLabel(sess.ClosedFrom()))
}

// boundKindLabel maps a session's pre-close state to the label
// SessionClosed expects: the bind-kind name for a bound session, or ""
// for one that closed before ever completing a bind.
func boundKindLabel(st session.State) string {
	switch st {
	case session.StateBoundTx, session.StateBoundRx, session.StateBoundTRx:
		return st.String()
	default:
		return ""
	}
}

// onSubmit is the session's on_message capability: it enqueues an
// SMSMessage on the incoming queue for upstream consumption and returns a
// fresh message id.
func (srv *Server) onSubmit(sess *session.Session, p *pdu.SubmitSm) (string, error) {
	id := uuid.New()
	messageID := hex.EncodeToString(id[:8])
	message, err := decodeInbound(p.ShortMessage, p.DataCoding)
	if err != nil {
		srv.Conf.Logger.WithError(err).WithField("message_id", messageID).Error("decoding inbound message failed")
		message = p.ShortMessage
	}
	putErr := srv.Queues.PutIncoming(queue.SMSMessage{
		MessageID:       messageID,
		Sender:          p.SourceAddr,
		SenderTon:       uint8(p.SourceAddrTon),
		SenderNpi:       uint8(p.SourceAddrNpi),
		Recipient:       p.DestinationAddr,
		RecipientTon:    uint8(p.DestAddrTon),
		RecipientNpi:    uint8(p.DestAddrNpi),
		Message:         message,
		DataCoding:      uint8(p.DataCoding),
		SentTime:        time.Now(),
		RequestReceipt:  p.RegisteredDelivery&pdu.RegisteredDeliveryReceipt != 0,
		OriginSessionID: sess.ID(),
		ValidityPeriod:  p.ValidityPeriod,
	})
	if putErr != nil {
		srv.metrics().SubmitResult("msg_qfull")
		return "", session.ErrMsgQueueFull
	}
	srv.metrics().SubmitResult("ok")
	return messageID, nil
}

// Enqueue places an SMSMessage for delivery to bound receivers, pairing it
// with a delivery-receipt entry when requested. Exposed so an upstream
// collaborator can feed the outgoing queue directly.
func (srv *Server) Enqueue(m queue.SMSMessage) {
	srv.receipts.track(m)
	srv.Queues.PutOutgoing(m)
}

func (srv *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(pollTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if dropped := srv.receipts.sweep(now); dropped > 0 {
				srv.Conf.Logger.WithField("dropped", dropped).Info("pending delivery receipts expired")
			}
			srv.metrics().SetQueueDepth("incoming", srv.Queues.IncomingLen())
			srv.metrics().SetQueueDepth("outgoing", srv.Queues.OutgoingLen())
		}
	}
}

func (srv *Server) metrics() Metrics {
	if srv.Conf.Metrics != nil {
		return srv.Conf.Metrics
	}
	return noopMetrics{}
}

// Unbind gracefully drains the server: sends unbind to every connected
// session before closing the listener, mirroring the original
// implementation's shutdown sequence.
func (srv *Server) Unbind(ctx context.Context) error {
	for _, sess := range srv.registry.all() {
		_, _ = sess.Send(ctx, &pdu.Unbind{})
	}
	return srv.Close()
}

// Close stops accepting connections and waits for in-flight goroutines.
func (srv *Server) Close() error {
	srv.mu.Lock()
	srv.closeDoneChanLocked()
	err := srv.closeListenersLocked()
	srv.mu.Unlock()
	srv.wg.Wait()
	return err
}

func (srv *Server) trackListener(ln net.Listener, add bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listeners == nil {
		srv.listeners = make(map[net.Listener]struct{})
	}
	if add {
		srv.listeners[ln] = struct{}{}
	} else {
		delete(srv.listeners, ln)
	}
}

func (srv *Server) closeListenersLocked() error {
	var err error
	for ln := range srv.listeners {
		if cerr := ln.Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(srv.listeners, ln)
	}
	return err
}

func (srv *Server) getDoneChan() <-chan struct{} {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.getDoneChanLocked()
}

func (srv *Server) getDoneChanLocked() chan struct{} {
	if srv.doneChan == nil {
		srv.doneChan = make(chan struct{})
	}
	return srv.doneChan
}

func (srv *Server) closeDoneChanLocked() {
	ch := srv.getDoneChanLocked()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// noopMetrics is used when Config.Metrics is nil so the dispatcher and
// consumer never need to nil-check.
type noopMetrics struct{}

func (noopMetrics) PDUReceived(string)        {}
func (noopMetrics) PDUSent(string)            {}
func (noopMetrics) SessionBound(string)       {}
func (noopMetrics) SessionClosed(string)      {}
func (noopMetrics) DeliveryAttempt(string)    {}
func (noopMetrics) DLREmitted()               {}
func (noopMetrics) SubmitResult(string)       {}
func (noopMetrics) SetQueueDepth(string, int) {}
