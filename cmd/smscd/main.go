// Command smscd runs the SMPP 3.4 SMSC server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ajankovic-labs/smsc/config"
	"github.com/ajankovic-labs/smsc/internal/metrics"
	"github.com/ajankovic-labs/smsc/internal/queue"
	"github.com/ajankovic-labs/smsc/internal/server"
)

var addr string

func main() {
	flag.StringVar(&addr, "addr", "", "override host:port to listen on (env vars otherwise win)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load configuration: %+v", err)
	}

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if addr != "" {
		listenAddr = addr
	}

	reg := metrics.New(prometheus.DefaultRegisterer)
	queues := queue.NewSMSQueueWithCapacity(cfg.IncomingQueueLimit)

	srv := server.New(listenAddr, server.Config{
		SystemID:           cfg.SystemID,
		EnquireLinkTimeout: cfg.EnquireLinkTimeout,
		ResponseTimeout:    cfg.ResponseTimeout,
		MaxDeliveryRetries: cfg.MaxDeliveryRetries,
		RetryBackoff:       cfg.RetryBackoff,
		PendingReceiptTTL:  cfg.PendingReceiptTTL,
		Logger:             logger,
		Metrics:            reg,
	}, queues, nil)

	metricsAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server exited")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		fail("failed to listen on %s: %+v", listenAddr, err)
	}

	logger.WithFields(logrus.Fields{
		"addr":      listenAddr,
		"system_id": cfg.SystemID,
	}).Info("smscd listening")

	go func() {
		if err := srv.Serve(ln); err != nil {
			logger.WithError(err).Error("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, unbinding sessions")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Unbind(shutdownCtx); err != nil {
		logger.WithError(err).Error("error during graceful unbind")
	}

	shutdownHTTP, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHTTP()
	_ = metricsSrv.Shutdown(shutdownHTTP)

	logger.Info("smscd stopped")
}

func fail(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}
