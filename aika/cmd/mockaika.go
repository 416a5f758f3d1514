// Development server that replays scripted Aika streams.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aika/aika/mockserver"
	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()

	addr := os.Getenv("MOCK_AIKA_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: mockserver.New(mockserver.EchoScript).Router(),
	}
	go func() {
		logging.AppLogger.Info("mock aika listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
}
