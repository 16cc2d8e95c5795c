// Command bordersim runs the border-crossing traffic simulator's HTTP/
// WebSocket façade: start it, POST configs to /simulate, and watch
// snapshots stream over /ws/{id}.
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

	"github.com/cxd309/bordersim/internal/config"
	"github.com/cxd309/bordersim/internal/httpapi"
	"github.com/sirupsen/logrus"
)

// Exit codes, per spec.md §6.
const (
	exitOK          = 0
	exitBadConfig   = 2
	exitBindFailure = 3
)

var (
	host       = flag.String("host", "0.0.0.0", "address to bind the HTTP server to")
	port       = flag.Int("port", 8080, "port to bind the HTTP server to")
	configPath = flag.String("config", "", "optional path to a border_config/simulation_config/phone_config YAML file; it is only validated at startup (exit code 2 if invalid) and is not applied to simulations")
)

func main() {
	flag.Parse()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	os.Exit(runApp(log, *host, *port, *configPath))
}

func runApp(log *logrus.Logger, host string, port int, configPath string) int {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			log.WithError(err).Error("failed to read config file")
			return exitBadConfig
		}
		req, err := config.FromYAML(data)
		if err != nil {
			log.WithError(err).Error("failed to parse config file")
			return exitBadConfig
		}
		if err := req.Validate(); err != nil {
			log.WithError(err).Error("config file failed validation")
			return exitBadConfig
		}
		log.Info("default config file validated")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Error("failed to bind listener")
		return exitBindFailure
	}

	manager := httpapi.NewManager(log)
	router := httpapi.NewRouter(manager)

	srv := &http.Server{Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr}).Info("bordersim listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server exited unexpectedly")
			return exitBindFailure
		}
	}

	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown timed out")
	}

	return exitOK
}
