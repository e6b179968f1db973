// ABOUTME: Minimal fake HRIS backend for local runs and E2E testing of the console
// ABOUTME: Usage: fake-hris [-addr localhost:3000] [-access-ttl 15m] [-secret dev-secret]
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/2389/hris-console/internal/config"
	"github.com/2389/hris-console/internal/hrisfake"
	"github.com/2389/hris-console/internal/logging"
)

func main() {
	addr := flag.String("addr", "localhost:3000", "HTTP listen address")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "Access token lifetime")
	secret := flag.String("secret", "", "JWT signing secret (random when empty)")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if err := run(*addr, *accessTTL, *secret, *level); err != nil {
		log.Fatal(err)
	}
}

func run(addr string, accessTTL time.Duration, secret, level string) error {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}

	logger := logging.New(config.LoggingConfig{Level: level}, os.Stderr)
	backend, err := hrisfake.NewDemo([]byte(secret),
		hrisfake.WithAccessTTL(accessTTL),
		hrisfake.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("seeding demo users: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := &http.Server{Handler: backend, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Fprintf(os.Stderr, "fake HRIS listening on http://%s (password for every demo user: %s)\n", ln.Addr(), hrisfake.DemoPassword)
	for _, email := range []string{"admin@example.com", "hr@example.com", "manager@example.com", "employee@example.com"} {
		fmt.Fprintf(os.Stderr, "  %s\n", email)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serve error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
