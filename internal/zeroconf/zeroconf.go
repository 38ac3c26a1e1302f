// Package zeroconf advertises the card daemon's HTTP API over mDNS/DNS-SD.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_http._tcp"

// Service manages mDNS service registration.
type Service struct {
	instance string
	port     int
	txt      []string
}

// New creates a service advertising instance on port with the card's
// name in its TXT record.
func New(instance, card string, port int) *Service {
	return &Service{
		instance: instance,
		port:     port,
		txt:      []string{"card=" + card, "path=/api"},
	}
}

// TXT returns the TXT records that will be advertised.
func (s *Service) TXT() []string {
	return append([]string(nil), s.txt...)
}

// Start registers the service and blocks until ctx is cancelled, at which
// point it shuts the responder down.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(s.instance, serviceType, "local.", s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service", "name", s.instance, "port", s.port, "txt", s.txt)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
