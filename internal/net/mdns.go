package net

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_liveboard._tcp"

// ErrNoRelayFound is returned when browsing finds no advertised relay.
var ErrNoRelayFound = errors.New("no relay found on the local network")

// Advertise announces a relay listening on port. info goes into the TXT record.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"LiveBoard relay"}
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for a relay and returns the websocket URL of the first one
// that answers within timeout.
func Browse(timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 32)
	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout

	errc := make(chan error, 1)
	go func() { errc <- mdns.Query(params) }()

	for {
		select {
		case e := <-entries:
			if url, ok := relayURL(e); ok {
				return url, nil
			}
		case err := <-errc:
			if err != nil {
				return "", fmt.Errorf("mdns query: %w", err)
			}
			for {
				select {
				case e := <-entries:
					if url, ok := relayURL(e); ok {
						return url, nil
					}
				default:
					return "", ErrNoRelayFound
				}
			}
		}
	}
}

func relayURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return fmt.Sprintf("ws://%s:%d/ws", e.AddrV4.String(), e.Port), true
}
