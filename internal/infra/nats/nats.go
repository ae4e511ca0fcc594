package natsclient

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkLedger/config"
)

const (
	defaultConnectTimeout = 5 * time.Second
	clientName            = "linkledger"
)

// Connect opens a NATS connection with JetStream for the audit event stream.
func Connect(cfg config.NATSConfig) (*nats.Conn, nats.JetStreamContext, error) {
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name(clientName),
		nats.MaxReconnects(-1),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}
	return conn, js, nil
}

// URL returns the nats:// address for cfg, defaulting to localhost:4222.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = nats.DefaultPort
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}
