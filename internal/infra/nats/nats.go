package natsclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/app/model"
	"go.uber.org/zap"
)

const defaultConnectTimeout = 5 * time.Second

// Connect creates a NATS connection (with JetStream available) using application config
// and makes sure the click stream exists.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name("linkgate"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", conn.ConnectedUrl()))
		}),
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(buildURL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	if err := EnsureClickStream(js); err != nil {
		conn.Close()
		return nil, nil, err
	}

	return conn, js, nil
}

// EnsureClickStream creates the click stream when it does not exist yet.
func EnsureClickStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(model.ClickStreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("nats: stream info: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     model.ClickStreamName,
		Subjects: []string{model.ClickStreamSubject},
		MaxBytes: model.ClickStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("nats: create stream: %w", err)
	}
	return nil
}

func buildURL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
