package telemetry

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// publisher is the slice of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every event as JSON on "<prefix>.<event type>".
type NATS struct {
	pub    publisher
	prefix string
	now    func() time.Time
}

// NewNATSSink publishes through conn under prefix (e.g. "colormatch.telemetry").
func NewNATSSink(conn *nats.Conn, prefix string) *NATS {
	return &NATS{pub: conn, prefix: prefix, now: time.Now}
}

func (s *NATS) Emit(eventType string, fields map[string]string) {
	data, err := json.Marshal(Event{Type: eventType, Fields: fields, At: s.now().UTC()})
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("telemetry marshal failed")
		return
	}
	subject := s.prefix + "." + eventType
	if err := s.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("telemetry publish failed")
	}
}

// Connect dials NATS with reconnect handling that logs through zerolog.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("colormatch"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("nats connection closed")
		}),
	)
}
