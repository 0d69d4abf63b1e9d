package persist

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// natsPublisher is the slice of *nats.Conn this sink actually uses,
// narrowed to an interface so Record()'s swallow-on-failure behavior
// is testable without a live NATS server.
type natsPublisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSSink wraps a *nats.Conn and republishes recorded rows as JSON to
// subject "sim.datum.<table>", so an out-of-process observer (e.g. a
// warehouse loader) can subscribe without the kernel knowing about it.
// A lost telemetry row must never abort a running simulation, so
// publish failures are logged and swallowed rather than returned.
type NATSSink struct {
	nc natsPublisher
}

// NewNATSSink connects to url and returns a NATSSink. Connection
// failure is fatal to construction: a sink that never connected has
// nothing sensible to degrade to.
func NewNATSSink(url string) (*NATSSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("persist: connect to nats at %s: %w", url, err)
	}
	return &NATSSink{nc: nc}, nil
}

// NewDatum implements Sink.
func (s *NATSSink) NewDatum(table string) RowBuilder {
	return &natsRow{sink: s, table: table, fields: make(map[string]interface{})}
}

// Close closes the underlying NATS connection; it does not drain it
// first.
func (s *NATSSink) Close() { s.nc.Close() }

type natsRow struct {
	sink   *NATSSink
	table  string
	fields map[string]interface{}
}

func (r *natsRow) AddVal(field string, value interface{}) RowBuilder {
	r.fields[field] = value
	return r
}

func (r *natsRow) Record() {
	data, err := json.Marshal(r.fields)
	if err != nil {
		logrus.WithError(err).WithField("table", r.table).Warn("persist: failed to marshal datum row, dropping")
		return
	}
	subject := "sim.datum." + r.table
	if err := r.sink.nc.Publish(subject, data); err != nil {
		logrus.WithError(err).WithField("subject", subject).Warn("persist: failed to publish datum row, dropping")
	}
}
