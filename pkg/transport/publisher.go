// Package transport republishes scheduler phase transitions over a
// ZeroMQ PUB socket for distributed, read-only mirrors.
package transport

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"
)

// Publisher wraps a ZMQ PUB socket and republishes one topic-prefixed
// frame per phase transition: "<phase>.<kind-or-empty> <json body>".
// Publishing is fire-and-forget and non-blocking; it is never awaited
// by the scheduler.
type Publisher struct {
	sock *zmq.Socket
}

// NewPublisher binds a PUB socket at addr with a generous
// high-water-mark and send buffer; the socket sheds slow subscribers
// rather than block.
func NewPublisher(addr string) (*Publisher, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("transport: new zmq context: %w", err)
	}
	sock, err := ctx.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("transport: new pub socket: %w", err)
	}
	if err := sock.SetSndhwm(10000); err != nil {
		return nil, fmt.Errorf("transport: set sndhwm: %w", err)
	}
	if err := sock.SetSndbuf(1024 * 1024); err != nil {
		return nil, fmt.Errorf("transport: set sndbuf: %w", err)
	}
	if err := sock.Bind(addr); err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}
	return &Publisher{sock: sock}, nil
}

// Close closes the underlying socket.
func (p *Publisher) Close() error { return p.sock.Close() }

func (p *Publisher) publish(phase, topic string, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logrus.WithError(err).Warn("transport: failed to marshal frame")
		return
	}
	frame := fmt.Sprintf("%s.%s %s", phase, topic, data)
	if _, err := p.sock.Send(frame, zmq.DONTWAIT); err != nil {
		logrus.WithError(err).Debug("transport: publish dropped")
	}
}

// OnTick implements kernel.Observer.
func (p *Publisher) OnTick(t int) { p.publish("tick", "", tickBody{Time: t}) }

// OnExchange implements kernel.Observer.
func (p *Publisher) OnExchange(t int, kind string, matches int) {
	p.publish("exchange", kind, exchangeBody{Time: t, Kind: kind, Matches: matches})
}

// OnTock implements kernel.Observer.
func (p *Publisher) OnTock(t int) { p.publish("tock", "", tickBody{Time: t}) }

// OnSnapshot implements kernel.Observer.
func (p *Publisher) OnSnapshot(t int) { p.publish("snapshot", "", tickBody{Time: t}) }

// OnFinish implements kernel.Observer.
func (p *Publisher) OnFinish(earlyTerm bool, endTime int) {
	p.publish("finish", "", finishBody{EarlyTerm: earlyTerm, EndTime: endTime})
}

type tickBody struct {
	Time int `json:"time"`
}

type exchangeBody struct {
	Time    int    `json:"time"`
	Kind    string `json:"kind"`
	Matches int    `json:"matches"`
}

type finishBody struct {
	EarlyTerm bool `json:"early_term"`
	EndTime   int  `json:"end_time"`
}
