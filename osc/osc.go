// Package osc connects the engine to the network. Server receives device
// messages over UDP and queues them for the device manager, Sink sends the
// values of OSC output nodes.
package osc

import (
	"errors"
	"fmt"
	"net"
	"sync"

	gosc "github.com/hypebeast/go-osc/osc"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/log"
)

// Queue receives inbound messages. device.Manager implements it.
type Queue interface {
	QueueMessage(msg device.Message)
}

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("osc server closed")

// Option configures a server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		s.logger = log.WithComponent(l, "osc server")
	}
}

// Server receives OSC packets and forwards every message, including the
// messages of bundles, to a queue.
type Server struct {
	queue  Queue
	logger log.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	closed bool
}

// NewServer returns a server that forwards to queue.
func NewServer(queue Queue, options ...Option) *Server {
	s := &Server{
		queue:  queue,
		logger: log.Silent,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ListenAndServe listens on the UDP address and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(conn)
}

// Serve reads packets from conn until Close. The server owns conn.
func (s *Server) Serve(conn net.PacketConn) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrServerClosed
	}
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("listening on %s", conn.LocalAddr()))
	server := &gosc.Server{Dispatcher: dispatcher{s}}
	err := server.Serve(conn)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	return err
}

// Addr returns the listening address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Close stops Serve.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// dispatcher converts go-osc packets into device messages.
type dispatcher struct {
	s *Server
}

func (d dispatcher) Dispatch(packet gosc.Packet) {
	switch p := packet.(type) {
	case *gosc.Message:
		d.s.queue.QueueMessage(Message(p))
	case *gosc.Bundle:
		for _, m := range p.Messages {
			d.s.queue.QueueMessage(Message(m))
		}
		for _, b := range p.Bundles {
			d.Dispatch(b)
		}
	}
}

// Message converts an OSC message into a device message.
func Message(m *gosc.Message) device.Message {
	args := make([]interface{}, len(m.Arguments))
	copy(args, m.Arguments)
	return device.Message{
		Address:   m.Address,
		Arguments: args,
	}
}

// Sink sends single float values to a remote OSC receiver.
type Sink struct {
	client *gosc.Client
}

// NewSink returns a sink that sends to host:port.
func NewSink(host string, port int) *Sink {
	return &Sink{client: gosc.NewClient(host, port)}
}

// Send implements graph.Sender.
func (s *Sink) Send(address string, value float32) error {
	if err := s.client.Send(gosc.NewMessage(address, value)); err != nil {
		return fmt.Errorf("send %s: %w", address, err)
	}
	return nil
}
