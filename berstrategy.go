// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Таймаут на случай долгого разрешения имени
const dialTimeout = 10 * time.Second

// berTransport is the built-in backend: asn1modsnmp BER over a connected
// UDP socket per agent. Sessions are cached by AgentEndpoint.Key and keep
// their socket and, for v3, the discovered engine state until Close.
type berTransport struct {
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]*agentSession
	closed   bool
}

func newBERTransport(log *zap.Logger) *berTransport {
	return &berTransport{
		log:      log.Named("ber"),
		sessions: make(map[string]*agentSession),
	}
}

func (t *berTransport) name() string { return StrategyPowerC }

func (t *berTransport) session(ep AgentEndpoint) (*agentSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, net.ErrClosed
	}
	key := ep.Key()
	s, ok := t.sessions[key]
	if !ok {
		s = &agentSession{ep: ep, log: t.log.With(zap.Stringer("agent", ep))}
		s.params.MessageId = rand.Int32()
		s.params.MessageIDv2 = rand.Int32()
		t.sessions[key] = s
	}
	return s, nil
}

// roundTrip serializes requests per session: one datagram in flight per
// agent socket, so IDs and the v3 engine state never race.
func (t *berTransport) roundTrip(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error) {
	s, err := t.session(ep)
	if err != nil {
		return nil, err
	}
	s.cmux.Lock()
	defer s.cmux.Unlock()

	// timeout and retries are not part of the key and may differ per call
	s.ep = ep
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	if ep.Version == 3 {
		return s.requestV3(ctx, pdu, expectResponse)
	}
	return s.requestV2(ctx, pdu, expectResponse)
}

func (t *berTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	var errs []error
	for key, s := range t.sessions {
		s.cmux.Lock()
		if s.conn != nil {
			errs = append(errs, s.conn.Close())
			s.conn = nil
		}
		s.cmux.Unlock()
		delete(t.sessions, key)
	}
	return errors.Join(errs...)
}

// ensureOpen dials the agent and, for v3, runs engine discovery.
// Caller holds cmux.
func (s *agentSession) ensureOpen(ctx context.Context) error {
	if s.conn == nil {
		Ds := net.Dialer{Timeout: dialTimeout}
		conn, err := Ds.DialContext(ctx, "udp", s.ep.HostPort())
		if err != nil {
			return &TransportError{Endpoint: s.ep.String(), Attempts: 1, Err: err}
		}
		s.conn = conn
		s.params.DiscoveredEngineId = false
	}
	if s.ep.Version != 3 || s.params.DiscoveredEngineId {
		return nil
	}
	if err := s.discoverEngine(ctx); err != nil {
		s.log.Debug("engine discovery failed", zap.Error(err))
		return err
	}
	return nil
}
