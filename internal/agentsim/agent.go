// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package agentsim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

// Option configures an Agent.
type Option func(*Agent)

// WithCommunity sets the accepted community. Requests with another one are
// dropped without answer, as real agents do. Default "public".
func WithCommunity(c string) Option {
	return func(a *Agent) { a.community = c }
}

// WithMaxVarBinds makes the agent answer tooBig to any GET, GETNEXT or
// SET whose response would carry more than n varbinds. GETBULK responses
// are cut to whole repetitions instead, tooBig is sent only when not even
// one fits. 0 disables the limit.
func WithMaxVarBinds(n int) Option {
	return func(a *Agent) { a.maxVarBinds.Store(int64(n)) }
}

// WithWritable accepts SET requests. Without it every SET fails with
// notWritable.
func WithWritable() Option {
	return func(a *Agent) { a.writable = true }
}

// WithDropFirst silently drops the first n accepted requests.
func WithDropFirst(n int) Option {
	return func(a *Agent) { a.drop.Store(int64(n)) }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// Agent is a simulated SNMPv2c agent over a MIB.
type Agent struct {
	mib       *MIB
	community string
	writable  bool
	log       *zap.Logger

	maxVarBinds atomic.Int64
	drop        atomic.Int64
	requests    atomic.Int64
	tooBig      atomic.Int64

	mu     sync.Mutex
	conn   net.PacketConn
	closed bool
}

// New returns an agent serving mib. Call Listen, then Serve.
func New(mib *MIB, opts ...Option) *Agent {
	a := &Agent{mib: mib, community: "public", log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("agentsim")
	return a
}

// MIB returns the served objects.
func (a *Agent) MIB() *MIB { return a.mib }

// SetMaxVarBinds changes the tooBig threshold of a running agent.
func (a *Agent) SetMaxVarBinds(n int) { a.maxVarBinds.Store(int64(n)) }

// Requests counts the requests accepted so far, dropped ones included.
func (a *Agent) Requests() int64 { return a.requests.Load() }

// TooBigSent counts tooBig responses.
func (a *Agent) TooBigSent() int64 { return a.tooBig.Load() }

// Listen opens the UDP socket. addr may use port 0.
func (a *Agent) Listen(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	a.log.Info("listening", zap.Stringer("addr", conn.LocalAddr()))
	return nil
}

// Addr returns the bound UDP address, nil before Listen.
func (a *Agent) Addr() *net.UDPAddr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	udp, _ := a.conn.LocalAddr().(*net.UDPAddr)
	return udp
}

// Serve answers requests until ctx ends or Close is called.
func (a *Agent) Serve(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errors.New("agent is not listening")
	}

	stop := context.AfterFunc(ctx, func() { _ = a.Close() })
	defer stop()

	buff := make([]byte, snmp.SNMP_BUFFERSIZE)
	for {
		n, addr, err := conn.ReadFrom(buff)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			a.log.Warn("read error", zap.Error(err))
			continue
		}
		resp, err := a.Handle(buff[:n])
		if err != nil {
			a.log.Debug("bad request", zap.Stringer("from", addr), zap.Error(err))
			continue
		}
		if resp == nil {
			continue
		}
		if _, err := conn.WriteTo(resp, addr); err != nil {
			a.log.Warn("write error", zap.Stringer("to", addr), zap.Error(err))
		}
	}
}

// Close stops Serve and releases the socket.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.conn == nil {
		return nil
	}
	a.closed = true
	return a.conn.Close()
}

// Handle processes one request datagram and returns the response
// datagram, or nil when the request is to be left unanswered.
func (a *Agent) Handle(packet []byte) ([]byte, error) {
	msg, err := snmp.DecodeV2Message(packet)
	if err != nil {
		return nil, err
	}
	if msg.Community != a.community {
		a.log.Debug("wrong community, dropping request")
		return nil, nil
	}
	a.requests.Add(1)
	if a.drop.Load() > 0 && a.drop.Add(-1) >= 0 {
		a.log.Debug("dropping request", zap.Int32("request_id", msg.PDU.RequestID))
		return nil, nil
	}

	req := make([]snmp.VarBind, len(msg.PDU.VarBinds))
	for i, w := range msg.PDU.VarBinds {
		vb, err := snmp.VarBindFromWire(w)
		if err != nil && msg.PDUType == snmp.SNMPv2_REQUEST_SET {
			return a.respond(msg, snmp.SNMP_ErrWrongEncoding, i+1, req[:0])
		}
		req[i] = vb
	}

	limit := int(a.maxVarBinds.Load())
	var out []snmp.VarBind
	status, index := snmp.SNMP_ErrNoError, 0
	switch msg.PDUType {
	case snmp.SNMPv2_REQUEST_GET:
		out = make([]snmp.VarBind, len(req))
		for i, vb := range req {
			out[i] = snmp.VarBind{OID: vb.OID, Value: a.mib.Get(vb.OID)}
		}
	case snmp.SNMPv2_REQUEST_GETNEXT:
		out = make([]snmp.VarBind, len(req))
		for i, vb := range req {
			next := a.mib.Next(vb.OID)
			out[i] = snmp.VarBind{OID: next.OID, Value: next.Value}
		}
	case snmp.SNMPv2_REQUEST_GETBULK:
		out = a.bulk(req, int(msg.PDU.ErrorStatusRaw), int(msg.PDU.ErrorIndexRaw), limit)
		if out == nil {
			status = snmp.SNMP_ErrTooBig
		}
	case snmp.SNMPv2_REQUEST_SET:
		out = req
		if !a.writable {
			status, index = snmp.SNMP_ErrNotWritable, 1
		} else {
			status, index = a.mib.Set(req)
		}
	default:
		return nil, fmt.Errorf("unsupported PDU type %d", msg.PDUType)
	}

	if status == snmp.SNMP_ErrNoError && msg.PDUType != snmp.SNMPv2_REQUEST_GETBULK && limit > 0 && len(out) > limit {
		status, index = snmp.SNMP_ErrTooBig, 0
	}
	if status == snmp.SNMP_ErrTooBig {
		a.tooBig.Add(1)
		out = nil
	}
	a.log.Debug("request",
		zap.Int("pdu", msg.PDUType),
		zap.Int32("request_id", msg.PDU.RequestID),
		zap.Int("varbinds", len(req)),
		zap.String("status", snmp.SNMPErrorNames[status]))
	return a.respond(msg, status, index, out)
}

// bulk builds a GETBULK answer (RFC 3416 4.2.3): non-repeaters once, then
// up to maxRep rows of the repeaters, row-major. Rows stop early once every
// repeater reached the end of the MIB. With a limit the answer is cut to
// whole rows; nil means not even the first row fits.
func (a *Agent) bulk(req []snmp.VarBind, nonRep, maxRep, limit int) []snmp.VarBind {
	nonRep = min(max(nonRep, 0), len(req))
	maxRep = max(maxRep, 0)
	repeaters := len(req) - nonRep

	out := make([]snmp.VarBind, 0, nonRep+repeaters*maxRep)
	for _, vb := range req[:nonRep] {
		next := a.mib.Next(vb.OID)
		out = append(out, snmp.VarBind{OID: next.OID, Value: next.Value})
	}
	if limit > 0 && len(out) > limit {
		return nil
	}
	if repeaters == 0 {
		return out
	}

	cursor := make([]snmp.OID, repeaters)
	for i, vb := range req[nonRep:] {
		cursor[i] = vb.OID
	}
	for r := 0; r < maxRep; r++ {
		if limit > 0 && len(out)+repeaters > limit {
			if r == 0 {
				return nil
			}
			break
		}
		allEnd := true
		for i := range cursor {
			next := a.mib.Next(cursor[i])
			out = append(out, snmp.VarBind{OID: next.OID, Value: next.Value})
			cursor[i] = next.OID
			if !next.Value.IsEndOfMib() {
				allEnd = false
			}
		}
		if allEnd {
			break
		}
	}
	return out
}

func (a *Agent) respond(req snmp.V2Message, status, index int, vbs []snmp.VarBind) ([]byte, error) {
	wire := make([]snmp.SNMP_Packet_V2_VarBind, len(vbs))
	for i, vb := range vbs {
		w, err := snmp.WireVarBind(vb)
		if err != nil {
			return nil, err
		}
		wire[i] = w
	}
	return snmp.EncodeV2Message(req.Community, snmp.SNMPv2_REQUEST_RESPONSE, snmp.SNMP_Packet_V2_PDU{
		RequestID:      req.PDU.RequestID,
		ErrorStatusRaw: int32(status),
		ErrorIndexRaw:  int32(index),
		VarBinds:       wire,
	})
}
