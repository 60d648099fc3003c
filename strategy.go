// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OperationKind is the PDU type of a request.
type OperationKind int

const (
	OpGet     OperationKind = SNMPv2_REQUEST_GET
	OpGetNext OperationKind = SNMPv2_REQUEST_GETNEXT
	OpSet     OperationKind = SNMPv2_REQUEST_SET
	OpGetBulk OperationKind = SNMPv2_REQUEST_GETBULK
)

func (k OperationKind) String() string {
	switch k {
	case OpGet:
		return "GET"
	case OpGetNext:
		return "GETNEXT"
	case OpSet:
		return "SET"
	case OpGetBulk:
		return "GETBULK"
	}
	return fmt.Sprintf("PDU(%d)", int(k))
}

// Strategy names accepted by NewStrategy.
const (
	StrategyPowerC = "powerc"
	StrategyGoSNMP = "gosnmp"

	DefaultStrategy = StrategyPowerC
)

// VarBind is one OID/value pair of a PDU.
type VarBind struct {
	OID   OID
	Value Value
}

// PDU is a request ready to be sent. It is built by Strategy.BuildPDU.
type PDU struct {
	Kind           OperationKind
	VarBinds       []VarBind
	NonRepeaters   int
	MaxRepetitions int
}

// OIDs returns the request OIDs in order.
func (p *PDU) OIDs() []OID {
	oids := make([]OID, len(p.VarBinds))
	for i, vb := range p.VarBinds {
		oids[i] = vb.OID
	}
	return oids
}

// Response is a decoded response PDU. VarBinds keep the order the agent
// sent them in; exception markers stay in place.
type Response struct {
	ErrorStatus int
	ErrorIndex  int
	VarBinds    []VarBind
}

// TooBig reports an error-status of tooBig(1).
func (r *Response) TooBig() bool {
	return r != nil && r.ErrorStatus == SNMP_ErrTooBig
}

// Err converts a non-zero error-status into a *PDUError.
func (r *Response) Err() error {
	if r == nil || r.ErrorStatus == SNMP_ErrNoError {
		return nil
	}
	e := &PDUError{Status: r.ErrorStatus, Index: r.ErrorIndex}
	if r.ErrorIndex > 0 && r.ErrorIndex <= len(r.VarBinds) {
		e.OID = r.VarBinds[r.ErrorIndex-1].OID.Clone()
	}
	return e
}

func (r *Response) Values() []Value {
	out := make([]Value, len(r.VarBinds))
	for i, vb := range r.VarBinds {
		out[i] = vb.Value
	}
	return out
}

// Strategy is a pluggable SNMP transport. One Strategy is picked at
// startup and passed to everything that needs it; it is safe for
// concurrent use.
type Strategy interface {
	Name() string

	// BuildPDU prepares a request. It returns false when the request is
	// not acceptable: no OIDs, or for SET a values slice that is missing
	// or does not match the OIDs one to one.
	BuildPDU(ep AgentEndpoint, kind OperationKind, oids []OID, values []Value) (*PDU, bool)

	// Send transmits pdu and waits for the matching response. A response
	// carrying an error-status is returned as is, without error. With
	// expectResponse false the request is only dispatched and nil is
	// returned.
	Send(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error)
	SendAsync(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) *Future[*Response]

	// Get returns one value per OID, in input order. Missing objects come
	// back as noSuchObject/noSuchInstance values.
	Get(ctx context.Context, ep AgentEndpoint, oids []OID) ([]Value, error)
	GetAsync(ctx context.Context, ep AgentEndpoint, oids []OID) *Future[[]Value]

	// GetNext returns, per OID, the value of its lexicographic successor
	// or endOfMibView.
	GetNext(ctx context.Context, ep AgentEndpoint, oids []OID) ([]Value, error)

	Set(ctx context.Context, ep AgentEndpoint, oids []OID, values []Value) ([]Value, error)

	// Close releases sockets held for cached agent sessions.
	Close() error
}

// transport is the wire half of a Strategy. Endpoints reaching roundTrip
// are validated and normalized.
type transport interface {
	name() string
	roundTrip(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error)
	close() error
}

// NewStrategy returns the named backend. An empty name selects
// DefaultStrategy.
//
//	"powerc" (or "ber") - built-in BER encoder over UDP, v2c and v3 USM
//	"gosnmp"            - github.com/gosnmp/gosnmp
func NewStrategy(name string, opts ...Option) (Strategy, error) {
	o := buildOptions(opts)
	var tr transport
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyPowerC, "ber":
		tr = newBERTransport(o.logger)
	case StrategyGoSNMP:
		tr = newGoSNMPTransport(o.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return newStrategy(tr, o), nil
}

type strategy struct {
	tr      transport
	log     *zap.Logger
	metrics *Metrics
}

func newStrategy(tr transport, o options) *strategy {
	return &strategy{
		tr:      tr,
		log:     o.logger.Named("strategy").With(zap.String("strategy", tr.name())),
		metrics: o.metrics,
	}
}

func (s *strategy) Name() string { return s.tr.name() }

func (s *strategy) BuildPDU(ep AgentEndpoint, kind OperationKind, oids []OID, values []Value) (*PDU, bool) {
	if len(oids) == 0 {
		return nil, false
	}
	for _, o := range oids {
		if len(o) == 0 {
			return nil, false
		}
	}

	pdu := &PDU{Kind: kind, VarBinds: make([]VarBind, len(oids))}
	switch kind {
	case OpSet:
		if values == nil || len(values) != len(oids) {
			return nil, false
		}
		for i := range oids {
			pdu.VarBinds[i] = VarBind{OID: oids[i].Clone(), Value: values[i]}
		}
		return pdu, true
	case OpGetBulk:
		pdu.MaxRepetitions = ep.normalized().MaxRepetitions
	case OpGet, OpGetNext:
	default:
		return nil, false
	}
	for i := range oids {
		pdu.VarBinds[i] = VarBind{OID: oids[i].Clone(), Value: NewNull()}
	}
	return pdu, true
}

func (s *strategy) Send(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error) {
	if pdu == nil {
		return nil, ErrRejectedPdu
	}
	if err := ep.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", ep, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ep = ep.normalized()

	start := time.Now()
	resp, err := s.tr.roundTrip(ctx, ep, pdu, expectResponse)
	s.metrics.observeRequest(s.tr.name(), pdu.Kind, resp, err, time.Since(start))
	if err != nil {
		s.log.Debug("request failed",
			zap.Stringer("agent", ep),
			zap.Stringer("op", pdu.Kind),
			zap.Int("varbinds", len(pdu.VarBinds)),
			zap.Error(err))
		return nil, err
	}
	if resp != nil && resp.ErrorStatus != SNMP_ErrNoError {
		s.log.Debug("error-status in response",
			zap.Stringer("agent", ep),
			zap.Stringer("op", pdu.Kind),
			zap.String("status", SNMPErrorNames[resp.ErrorStatus]),
			zap.Int("index", resp.ErrorIndex))
	}
	return resp, nil
}

func (s *strategy) SendAsync(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) *Future[*Response] {
	return goFuture(func() (*Response, error) {
		return s.Send(ctx, ep, pdu, expectResponse)
	})
}

func (s *strategy) Get(ctx context.Context, ep AgentEndpoint, oids []OID) ([]Value, error) {
	return s.fetch(ctx, ep, OpGet, oids)
}

func (s *strategy) GetAsync(ctx context.Context, ep AgentEndpoint, oids []OID) *Future[[]Value] {
	return goFuture(func() ([]Value, error) {
		return s.Get(ctx, ep, oids)
	})
}

func (s *strategy) GetNext(ctx context.Context, ep AgentEndpoint, oids []OID) ([]Value, error) {
	return s.fetch(ctx, ep, OpGetNext, oids)
}

func (s *strategy) Set(ctx context.Context, ep AgentEndpoint, oids []OID, values []Value) ([]Value, error) {
	pdu, ok := s.BuildPDU(ep, OpSet, oids, values)
	if !ok {
		return nil, ErrRejectedPdu
	}
	resp, err := s.Send(ctx, ep, pdu, true)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return alignedValues(resp, len(oids))
}

func (s *strategy) Close() error { return s.tr.close() }

// fetch runs GET or GETNEXT, splitting the OIDs into several requests when
// the endpoint limits varbinds per PDU.
func (s *strategy) fetch(ctx context.Context, ep AgentEndpoint, kind OperationKind, oids []OID) ([]Value, error) {
	if len(oids) == 0 {
		return []Value{}, nil
	}
	chunk := len(oids)
	if ep.MaxVarBindsPerPDU > 0 && ep.MaxVarBindsPerPDU < chunk {
		chunk = ep.MaxVarBindsPerPDU
	}
	out := make([]Value, 0, len(oids))
	for start := 0; start < len(oids); start += chunk {
		end := min(start+chunk, len(oids))
		pdu, ok := s.BuildPDU(ep, kind, oids[start:end], nil)
		if !ok {
			return nil, ErrRejectedPdu
		}
		resp, err := s.Send(ctx, ep, pdu, true)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}
		vals, err := alignedValues(resp, end-start)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func alignedValues(resp *Response, want int) ([]Value, error) {
	if resp == nil {
		return nil, errors.New("no response")
	}
	if len(resp.VarBinds) != want {
		return nil, fmt.Errorf("malformed response: %d varbinds for %d requested", len(resp.VarBinds), want)
	}
	return resp.Values(), nil
}

// decodeVarBindValue runs Decode and replaces undecodable values with a
// noSuchObject marker so one bad varbind never fails the whole response.
func decodeVarBindValue(log *zap.Logger, oid OID, typ SMIType, raw []byte) Value {
	v, err := Decode(typ, raw)
	if err != nil {
		log.Warn("undecodable varbind value",
			zap.Stringer("oid", oid),
			zap.Stringer("type", typ),
			zap.Error(err))
		return NewNoSuchObject()
	}
	return v
}
