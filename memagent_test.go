//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"slices"
	"sync"
	"testing"
)

// memTransport answers requests from an in-memory object list, the way an
// agent would. hook, when set, answers instead; fail, when it returns an
// error, makes the request fail with it.
type memTransport struct {
	mu          sync.Mutex
	objects     []VarBind
	maxVarBinds int
	hook        func(pdu *PDU) (*Response, error)
	fail        func(pdu *PDU) error
	sent        []*PDU
	closed      bool
}

func newMemTransport(objs ...VarBind) *memTransport {
	m := &memTransport{}
	for _, vb := range objs {
		m.put(vb)
	}
	return m
}

func (m *memTransport) put(vb VarBind) {
	i, found := slices.BinarySearchFunc(m.objects, vb.OID, func(e VarBind, o OID) int { return e.OID.Compare(o) })
	if found {
		m.objects[i] = vb
		return
	}
	m.objects = slices.Insert(m.objects, i, vb)
}

func (m *memTransport) name() string { return "mem" }

func (m *memTransport) requests() []*PDU {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

func (m *memTransport) roundTrip(_ context.Context, _ AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pdu
	cp.VarBinds = slices.Clone(pdu.VarBinds)
	m.sent = append(m.sent, &cp)
	if m.hook != nil {
		return m.hook(pdu)
	}
	if m.fail != nil {
		if err := m.fail(pdu); err != nil {
			return nil, err
		}
	}
	if !expectResponse {
		return nil, nil
	}

	var out []VarBind
	switch pdu.Kind {
	case OpGet:
		for _, vb := range pdu.VarBinds {
			out = append(out, VarBind{OID: vb.OID, Value: m.get(vb.OID)})
		}
	case OpGetNext:
		for _, vb := range pdu.VarBinds {
			out = append(out, m.next(vb.OID))
		}
	case OpGetBulk:
		out = m.bulk(pdu)
		if out == nil {
			return &Response{ErrorStatus: SNMP_ErrTooBig}, nil
		}
		return &Response{VarBinds: out}, nil
	case OpSet:
		for _, vb := range pdu.VarBinds {
			m.put(vb)
		}
		out = slices.Clone(pdu.VarBinds)
	}
	if m.maxVarBinds > 0 && len(out) > m.maxVarBinds {
		return &Response{ErrorStatus: SNMP_ErrTooBig}, nil
	}
	return &Response{VarBinds: out}, nil
}

func (m *memTransport) get(oid OID) Value {
	for _, vb := range m.objects {
		if vb.OID.Equal(oid) {
			return vb.Value
		}
	}
	return NewNoSuchObject()
}

func (m *memTransport) next(oid OID) VarBind {
	for _, vb := range m.objects {
		if vb.OID.Compare(oid) > 0 {
			return vb
		}
	}
	return VarBind{OID: oid, Value: NewEndOfMibView()}
}

// bulk assumes no non-repeaters. Answers are cut to whole rows under
// maxVarBinds; nil means not even one row fits.
func (m *memTransport) bulk(pdu *PDU) []VarBind {
	cursors := pdu.OIDs()
	var out []VarBind
	for range pdu.MaxRepetitions {
		if m.maxVarBinds > 0 && len(out)+len(cursors) > m.maxVarBinds {
			break
		}
		atEnd := true
		for i, c := range cursors {
			vb := m.next(c)
			out = append(out, vb)
			cursors[i] = vb.OID
			if !vb.Value.IsEndOfMib() {
				atEnd = false
			}
		}
		if atEnd {
			break
		}
	}
	return out
}

func (m *memTransport) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// newMemStrategy wires tr into the regular Strategy implementation.
func newMemStrategy(tr *memTransport, opts ...Option) *strategy {
	return newStrategy(tr, buildOptions(opts))
}

var memEndpoint = AgentEndpoint{Address: "127.0.0.1", Version: 2, Community: "public"}

func vb(oid string, v Value) VarBind {
	return VarBind{OID: MustParseOID(oid), Value: v}
}

// ifTable rows 1 and 2 for ifDescr, ifInOctets and ifOutOctets, framed by
// a system group object before and an ifXTable object after.
func ifTableObjects(t *testing.T) []VarBind {
	t.Helper()
	return []VarBind{
		vb(".1.3.6.1.2.1.1.5.0", NewOctetString([]byte("sim-sw1"))),
		vb(".1.3.6.1.2.1.2.2.1.2.1", NewOctetString([]byte("lo"))),
		vb(".1.3.6.1.2.1.2.2.1.2.2", NewOctetString([]byte("eth0"))),
		vb(".1.3.6.1.2.1.2.2.1.10.1", NewCounter32(100)),
		vb(".1.3.6.1.2.1.2.2.1.10.2", NewCounter32(200)),
		vb(".1.3.6.1.2.1.2.2.1.16.1", NewCounter32(300)),
		vb(".1.3.6.1.2.1.2.2.1.16.2", NewCounter32(400)),
		vb(".1.3.6.1.2.1.31.1.1.1.1.1", NewOctetString([]byte("lo"))),
	}
}

var (
	ifDescrRoot     = MustParseOID(".1.3.6.1.2.1.2.2.1.2")
	ifInOctetsRoot  = MustParseOID(".1.3.6.1.2.1.2.2.1.10")
	ifOutOctetsRoot = MustParseOID(".1.3.6.1.2.1.2.2.1.16")
)
