// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// gosnmpTransport runs requests through github.com/gosnmp/gosnmp. One
// client per AgentEndpoint.Key, connected on first use.
type gosnmpTransport struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[string]*gosnmpClient
	closed  bool
}

type gosnmpClient struct {
	mu        sync.Mutex
	g         *gosnmp.GoSNMP
	connected bool
}

func newGoSNMPTransport(log *zap.Logger) *gosnmpTransport {
	return &gosnmpTransport{
		log:     log.Named("gosnmp"),
		clients: make(map[string]*gosnmpClient),
	}
}

func (t *gosnmpTransport) name() string { return StrategyGoSNMP }

func (t *gosnmpTransport) client(ep AgentEndpoint) (*gosnmpClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, net.ErrClosed
	}
	key := ep.Key()
	if c, ok := t.clients[key]; ok {
		return c, nil
	}
	g, err := newGoSNMP(ep, t.log)
	if err != nil {
		return nil, err
	}
	c := &gosnmpClient{g: g}
	t.clients[key] = c
	return c, nil
}

// newGoSNMP maps an endpoint onto a gosnmp client. gosnmp debug output
// goes to the zap logger at debug level.
func newGoSNMP(ep AgentEndpoint, log *zap.Logger) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:    ep.Address,
		Port:      uint16(ep.Port),
		Transport: "udp",
		Community: ep.Community,
		Version:   gosnmp.Version2c,
		MaxOids:   gosnmp.MaxOids,
	}
	if std, err := zap.NewStdLogAt(log, zap.DebugLevel); err == nil {
		g.Logger = gosnmp.NewLogger(std)
	}
	if ep.Version != 3 {
		return g, nil
	}

	seclevel, _, _, err := setAuthPrivParamsStToInt(ep.AuthProtocol, ep.AuthKey, ep.PrivProtocol, ep.PrivKey)
	if err != nil {
		return nil, err
	}
	usm := &gosnmp.UsmSecurityParameters{
		UserName:                 ep.Username,
		AuthenticationProtocol:   gosnmp.NoAuth,
		AuthenticationPassphrase: ep.AuthKey,
		PrivacyProtocol:          gosnmp.NoPriv,
		PrivacyPassphrase:        ep.PrivKey,
	}
	g.MsgFlags = gosnmp.NoAuthNoPriv
	if seclevel >= SECLEVEL_AUTHNOPRIV {
		g.MsgFlags = gosnmp.AuthNoPriv
		usm.AuthenticationProtocol = gosnmpAuthProtocols[strings.ToLower(ep.AuthProtocol)]
	}
	if seclevel == SECLEVEL_AUTHPRIV {
		g.MsgFlags = gosnmp.AuthPriv
		usm.PrivacyProtocol = gosnmpPrivProtocols[strings.ToLower(ep.PrivProtocol)]
	}
	g.Version = gosnmp.Version3
	g.SecurityModel = gosnmp.UserSecurityModel
	g.SecurityParameters = usm
	g.ContextName = ep.ContextName
	return g, nil
}

var gosnmpAuthProtocols = map[string]gosnmp.SnmpV3AuthProtocol{
	"md5":    gosnmp.MD5,
	"sha":    gosnmp.SHA,
	"sha1":   gosnmp.SHA,
	"sha224": gosnmp.SHA224,
	"sha256": gosnmp.SHA256,
	"sha384": gosnmp.SHA384,
	"sha512": gosnmp.SHA512,
}

// Key extension names differ: gosnmp calls the re-localizing variant
// (net-snmp, Cisco) AES192C/AES256C and the K1|H(K1) variant AES192/AES256.
var gosnmpPrivProtocols = map[string]gosnmp.SnmpV3PrivProtocol{
	"des":     gosnmp.DES,
	"aes":     gosnmp.AES,
	"aes128":  gosnmp.AES,
	"aes192":  gosnmp.AES192C,
	"aes256":  gosnmp.AES256C,
	"aes192a": gosnmp.AES192,
	"aes256a": gosnmp.AES256,
}

func (t *gosnmpTransport) roundTrip(ctx context.Context, ep AgentEndpoint, pdu *PDU, expectResponse bool) (*Response, error) {
	c, err := t.client(ep)
	if err != nil {
		return nil, err
	}
	if !expectResponse {
		// gosnmp always waits for the answer; let it do so in the background
		go func() {
			if _, err := c.do(context.WithoutCancel(ctx), ep, pdu); err != nil {
				t.log.Debug("unanswered request failed", zap.Stringer("agent", ep), zap.Error(err))
			}
		}()
		return nil, nil
	}
	packet, err := c.do(ctx, ep, pdu)
	if err != nil {
		return nil, &TransportError{Endpoint: ep.String(), Attempts: ep.Retries + 1, Err: goSNMPError(err)}
	}
	return t.response(packet), nil
}

// goSNMPError marks gosnmp's textual "request timeout" as a net timeout
// so it is told apart from other transport failures.
func goSNMPError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) {
		return err
	}
	if strings.Contains(err.Error(), "timeout") {
		return fmt.Errorf("%w: %w", os.ErrDeadlineExceeded, err)
	}
	return err
}

// do runs one request on the client. An in-flight request is not tied to
// ctx cancellation, only to the endpoint timeout.
func (c *gosnmpClient) do(ctx context.Context, ep AgentEndpoint, pdu *PDU) (*gosnmp.SnmpPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.g.Context = context.WithoutCancel(ctx)
	c.g.Timeout = ep.Timeout
	c.g.Retries = ep.Retries
	c.g.MaxOids = max(gosnmp.MaxOids, len(pdu.VarBinds))
	if !c.connected {
		if err := c.g.Connect(); err != nil {
			return nil, err
		}
		c.connected = true
	}

	oids := make([]string, len(pdu.VarBinds))
	for i, vb := range pdu.VarBinds {
		oids[i] = vb.OID.String()
	}
	switch pdu.Kind {
	case OpGet:
		return c.g.Get(oids)
	case OpGetNext:
		return c.g.GetNext(oids)
	case OpGetBulk:
		return c.g.GetBulk(oids, uint8(pdu.NonRepeaters), uint32(pdu.MaxRepetitions))
	case OpSet:
		pdus := make([]gosnmp.SnmpPDU, len(pdu.VarBinds))
		for i, vb := range pdu.VarBinds {
			p, err := toGoSNMPPDU(vb)
			if err != nil {
				return nil, err
			}
			pdus[i] = p
		}
		return c.g.Set(pdus)
	}
	return nil, fmt.Errorf("unsupported operation %s", pdu.Kind)
}

func (t *gosnmpTransport) response(packet *gosnmp.SnmpPacket) *Response {
	resp := &Response{
		ErrorStatus: int(packet.Error),
		ErrorIndex:  int(packet.ErrorIndex),
		VarBinds:    make([]VarBind, len(packet.Variables)),
	}
	for i, v := range packet.Variables {
		oid, err := ParseOID(v.Name)
		if err != nil {
			t.log.Warn("bad OID in response", zap.String("oid", v.Name), zap.Error(err))
		}
		raw, err := fromGoSNMPValue(v)
		if err != nil {
			t.log.Warn("undecodable varbind value",
				zap.Stringer("oid", oid),
				zap.Stringer("type", goSNMPType(v.Type)),
				zap.Error(err))
			resp.VarBinds[i] = VarBind{OID: oid, Value: NewNoSuchObject()}
			continue
		}
		resp.VarBinds[i] = VarBind{OID: oid, Value: decodeVarBindValue(t.log, oid, goSNMPType(v.Type), raw)}
	}
	return resp
}

// fromGoSNMPValue turns the Go value gosnmp decoded back into codec bytes,
// so both backends share Decode.
func fromGoSNMPValue(v gosnmp.SnmpPDU) ([]byte, error) {
	switch v.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Counter64:
		return twosComplementBytes(gosnmp.ToBigInt(v.Value)), nil
	case gosnmp.OctetString, gosnmp.Opaque:
		b, ok := v.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("unexpected %T value", v.Value)
		}
		return b, nil
	case gosnmp.IPAddress:
		s, _ := v.Value.(string)
		ip := net.ParseIP(s).To4()
		if ip == nil {
			return nil, fmt.Errorf("bad IpAddress %q", s)
		}
		return ip, nil
	case gosnmp.ObjectIdentifier:
		s, ok := v.Value.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected %T value", v.Value)
		}
		return []byte(s), nil
	case gosnmp.OpaqueFloat:
		f, ok := v.Value.(float32)
		if !ok {
			return nil, fmt.Errorf("unexpected %T value", v.Value)
		}
		return binary.BigEndian.AppendUint32([]byte{0x9f, 0x78, 0x04}, math.Float32bits(f)), nil
	case gosnmp.OpaqueDouble:
		f, ok := v.Value.(float64)
		if !ok {
			return nil, fmt.Errorf("unexpected %T value", v.Value)
		}
		return binary.BigEndian.AppendUint64([]byte{0x9f, 0x79, 0x08}, math.Float64bits(f)), nil
	case gosnmp.Null, gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return []byte{}, nil
	}
	return nil, fmt.Errorf("%w: gosnmp type 0x%02x", ErrInvalidType, byte(v.Type))
}

// goSNMPType maps the types gosnmp decodes Opaque floats into back to
// the Opaque they were sent as.
func goSNMPType(t gosnmp.Asn1BER) SMIType {
	switch t {
	case gosnmp.OpaqueFloat, gosnmp.OpaqueDouble:
		return TypeOpaque
	}
	return SMIType(t)
}

func toGoSNMPPDU(vb VarBind) (gosnmp.SnmpPDU, error) {
	p := gosnmp.SnmpPDU{Name: vb.OID.String(), Type: gosnmp.Asn1BER(vb.Value.Type())}
	v := vb.Value
	var err error
	switch v.Type() {
	case TypeInteger32:
		var n int32
		n, err = v.ToInt32()
		p.Value = int(n)
	case TypeCounter32, TypeGauge32, TypeTimeTicks:
		var n uint64
		n, err = v.ToUint64()
		p.Value = uint32(n)
	case TypeCounter64:
		p.Value, err = v.ToUint64()
	case TypeOctetString, TypeOpaque:
		p.Value = v.Bytes()
	case TypeIPAddress:
		var ip net.IP
		ip, err = v.ToIP()
		p.Value = ip.String()
	case TypeObjectIdentifier:
		p.Value = v.String()
	case TypeNull:
		p.Value = nil
	default:
		err = fmt.Errorf("%w: %s cannot be sent", ErrInvalidType, v.Type())
	}
	return p, err
}

func (t *gosnmpTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	var errs []error
	for key, c := range t.clients {
		c.mu.Lock()
		if c.connected && c.g.Conn != nil {
			errs = append(errs, c.g.Conn.Close())
		}
		c.connected = false
		c.mu.Unlock()
		delete(t.clients, key)
	}
	return errors.Join(errs...)
}
