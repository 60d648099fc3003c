// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"net"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SMIType is the BER identifier octet of an SNMP value: class bits plus tag
// number. The same numbering is used by gosnmp's Asn1BER.
type SMIType byte

const (
	TypeInteger32        SMIType = 0x02
	TypeOctetString      SMIType = 0x04
	TypeNull             SMIType = 0x05
	TypeObjectIdentifier SMIType = 0x06
	TypeIPAddress        SMIType = 0x40 | SNMP_type_IPADDR
	TypeCounter32        SMIType = 0x40 | SNMP_type_COUNTER32
	TypeGauge32          SMIType = 0x40 | SNMP_type_GAUGE32
	TypeTimeTicks        SMIType = 0x40 | SNMP_type_TIMETICKS
	TypeOpaque           SMIType = 0x40 | SNMP_type_OPAQUE
	TypeCounter64        SMIType = 0x40 | SNMP_type_COUNTER64
	TypeNoSuchObject     SMIType = 0x80 | tagERR_noSuchObject
	TypeNoSuchInstance   SMIType = 0x80 | tagERR_noSuchInstance
	TypeEndOfMibView     SMIType = 0x80 | tagERR_EndOfMib

	// Unsigned32 shares the Gauge32 encoding (RFC 2578 §7.1.11).
	TypeUnsigned32 = TypeGauge32
)

var smiTypeNames = map[SMIType]string{
	TypeInteger32:        "INTEGER",
	TypeOctetString:      "OCTET STRING",
	TypeNull:             "NULL",
	TypeObjectIdentifier: "OBJECT IDENTIFIER",
	TypeIPAddress:        "IpAddress",
	TypeCounter32:        "Counter32",
	TypeGauge32:          "Gauge32",
	TypeTimeTicks:        "Timeticks",
	TypeOpaque:           "Opaque",
	TypeCounter64:        "Counter64",
	TypeNoSuchObject:     "noSuchObject",
	TypeNoSuchInstance:   "noSuchInstance",
	TypeEndOfMibView:     "endOfMibView",
}

// Known reports whether t is one of the SMI types this package decodes.
func (t SMIType) Known() bool {
	_, ok := smiTypeNames[t]
	return ok
}

func (t SMIType) String() string {
	if name, ok := smiTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
}

// Value is an immutable SNMP value of one SMI type.
//
// Numeric types keep their value in n, byte-oriented types (OCTET STRING,
// Opaque, IpAddress) in raw, OBJECT IDENTIFIER in oid. Null and the
// exception markers carry no payload. The zero Value is Null.
type Value struct {
	typ SMIType
	n   *big.Int
	raw []byte
	oid OID
}

var (
	bigMask32 = new(big.Int).SetUint64(0xFFFFFFFF)
	bigMask64 = new(big.Int).SetUint64(^uint64(0))
)

func NewInteger32(v int32) Value {
	return Value{typ: TypeInteger32, n: big.NewInt(int64(v))}
}

func NewCounter32(v uint32) Value {
	return Value{typ: TypeCounter32, n: new(big.Int).SetUint64(uint64(v))}
}

func NewGauge32(v uint32) Value {
	return Value{typ: TypeGauge32, n: new(big.Int).SetUint64(uint64(v))}
}

// NewUnsigned32 is NewGauge32 under its SMIv2 name.
func NewUnsigned32(v uint32) Value {
	return NewGauge32(v)
}

func NewTimeTicks(v uint32) Value {
	return Value{typ: TypeTimeTicks, n: new(big.Int).SetUint64(uint64(v))}
}

func NewCounter64(v uint64) Value {
	return Value{typ: TypeCounter64, n: new(big.Int).SetUint64(v)}
}

// NewCounter64Big builds a Counter64 from an arbitrary precision integer.
// Negative values are rejected.
func NewCounter64Big(v *big.Int) (Value, error) {
	if v == nil || v.Sign() < 0 {
		return Value{}, &ConversionError{From: TypeCounter64, To: "Counter64", Reason: "negative or nil value"}
	}
	return Value{typ: TypeCounter64, n: new(big.Int).Set(v)}, nil
}

func NewOctetString(b []byte) Value {
	return Value{typ: TypeOctetString, raw: cloneBytes(b)}
}

func NewOpaque(b []byte) Value {
	return Value{typ: TypeOpaque, raw: cloneBytes(b)}
}

// NewIPAddress accepts IPv4 addresses only, as SMIv2 IpAddress does.
func NewIPAddress(ip net.IP) (Value, error) {
	v4 := ip.To4()
	if v4 == nil {
		return Value{}, &ConversionError{From: TypeIPAddress, To: "IpAddress", Reason: fmt.Sprintf("%v is not an IPv4 address", ip)}
	}
	return Value{typ: TypeIPAddress, raw: cloneBytes(v4)}, nil
}

func NewObjectIdentifier(o OID) Value {
	return Value{typ: TypeObjectIdentifier, oid: o.Clone()}
}

func NewNull() Value           { return Value{typ: TypeNull} }
func NewNoSuchObject() Value   { return Value{typ: TypeNoSuchObject} }
func NewNoSuchInstance() Value { return Value{typ: TypeNoSuchInstance} }
func NewEndOfMibView() Value   { return Value{typ: TypeEndOfMibView} }

// Type returns the SMI type of v. The zero Value reports TypeNull.
func (v Value) Type() SMIType {
	if v.typ == 0 {
		return TypeNull
	}
	return v.typ
}

// IsNumeric is true for Integer32, Counter32, Counter64, TimeTicks and
// Gauge32/Unsigned32.
func (v Value) IsNumeric() bool {
	switch v.Type() {
	case TypeInteger32, TypeCounter32, TypeCounter64, TypeTimeTicks, TypeGauge32:
		return true
	}
	return false
}

// IsError is true for noSuchObject and noSuchInstance.
func (v Value) IsError() bool {
	t := v.Type()
	return t == TypeNoSuchObject || t == TypeNoSuchInstance
}

func (v Value) IsEndOfMib() bool {
	return v.Type() == TypeEndOfMibView
}

func (v Value) IsNull() bool {
	return v.Type() == TypeNull
}

// IsDisplayable reports whether DisplayString renders v without escaping.
func (v Value) IsDisplayable() bool {
	switch v.Type() {
	case TypeInteger32, TypeCounter32, TypeCounter64, TypeTimeTicks, TypeGauge32,
		TypeObjectIdentifier, TypeIPAddress:
		return true
	case TypeOctetString:
		return allBytesPlainASCII(v.raw)
	}
	return false
}

// DisplayString renders v for humans. TimeTicks are printed as the raw tick
// count. OCTET STRING values are made ASCII safe: trailing NULs are dropped
// and non-printable bytes are written as \xNN.
func (v Value) DisplayString() string {
	switch v.Type() {
	case TypeOctetString:
		return escapeOctetString(v.raw)
	}
	return v.String()
}

// String returns the canonical text of v.
func (v Value) String() string {
	switch v.Type() {
	case TypeInteger32, TypeCounter32, TypeCounter64, TypeTimeTicks, TypeGauge32:
		return v.n.String()
	case TypeOctetString:
		return string(v.raw)
	case TypeOpaque:
		return hex.EncodeToString(v.raw)
	case TypeIPAddress:
		if len(v.raw) == net.IPv4len {
			return net.IP(v.raw).String()
		}
		return hex.EncodeToString(v.raw)
	case TypeObjectIdentifier:
		return v.oid.String()
	case TypeNull:
		return ""
	}
	return v.Type().String()
}

// Bytes returns a copy of the payload of OCTET STRING, Opaque and IpAddress
// values and nil for everything else.
func (v Value) Bytes() []byte {
	switch v.Type() {
	case TypeOctetString, TypeOpaque, TypeIPAddress:
		return cloneBytes(v.raw)
	}
	return nil
}

// ToInt32 truncates to the low 32 bits, two's complement.
func (v Value) ToInt32() (int32, error) {
	n, err := v.ToBigInt()
	if err != nil {
		return 0, err
	}
	return int32(uint32(new(big.Int).And(n, bigMask32).Uint64())), nil
}

// ToInt64 truncates to the low 64 bits.
func (v Value) ToInt64() (int64, error) {
	n, err := v.ToBigInt()
	if err != nil {
		return 0, err
	}
	return int64(new(big.Int).And(n, bigMask64).Uint64()), nil
}

// ToUint64 truncates to the low 64 bits.
func (v Value) ToUint64() (uint64, error) {
	n, err := v.ToBigInt()
	if err != nil {
		return 0, err
	}
	return new(big.Int).And(n, bigMask64).Uint64(), nil
}

// ToBigInt returns the numeric value of v. OCTET STRING values are parsed
// as decimal text, falling back to floating point text truncated to an
// integer.
func (v Value) ToBigInt() (*big.Int, error) {
	if v.IsNumeric() {
		return new(big.Int).Set(v.n), nil
	}
	if v.Type() == TypeOctetString {
		return parseNumericText(string(v.raw))
	}
	return nil, &ConversionError{From: v.Type(), To: "integer"}
}

func (v Value) ToIP() (net.IP, error) {
	if v.Type() != TypeIPAddress || len(v.raw) != net.IPv4len {
		return nil, &ConversionError{From: v.Type(), To: "IpAddress"}
	}
	return net.IPv4(v.raw[0], v.raw[1], v.raw[2], v.raw[3]).To4(), nil
}

func (v Value) ToOID() (OID, error) {
	if v.Type() != TypeObjectIdentifier {
		return nil, &ConversionError{From: v.Type(), To: "OBJECT IDENTIFIER"}
	}
	return v.oid.Clone(), nil
}

// ToHexString renders OCTET STRING and Opaque payloads as lowercase hex.
func (v Value) ToHexString() (string, error) {
	switch v.Type() {
	case TypeOctetString, TypeOpaque:
		return hex.EncodeToString(v.raw), nil
	}
	return "", &ConversionError{From: v.Type(), To: "hex string"}
}

// Equal compares type and encoded content.
func (v Value) Equal(other Value) bool {
	if v.Type() != other.Type() {
		return false
	}
	switch v.Type() {
	case TypeInteger32, TypeCounter32, TypeCounter64, TypeTimeTicks, TypeGauge32:
		return v.n.Cmp(other.n) == 0
	case TypeObjectIdentifier:
		return v.oid.Equal(other.oid)
	case TypeOctetString, TypeOpaque, TypeIPAddress:
		return string(v.raw) == string(other.raw)
	}
	return true
}

// Hash is consistent with Equal.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(v.Type())})
	_, _ = d.Write(Encode(v))
	return d.Sum64()
}

func parseNumericText(s string) (*big.Int, error) {
	t := strings.TrimSpace(s)
	if n, ok := new(big.Int).SetString(t, 10); ok {
		return n, nil
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) {
		return nil, &ConversionError{From: TypeOctetString, To: "integer", Reason: fmt.Sprintf("%q is not numeric", s)}
	}
	n, _ := big.NewFloat(f).Int(nil)
	if n == nil {
		return nil, &ConversionError{From: TypeOctetString, To: "integer", Reason: fmt.Sprintf("%q is not finite", s)}
	}
	return n, nil
}

func allBytesPlainASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func escapeOctetString(b []byte) string {
	// Строки из C-агентов часто дополнены нулями
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c >= 0x20 && c <= 0x7e:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}
	return sb.String()
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
