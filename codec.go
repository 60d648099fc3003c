// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"fmt"
	"math/big"
)

// Decode builds a Value from an identifier octet and the raw content bytes
// of a varbind value. Both transports funnel every received value through
// Decode.
//
// Content layout per type:
//
//	INTEGER            - two's complement, big endian
//	Counter32/Gauge32  - unsigned, big endian, leading zero octets allowed
//	TimeTicks          - same as Counter32
//	Counter64          - unsigned, any length
//	IpAddress          - 4 octets
//	OBJECT IDENTIFIER  - dotted text (".1.3.6.1")
//	OCTET STRING/Opaque- octets as is
//	NULL, exceptions   - ignored
//
// Unknown or constructed identifiers fail with ErrInvalidType.
func Decode(typ SMIType, raw []byte) (Value, error) {
	switch typ {
	case TypeInteger32:
		n := signedFromBytes(raw)
		return Value{typ: typ, n: big.NewInt(int64(int32(uint32(new(big.Int).And(n, bigMask32).Uint64()))))}, nil
	case TypeCounter32, TypeGauge32, TypeTimeTicks:
		n := new(big.Int).SetBytes(raw)
		return Value{typ: typ, n: n.And(n, bigMask32)}, nil
	case TypeCounter64:
		return Value{typ: typ, n: new(big.Int).SetBytes(raw)}, nil
	case TypeOctetString, TypeOpaque:
		return Value{typ: typ, raw: cloneBytes(raw)}, nil
	case TypeIPAddress:
		if len(raw) != 4 {
			return Value{}, &ConversionError{From: typ, To: "IpAddress", Reason: fmt.Sprintf("%d octets, want 4", len(raw))}
		}
		return Value{typ: typ, raw: cloneBytes(raw)}, nil
	case TypeObjectIdentifier:
		oid, err := ParseOID(string(raw))
		if err != nil {
			return Value{}, &ConversionError{From: typ, To: "OBJECT IDENTIFIER", Reason: err.Error()}
		}
		return Value{typ: typ, oid: oid}, nil
	case TypeNull, TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		return Value{typ: typ}, nil
	}
	return Value{}, fmt.Errorf("%w: 0x%02x", ErrInvalidType, byte(typ))
}

// Encode returns the content bytes for v such that Decode(v.Type(),
// Encode(v)) equals v. Numbers use the minimal two's complement form, so
// unsigned values with the top bit set get a leading 0x00.
func Encode(v Value) []byte {
	switch v.Type() {
	case TypeInteger32, TypeCounter32, TypeGauge32, TypeTimeTicks, TypeCounter64:
		return twosComplementBytes(v.n)
	case TypeOctetString, TypeOpaque, TypeIPAddress:
		return cloneBytes(v.raw)
	case TypeObjectIdentifier:
		return []byte(v.oid.String())
	}
	return []byte{}
}

// twosComplementBytes returns the shortest big-endian two's complement
// representation of n. Zero encodes as a single 0x00 octet.
func twosComplementBytes(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
	// -1 → 0xFF, -128 → 0x80, -129 → 0xFF7F
	k := new(big.Int).Not(n).BitLen()/8 + 1
	m := new(big.Int).Lsh(big.NewInt(1), uint(8*k))
	m.Add(m, n)
	b := m.Bytes()
	out := make([]byte, k)
	copy(out[k-len(b):], b)
	return out
}

func signedFromBytes(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return n
}
