// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"
)

// smiTypeAliases maps user input to SMI types: the net-snmp snmpset type
// letters plus the type names.
var smiTypeAliases = map[string]SMIType{
	"i": TypeInteger32,
	"u": TypeGauge32,
	"c": TypeCounter32,
	"C": TypeCounter64,
	"s": TypeOctetString,
	"x": TypeOctetString,
	"n": TypeNull,
	"o": TypeObjectIdentifier,
	"t": TypeTimeTicks,
	"a": TypeIPAddress,

	"integer":          TypeInteger32,
	"integer32":        TypeInteger32,
	"int":              TypeInteger32,
	"string":           TypeOctetString,
	"octetstring":      TypeOctetString,
	"octet string":     TypeOctetString,
	"hex":              TypeOctetString,
	"null":             TypeNull,
	"oid":              TypeObjectIdentifier,
	"objectidentifier": TypeObjectIdentifier,
	"ipaddress":        TypeIPAddress,
	"ip":               TypeIPAddress,
	"counter":          TypeCounter32,
	"counter32":        TypeCounter32,
	"gauge":            TypeGauge32,
	"gauge32":          TypeGauge32,
	"unsigned32":       TypeGauge32,
	"unsigned":         TypeGauge32,
	"timeticks":        TypeTimeTicks,
	"counter64":        TypeCounter64,
	"opaque":           TypeOpaque,
}

// ParseTypedValue builds a Value from a type name and its text form, the
// way command line tools take SET arguments.
//
// Parameters:
//
//	typeName - net-snmp letter (i u c C s x n o t a) or type name
//	           ("integer", "octetstring", "counter64", "hex", ...)
//	text     - value text; hex digits for "x"/"hex" and Opaque
//
// Usage:
//
//	ifUp, _ := ParseTypedValue("i", "1")                // ifAdminStatus up
//	name, _ := ParseTypedValue("s", "my-router")        // sysName.0
//	mac, _ := ParseTypedValue("x", "00:1a:2b:3c:4d:5e") // separators allowed
func ParseTypedValue(typeName, text string) (Value, error) {
	typ, err := ParseSMIType(typeName)
	if err != nil {
		return Value{}, err
	}
	name := strings.ToLower(strings.TrimSpace(typeName))
	if name == "x" || name == "hex" {
		b, err := parseHexText(text)
		if err != nil {
			return Value{}, err
		}
		return NewOctetString(b), nil
	}
	return ParseValue(typ, text)
}

// ParseSMIType resolves a type letter or name.
func ParseSMIType(name string) (SMIType, error) {
	// однобуквенные типы чувствительны к регистру: c - Counter32, C - Counter64
	if t, ok := smiTypeAliases[strings.TrimSpace(name)]; ok {
		return t, nil
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) > 1 {
		if t, ok := smiTypeAliases[key]; ok {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, name)
}

// ParseValue builds a Value of type typ from text.
//
// Numbers are range checked against the type: Integer32 takes signed
// 32 bit values, Counter32, Gauge32 and TimeTicks unsigned 32 bit ones,
// Counter64 unsigned 64 bit ones. Opaque takes hex digits, IpAddress a
// dotted IPv4 address. Error markers cannot be built from text.
func ParseValue(typ SMIType, text string) (Value, error) {
	s := strings.TrimSpace(text)
	switch typ {
	case TypeInteger32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, &ConversionError{From: TypeOctetString, To: typ.String(), Reason: err.Error()}
		}
		return NewInteger32(int32(n)), nil
	case TypeCounter32, TypeGauge32, TypeTimeTicks:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Value{}, &ConversionError{From: TypeOctetString, To: typ.String(), Reason: err.Error()}
		}
		return Decode(typ, twosComplementBytes(new(big.Int).SetUint64(n)))
	case TypeCounter64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, &ConversionError{From: TypeOctetString, To: typ.String(), Reason: err.Error()}
		}
		return NewCounter64(n), nil
	case TypeOctetString:
		return NewOctetString([]byte(text)), nil
	case TypeOpaque:
		b, err := parseHexText(s)
		if err != nil {
			return Value{}, err
		}
		return NewOpaque(b), nil
	case TypeIPAddress:
		ip := net.ParseIP(s)
		if ip == nil {
			return Value{}, &ConversionError{From: TypeOctetString, To: typ.String(), Reason: fmt.Sprintf("%q is not an IP address", s)}
		}
		return NewIPAddress(ip)
	case TypeObjectIdentifier:
		oid, err := ParseOID(s)
		if err != nil {
			return Value{}, &ConversionError{From: TypeOctetString, To: typ.String(), Reason: err.Error()}
		}
		return NewObjectIdentifier(oid), nil
	case TypeNull:
		return NewNull(), nil
	}
	return Value{}, fmt.Errorf("%w: %s cannot be built from text", ErrInvalidType, typ)
}

// parseHexText accepts "0a1b", "0a 1b", "0a:1b" and "0x0a1b".
func parseHexText(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, &ConversionError{From: TypeOctetString, To: "hex string", Reason: err.Error()}
	}
	return b, nil
}

// TimeTicksDuration converts a TimeTicks value (hundredths of a second)
// into a time.Duration.
//
// Usage:
//
//	up, _ := sess.Get(ctx, ep, []OID{MustParseOID("1.3.6.1.2.1.1.3.0")})
//	d, _ := TimeTicksDuration(up[0]) // 4h12m3.45s
func TimeTicksDuration(v Value) (time.Duration, error) {
	if v.Type() != TypeTimeTicks {
		return 0, &ConversionError{From: v.Type(), To: "duration"}
	}
	n, err := v.ToUint64()
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * 10 * time.Millisecond, nil
}
