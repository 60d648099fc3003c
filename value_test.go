//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"bytes"
	"errors"
	"math/big"
	"net"
	"testing"
)

func mustIP(t *testing.T, s string) Value {
	t.Helper()
	v, err := NewIPAddress(net.ParseIP(s))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestCodecRoundTrip(t *testing.T) {
	big64, _ := NewCounter64Big(new(big.Int).SetUint64(^uint64(0)))
	values := map[string]Value{
		"integer zero":     NewInteger32(0),
		"integer 42":       NewInteger32(42),
		"integer -1":       NewInteger32(-1),
		"integer min":      NewInteger32(-2147483648),
		"integer max":      NewInteger32(2147483647),
		"counter32 max":    NewCounter32(0xFFFFFFFF),
		"gauge32":          NewGauge32(42),
		"unsigned32":       NewUnsigned32(128),
		"timeticks":        NewTimeTicks(8640000),
		"counter64 max":    big64,
		"counter64 small":  NewCounter64(42),
		"octet string":     NewOctetString([]byte("eth0")),
		"octet string nul": NewOctetString([]byte{0x00, 0xff}),
		"empty string":     NewOctetString(nil),
		"opaque":           NewOpaque([]byte{0x9f, 0x78, 0x04}),
		"ipaddress":        mustIP(t, "10.0.0.1"),
		"oid":              NewObjectIdentifier(MustParseOID(".1.3.6.1.4.1.8072")),
		"null":             NewNull(),
		"noSuchObject":     NewNoSuchObject(),
		"noSuchInstance":   NewNoSuchInstance(),
		"endOfMibView":     NewEndOfMibView(),
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(v.Type(), Encode(v))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("Decode(Encode(v)) = %s %q, want %s %q", got.Type(), got, v.Type(), v)
			}
			if got.Hash() != v.Hash() {
				t.Error("equal values hash differently")
			}

			rv, err := ToRawValue(v)
			if err != nil {
				t.Fatalf("ToRawValue: %v", err)
			}
			wire, err := FromRawValue(rv)
			if err != nil {
				t.Fatalf("FromRawValue: %v", err)
			}
			if !wire.Equal(v) {
				t.Errorf("BER round trip = %s %q, want %s %q", wire.Type(), wire, v.Type(), v)
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want []byte
	}{
		{"integer 0", NewInteger32(0), []byte{0x00}},
		{"integer 127", NewInteger32(127), []byte{0x7f}},
		{"integer 128", NewInteger32(128), []byte{0x00, 0x80}},
		{"integer -1", NewInteger32(-1), []byte{0xff}},
		{"integer -128", NewInteger32(-128), []byte{0x80}},
		{"integer -129", NewInteger32(-129), []byte{0xff, 0x7f}},
		{"counter32 max", NewCounter32(0xFFFFFFFF), []byte{0x00, 0xff, 0xff, 0xff, 0xff}},
		{"gauge 42", NewGauge32(42), []byte{0x2a}},
		{"ipaddress", mustIP(t, "192.168.0.1"), []byte{192, 168, 0, 1}},
		{"oid", NewObjectIdentifier(MustParseOID("1.3.6.1")), []byte(".1.3.6.1")},
		{"null", NewNull(), []byte{}},
		{"endOfMibView", NewEndOfMibView(), []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.v); !bytes.Equal(got, tt.want) {
				t.Errorf("Encode = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("integer sign", func(t *testing.T) {
		v, err := Decode(TypeInteger32, []byte{0xff, 0xfe})
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := v.ToInt32(); n != -2 {
			t.Errorf("got %d, want -2", n)
		}
	})
	t.Run("counter32 leading zeros", func(t *testing.T) {
		v, err := Decode(TypeCounter32, []byte{0x00, 0x00, 0x01, 0x00})
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := v.ToUint64(); n != 256 {
			t.Errorf("got %d, want 256", n)
		}
	})
	t.Run("counter64 above int64", func(t *testing.T) {
		v, err := Decode(TypeCounter64, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := v.ToUint64(); n != ^uint64(0) {
			t.Errorf("got %d", n)
		}
	})
	t.Run("unknown type", func(t *testing.T) {
		_, err := Decode(SMIType(0x30), []byte{0x01})
		if !errors.Is(err, ErrInvalidType) {
			t.Errorf("error = %v, want ErrInvalidType", err)
		}
	})
	t.Run("ipaddress length", func(t *testing.T) {
		for _, raw := range [][]byte{{10, 0, 0}, {}, make([]byte, 16)} {
			_, err := Decode(TypeIPAddress, raw)
			var ce *ConversionError
			if !errors.As(err, &ce) {
				t.Errorf("Decode(IpAddress, % x) error = %v, want *ConversionError", raw, err)
			}
		}
		v, err := Decode(TypeIPAddress, []byte{10, 0, 0, 1})
		if err != nil || v.String() != "10.0.0.1" {
			t.Errorf("Decode(IpAddress, 4 octets) = %s, %v", v, err)
		}
	})
	t.Run("bad oid text", func(t *testing.T) {
		_, err := Decode(TypeObjectIdentifier, []byte("1.x"))
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Errorf("error = %v, want *ConversionError", err)
		}
	})
}

func TestValuePredicates(t *testing.T) {
	tests := []struct {
		name        string
		v           Value
		numeric     bool
		isErr       bool
		endOfMib    bool
		displayable bool
	}{
		{"integer", NewInteger32(42), true, false, false, true},
		{"counter64", NewCounter64(42), true, false, false, true},
		{"timeticks", NewTimeTicks(1), true, false, false, true},
		{"oid", NewObjectIdentifier(OID{1, 3}), false, false, false, true},
		{"ipaddress", mustIP(t, "10.1.1.1"), false, false, false, true},
		{"printable string", NewOctetString([]byte("sim agent")), false, false, false, true},
		{"string with nul", NewOctetString([]byte{'a', 0x00}), false, false, false, false},
		{"binary string", NewOctetString([]byte{0x00, 0x1a, 0x2b}), false, false, false, false},
		{"opaque", NewOpaque([]byte{1}), false, false, false, false},
		{"null", NewNull(), false, false, false, false},
		{"zero value", Value{}, false, false, false, false},
		{"noSuchObject", NewNoSuchObject(), false, true, false, false},
		{"noSuchInstance", NewNoSuchInstance(), false, true, false, false},
		{"endOfMibView", NewEndOfMibView(), false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsNumeric(); got != tt.numeric {
				t.Errorf("IsNumeric = %v", got)
			}
			if got := tt.v.IsError(); got != tt.isErr {
				t.Errorf("IsError = %v", got)
			}
			if got := tt.v.IsEndOfMib(); got != tt.endOfMib {
				t.Errorf("IsEndOfMib = %v", got)
			}
			if got := tt.v.IsDisplayable(); got != tt.displayable {
				t.Errorf("IsDisplayable = %v", got)
			}
		})
	}
	if !(Value{}).IsNull() || (Value{}).Type() != TypeNull {
		t.Error("zero Value should be Null")
	}
}

func TestDisplayString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string", NewOctetString([]byte("eth0")), "eth0"},
		{"trailing nuls", NewOctetString([]byte("lo\x00\x00")), "lo"},
		{"control byte", NewOctetString([]byte("a\x01b")), `a\x01b`},
		{"backslash", NewOctetString([]byte(`a\b`)), `a\\b`},
		{"high byte", NewOctetString([]byte{0xff}), `\xff`},
		{"timeticks", NewTimeTicks(12345), "12345"},
		{"negative", NewInteger32(-5), "-5"},
		{"oid", NewObjectIdentifier(MustParseOID("1.3.6.1.4.1")), ".1.3.6.1.4.1"},
		{"ip", mustIP(t, "127.0.0.1"), "127.0.0.1"},
		{"opaque", NewOpaque([]byte{0xde, 0xad}), "dead"},
		{"null", NewNull(), ""},
		{"noSuchObject", NewNoSuchObject(), "noSuchObject"},
		{"endOfMibView", NewEndOfMibView(), "endOfMibView"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.DisplayString(); got != tt.want {
				t.Errorf("DisplayString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueConversions(t *testing.T) {
	if n, err := NewCounter32(0xFFFFFFFF).ToInt32(); err != nil || n != -1 {
		t.Errorf("Counter32 max ToInt32 = %d, %v", n, err)
	}
	if n, err := NewOctetString([]byte(" 42 ")).ToInt64(); err != nil || n != 42 {
		t.Errorf("numeric text ToInt64 = %d, %v", n, err)
	}
	if n, err := NewOctetString([]byte("12.7")).ToInt64(); err != nil || n != 12 {
		t.Errorf("float text ToInt64 = %d, %v", n, err)
	}

	var ce *ConversionError
	if _, err := NewOctetString([]byte("abc")).ToInt64(); !errors.As(err, &ce) {
		t.Errorf("non-numeric text: error = %v, want *ConversionError", err)
	}
	if _, err := NewObjectIdentifier(OID{1, 3}).ToUint64(); !errors.As(err, &ce) {
		t.Errorf("OID ToUint64: error = %v, want *ConversionError", err)
	}
	if _, err := NewInteger32(1).ToIP(); !errors.As(err, &ce) {
		t.Errorf("Integer32 ToIP: error = %v, want *ConversionError", err)
	}
	if _, err := NewInteger32(1).ToOID(); !errors.As(err, &ce) {
		t.Errorf("Integer32 ToOID: error = %v, want *ConversionError", err)
	}
	if _, err := NewInteger32(1).ToHexString(); !errors.As(err, &ce) {
		t.Errorf("Integer32 ToHexString: error = %v, want *ConversionError", err)
	}

	ip, err := mustIP(t, "10.0.0.1").ToIP()
	if err != nil || !ip.Equal(net.IPv4(10, 0, 0, 1)) {
		t.Errorf("ToIP = %v, %v", ip, err)
	}
	if _, err := NewIPAddress(net.ParseIP("::1")); err == nil {
		t.Error("IPv6 address accepted")
	}
	if _, err := NewCounter64Big(big.NewInt(-1)); err == nil {
		t.Error("negative Counter64 accepted")
	}

	n, err := NewCounter64(1 << 40).ToBigInt()
	if err != nil || n.Uint64() != 1<<40 {
		t.Errorf("ToBigInt = %v, %v", n, err)
	}
	n.SetInt64(0)
	if again, _ := NewCounter64(1 << 40).ToBigInt(); again.Uint64() != 1<<40 {
		t.Error("ToBigInt result aliases the value")
	}

	src := []byte("abc")
	v := NewOctetString(src)
	src[0] = 'x'
	if v.String() != "abc" {
		t.Error("NewOctetString aliases its input")
	}
	b := v.Bytes()
	b[0] = 'y'
	if v.String() != "abc" {
		t.Error("Bytes aliases the value")
	}
}

func TestValueEqual(t *testing.T) {
	if NewCounter32(1).Equal(NewGauge32(1)) {
		t.Error("values of different types must not be equal")
	}
	if !NewNoSuchObject().Equal(NewNoSuchObject()) {
		t.Error("markers of the same type must be equal")
	}
	if NewOctetString([]byte("a")).Equal(NewOctetString([]byte("b"))) {
		t.Error("different strings are equal")
	}
	if NewInteger32(1).Hash() == NewCounter32(1).Hash() {
		t.Error("type is not part of the hash")
	}
}

func TestSMITypeString(t *testing.T) {
	if TypeCounter64.String() != "Counter64" || TypeUnsigned32 != TypeGauge32 {
		t.Error("unexpected type naming")
	}
	if SMIType(0x30).Known() {
		t.Error("SEQUENCE is not an SMI value type")
	}
	if got := SMIType(0x30).String(); got != "UNKNOWN(0x30)" {
		t.Errorf("String = %q", got)
	}
}
