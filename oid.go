// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// OID is a numeric object identifier such as .1.3.6.1.2.1.1.1.0.
//
// OIDs are compared arc by arc as unsigned integers. A strict prefix
// sorts before any OID it is a prefix of.
type OID []uint32

// ParseOID parses a dotted OID. A single leading dot is accepted.
//
// Examples:
//
//	ParseOID(".1.3.6.1.2.1.2.2.1.2")  // ifDescr
//	ParseOID("1.3.6.1.2.1.1.3.0")     // sysUpTime.0
func ParseOID(s string) (OID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, errors.New("empty OID")
	}

	// Считаем количество арок заранее
	oid := make(OID, 0, strings.Count(s, ".")+1)
	for part := range strings.SplitSeq(s, ".") {
		if part == "" {
			return nil, fmt.Errorf("invalid OID %q: empty arc", s)
		}
		arc, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid OID %q: arc %q: %w", s, part, err)
		}
		oid = append(oid, uint32(arc))
	}
	return oid, nil
}

// MustParseOID is like ParseOID but panics on error.
// Intended for package-level OID constants.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String returns the dotted form with a leading dot.
func (o OID) String() string {
	if len(o) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(o) * 4)
	for _, arc := range o {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(arc), 10))
	}
	return b.String()
}

func (o OID) Compare(other OID) int {
	return slices.Compare(o, other)
}

func (o OID) Equal(other OID) bool {
	return slices.Equal(o, other)
}

// IsUnder reports whether root is a prefix of o. An OID is under itself.
func (o OID) IsUnder(root OID) bool {
	if len(root) > len(o) {
		return false
	}
	return slices.Equal(o[:len(root)], root)
}

// SuffixAfter returns the arcs of o following root, or nil when o is not
// under root. The result never aliases o.
func (o OID) SuffixAfter(root OID) OID {
	if !o.IsUnder(root) {
		return nil
	}
	return slices.Clone(o[len(root):])
}

// Append returns a new OID with arcs added.
func (o OID) Append(arcs ...uint32) OID {
	out := make(OID, 0, len(o)+len(arcs))
	out = append(out, o...)
	return append(out, arcs...)
}

// Parent returns o without its last arc.
func (o OID) Parent() OID {
	if len(o) == 0 {
		return nil
	}
	return slices.Clone(o[:len(o)-1])
}

func (o OID) Clone() OID {
	return slices.Clone(o)
}

// asn returns the OID in the form expected by the BER encoder.
func (o OID) asn() ASNber.ObjectIdentifier {
	r := make(ASNber.ObjectIdentifier, len(o))
	for i, arc := range o {
		r[i] = int(arc)
	}
	return r
}

func oidFromASN(a ASNber.ObjectIdentifier) OID {
	r := make(OID, len(a))
	for i, arc := range a {
		r[i] = uint32(arc)
	}
	return r
}

// decodeOIDContent decodes the BER content octets of an OBJECT IDENTIFIER
// (no tag, no length). The first octet packs the first two arcs as 40*X+Y.
func decodeOIDContent(b []byte) (OID, error) {
	if len(b) == 0 {
		return nil, errors.New("empty OID content")
	}
	oid := make(OID, 0, len(b)+1)
	var acc uint64
	first := true
	for i, c := range b {
		acc = acc<<7 | uint64(c&0x7f)
		if acc > 0xFFFFFFFF+80 {
			return nil, errors.New("OID arc overflow")
		}
		if c&0x80 != 0 {
			if i == len(b)-1 {
				return nil, errors.New("truncated OID content")
			}
			continue
		}
		if first {
			// Первые две арки закодированы одним числом
			switch {
			case acc < 40:
				oid = append(oid, 0, uint32(acc))
			case acc < 80:
				oid = append(oid, 1, uint32(acc-40))
			default:
				oid = append(oid, 2, uint32(acc-80))
			}
			first = false
		} else {
			if acc > 0xFFFFFFFF {
				return nil, errors.New("OID arc overflow")
			}
			oid = append(oid, uint32(acc))
		}
		acc = 0
	}
	return oid, nil
}

// encodeOIDContent is the inverse of decodeOIDContent.
func encodeOIDContent(o OID) ([]byte, error) {
	if len(o) < 2 {
		return nil, fmt.Errorf("OID %s: at least two arcs required", o)
	}
	if o[0] > 2 || (o[0] < 2 && o[1] >= 40) {
		return nil, fmt.Errorf("OID %s: invalid leading arcs", o)
	}
	out := make([]byte, 0, len(o)+4)
	out = appendBase128(out, uint64(o[0])*40+uint64(o[1]))
	for _, arc := range o[2:] {
		out = appendBase128(out, uint64(arc))
	}
	return out, nil
}

func appendBase128(dst []byte, v uint64) []byte {
	n := 1
	for t := v >> 7; t > 0; t >>= 7 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		c := byte(v>>(uint(i)*7)) & 0x7f
		if i != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
	}
	return dst
}
