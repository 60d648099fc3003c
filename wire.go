// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"errors"
	"fmt"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// ToRawValue converts v into the BER value of a varbind.
func ToRawValue(v Value) (ASNber.RawValue, error) {
	t := v.Type()
	rv := ASNber.RawValue{
		Class: int(t&berClassMask) >> 6,
		Tag:   int(t & berTagMask),
	}
	switch t {
	case TypeObjectIdentifier:
		b, err := encodeOIDContent(v.oid)
		if err != nil {
			return rv, err
		}
		rv.Bytes = b
	case TypeNull, TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		rv.Bytes = []byte{}
	default:
		rv.Bytes = Encode(v)
	}
	return rv, nil
}

// FromRawValue decodes the BER value of a varbind. Exception markers
// (context class, tags 0..2) become noSuchObject, noSuchInstance and
// endOfMibView values.
func FromRawValue(rv ASNber.RawValue) (Value, error) {
	typ := SMIType(byte(rv.Class<<6) | byte(rv.Tag&berTagMask))
	if rv.IsCompound || rv.Tag > berTagMask-1 {
		return Value{}, fmt.Errorf("%w: class %d tag %d constructed=%v", ErrInvalidType, rv.Class, rv.Tag, rv.IsCompound)
	}
	if typ == TypeObjectIdentifier {
		oid, err := decodeOIDContent(rv.Bytes)
		if err != nil {
			return Value{}, &ConversionError{From: typ, To: "OBJECT IDENTIFIER", Reason: err.Error()}
		}
		return Decode(typ, []byte(oid.String()))
	}
	return Decode(typ, rv.Bytes)
}

// V2Message is a decoded SNMPv2c message.
type V2Message struct {
	Community string
	PDUType   int
	PDU       SNMP_Packet_V2_PDU
}

// EncodeV2Message wraps pdu into an SNMPv2c message of the given PDU type
// (SNMPv2_REQUEST_*).
func EncodeV2Message(community string, pduType int, pdu SNMP_Packet_V2_PDU) ([]byte, error) {
	pmval, err := pduRawValue(pduType, pdu)
	if err != nil {
		return nil, err
	}
	return ASNber.Marshal(SNMP_Packet_V2{Version: 1, V2CcommunityString: []byte(community), V2VarBind: pmval})
}

// pduRawValue encodes pdu with the context-specific tag of its type, the
// form it takes inside both v2c messages and v3 scoped PDUs.
func pduRawValue(pduType int, pdu SNMP_Packet_V2_PDU) (ASNber.RawValue, error) {
	enc, err := ASNber.Marshal(pdu)
	if err != nil {
		return ASNber.RawValue{}, err
	}

	//Тип составной записи - класс Context-Specific, тег зависит от запроса
	body, err := ASNber.ExtractDataWOTagAndLen(enc)
	if err != nil {
		return ASNber.RawValue{}, err
	}
	return ASNber.RawValue{
		Class:      ASNber.ClassContextSpecific,
		IsCompound: true,
		Tag:        pduType,
		Bytes:      body,
	}, nil
}

// DecodeV2Message parses an SNMPv2c message. packet is not modified.
func DecodeV2Message(packet []byte) (V2Message, error) {
	var msg V2Message
	var peek SNMP_UnknownVersionPacket
	if _, err := ASNber.Unmarshal(packet, &peek); err != nil {
		return msg, err
	}
	if peek.Version != 1 {
		return msg, fmt.Errorf("SNMP protocol version: %d not supported", peek.Version)
	}
	var vs SNMP_Packet_V2
	if _, err := ASNber.Unmarshal(packet, &vs); err != nil {
		return msg, err
	}
	if vs.V2VarBind.Class != ASNber.ClassContextSpecific || len(vs.V2VarBind.FullBytes) == 0 {
		return msg, errors.New("empty or invalid PDU")
	}
	msg.Community = string(vs.V2CcommunityString)
	msg.PDUType = vs.V2VarBind.Tag

	// PDU приходит с тегом Context-Specific, по сути это SEQUENCE (0x30)
	full := make([]byte, len(vs.V2VarBind.FullBytes))
	copy(full, vs.V2VarBind.FullBytes)
	full[0] = 0x30
	if _, err := ASNber.Unmarshal(full, &msg.PDU); err != nil {
		return msg, err
	}
	return msg, nil
}

// wireVarBinds converts the request varbinds of pdu for the encoder.
func wireVarBinds(pdu *PDU) ([]SNMP_Packet_V2_VarBind, error) {
	out := make([]SNMP_Packet_V2_VarBind, len(pdu.VarBinds))
	for i, vb := range pdu.VarBinds {
		w, err := WireVarBind(vb)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// WireVarBind converts vb into its BER layout.
func WireVarBind(vb VarBind) (SNMP_Packet_V2_VarBind, error) {
	rv, err := ToRawValue(vb.Value)
	if err != nil {
		return SNMP_Packet_V2_VarBind{}, fmt.Errorf("varbind %s: %w", vb.OID, err)
	}
	return SNMP_Packet_V2_VarBind{RSnmpOID: vb.OID.asn(), RSnmpVar: rv}, nil
}

// VarBindFromWire decodes a varbind received on the wire. The OID is
// returned even when the value cannot be decoded.
func VarBindFromWire(w SNMP_Packet_V2_VarBind) (VarBind, error) {
	vb := VarBind{OID: oidFromASN(w.RSnmpOID)}
	v, err := FromRawValue(w.RSnmpVar)
	if err != nil {
		return vb, err
	}
	vb.Value = v
	return vb, nil
}

// bulkFields returns what goes into the error-status and error-index
// slots of the request PDU.
func bulkFields(pdu *PDU) (int32, int32) {
	if pdu.Kind != OpGetBulk {
		return 0, 0
	}
	return int32(pdu.NonRepeaters), int32(pdu.MaxRepetitions)
}
