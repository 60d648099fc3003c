// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"net"
	"sync"
	"time"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
	"go.uber.org/zap"
)

// BER layouts of SNMP messages (RFC 3416, RFC 3412). Field order matters:
// ASNber marshals structs as SEQUENCE in declaration order.

type SNMP_UnknownVersionPacket struct {
	Version int
	PtData  ASNber.RawValue
}

// SNMP_Packet_V2 is an SNMPv2c message. Version is 1 on the wire.
type SNMP_Packet_V2 struct {
	Version            int
	V2CcommunityString []byte
	V2VarBind          ASNber.RawValue
}

// SNMP_Packet_V2_PDU is the body of any v2 PDU. For GETBULK the error
// fields carry non-repeaters and max-repetitions.
type SNMP_Packet_V2_PDU struct {
	RequestID      int32
	ErrorStatusRaw int32
	ErrorIndexRaw  int32
	VarBinds       []SNMP_Packet_V2_VarBind
}

type SNMP_Packet_V2_VarBind struct {
	RSnmpOID ASNber.ObjectIdentifier
	RSnmpVar ASNber.RawValue
}

type SNMPv3_Packet struct {
	Version          int
	GlobalData       ASNber.RawValue
	SecuritySettings []byte
	PtData           ASNber.RawValue
}

type SNMPv3_GlobalData struct {
	MsgID            int32
	MsgMaxSize       int
	MsgFlag          []byte
	MsgSecurityModel int
}

// SNMPv3_SecSeq is UsmSecurityParameters.
type SNMPv3_SecSeq struct {
	AuthEng    []byte
	Boots      int32
	Time       int32
	User       []byte
	AuthParams []byte
	PrivParams []byte
}

// SNMPv3_PDU is the ScopedPDU.
type SNMPv3_PDU struct {
	ContextEngineId []byte
	ContextName     []byte
	V2VarBind       ASNber.RawValue
}

// v3Decoded is what the v3 parser hands back to the request loop.
type v3Decoded struct {
	PDUType  int
	Security SNMPv3_SecSeq
	Response Response
}

// agentSession is the cached per-endpoint state of the BER transport.
// All fields below cmux are guarded by it.
type agentSession struct {
	ep  AgentEndpoint
	log *zap.Logger

	cmux   sync.Mutex
	conn   net.Conn
	params sessionParams
}

// Данные SNMP о текущей сессии
type sessionParams struct {
	PrivParameter    uint64
	PrivParameterDes uint32
	MessageId        int32
	MessageIDv2      int32
	RBoots           int32
	RTime            int32
	DataFlag         uint32

	// Момент получения RBoots/RTime, от него отсчитывается время агента
	TimeSyncedAt time.Time

	// Authoritative Engine ID (RFC 3414), получается через Discovery
	EngineID            []byte
	ContextEngineId     []byte
	DiscoveredEngineId  bool
	DiscoveredTimeBoots bool

	AuthProtocol     int
	PrivProtocol     int
	SecurityLevel    int
	LocalizedKeyAuth []byte
	LocalizedKeyPriv []byte
}
