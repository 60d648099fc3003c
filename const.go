// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

// ASN.1/BER identifier octet layout.
// Bits 7-6: Class (Universal=00, Application=01, Context=10, Private=11)
// Bit 5: Constructed flag
// Bits 4-0: Tag Number
//
// Example: Class=0x01 (Application), Tag=0x03 → 0x43 (APPLICATION 3 = SNMP TIMETICKS)

const (
	berClassMask       = 0xC0
	berConstructedFlag = 0x20
	berTagMask         = 0x1F
)

const (
	// SNMP Application Types (Class=1), tag numbers only
	SNMP_type_IPADDR    = 0
	SNMP_type_COUNTER32 = 1
	SNMP_type_GAUGE32   = 2
	SNMP_type_TIMETICKS = 3
	SNMP_type_OPAQUE    = 4
	SNMP_type_COUNTER64 = 6

	// Limits & Defaults
	SNMP_MAXIMUMWALK              = 1000000
	SNMP_BUFFERSIZE               = 65535
	SNMP_MAXTIMEOUT_MS            = 10000
	SNMP_DEFAULTTIMEOUT_MS        = 300
	SNMP_MAXIMUM_RETRY            = 10
	SNMP_DEFAULTRETRY             = 3
	SNMP_MAXREPETITION     uint16 = 80
	SNMP_DEFAULTREPETITION uint16 = 25
	SNMP_DEFAULTMSGSITE    uint16 = 1360
	SNMP_DEFAULTPORT              = 161

	// SNMPv2 Exception Tags (ContextSpecific)
	tagERR_noSuchObject   = 0
	tagERR_noSuchInstance = 1
	tagERR_EndOfMib       = 2
)

const (
	// SNMPv3 Message Flags (msgFlags byte)
	msgFlag_Reportable_Bit    = 2
	msgFlag_Encrypted_Bit     = 1
	msgFlag_Authenticated_Bit = 0
)

const (
	// SNMPv3 Security Models
	msgSecurityModel_USM = 3
)

const (
	// SNMPv2 PDU Types (RFC3416)
	SNMPv2_REQUEST_GET      = 0
	SNMPv2_REQUEST_GETNEXT  = 1
	SNMPv2_REQUEST_RESPONSE = 2
	SNMPv2_REQUEST_SET      = 3
	SNMPv2_REQUEST_GETBULK  = 5
	SNMPv2_REQUEST_REPORT   = 8
)

const (
	// SNMPv3 USM Authentication Protocols
	AUTH_PROTOCOL_NONE   = 0
	AUTH_PROTOCOL_MD5    = 1
	AUTH_PROTOCOL_SHA    = 2
	AUTH_PROTOCOL_SHA224 = 3
	AUTH_PROTOCOL_SHA256 = 4
	AUTH_PROTOCOL_SHA384 = 5
	AUTH_PROTOCOL_SHA512 = 6
)

const (
	// SNMPv3 USM Privacy Protocols
	PRIV_PROTOCOL_NONE    = 0
	PRIV_PROTOCOL_AES128  = 1
	PRIV_PROTOCOL_DES     = 2
	PRIV_PROTOCOL_AES192  = 3
	PRIV_PROTOCOL_AES256  = 4
	PRIV_PROTOCOL_AES192A = 5
	PRIV_PROTOCOL_AES256A = 6
)

const (
	// SNMPv3 Security Levels (RFC3411)
	SECLEVEL_NOAUTH_NOPRIV = 0
	SECLEVEL_AUTHNOPRIV    = 1
	SECLEVEL_AUTHPRIV      = 2
)

const (
	// Internal Parser Errors
	PARCE_ERR_WRONGMSGID = 0xf1
	PARCE_ERR_WRONGREQID = 0xf2
)

const (
	// SNMP Error Status Codes (RFC3416 §4.1.2.1)
	SNMP_ErrNoError             = 0x00
	SNMP_ErrTooBig              = 0x01
	SNMP_ErrNoSuchName          = 0x02
	SNMP_ErrBadValue            = 0x03
	SNMP_ErrReadOnly            = 0x04
	SNMP_ErrGenErr              = 0x05
	SNMP_ErrNoAccess            = 0x06
	SNMP_ErrWrongType           = 0x07
	SNMP_ErrWrongLength         = 0x08
	SNMP_ErrWrongEncoding       = 0x09
	SNMP_ErrWrongValue          = 0x0A
	SNMP_ErrNoCreation          = 0x0B
	SNMP_ErrInconsistentValue   = 0x0C
	SNMP_ErrResourceUnavailable = 0x0D
	SNMP_ErrCommitFailed        = 0x0E
	SNMP_ErrUndoFailed          = 0x0F
	SNMP_ErrAuthorizationError  = 0x10
	SNMP_ErrNotWritable         = 0x11
	SNMP_ErrInconsistentName    = 0x12
)

// USM report counters (RFC 3414 §5), returned in REPORT PDUs.
var (
	oidUsmStatsNotInTimeWindows = OID{1, 3, 6, 1, 6, 3, 15, 1, 1, 2, 0}
	oidUsmStatsUnknownUserNames = OID{1, 3, 6, 1, 6, 3, 15, 1, 1, 3, 0}
	oidUsmStatsUnknownEngineIDs = OID{1, 3, 6, 1, 6, 3, 15, 1, 1, 4, 0}
	oidUsmStatsWrongDigests     = OID{1, 3, 6, 1, 6, 3, 15, 1, 1, 5, 0}
	oidUsmStatsDecryptionErrors = OID{1, 3, 6, 1, 6, 3, 15, 1, 1, 6, 0}
	oidSnmpUnknownContexts      = OID{1, 3, 6, 1, 6, 3, 12, 1, 5, 0}
	oidSysDescr                 = OID{1, 3, 6, 1, 2, 1, 1, 1, 0}
)
