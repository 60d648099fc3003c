// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
	"go.uber.org/zap"
)

// discoverEngine learns the authoritative engine ID, boots and time of the
// agent and localizes the USM keys to it. Caller holds cmux.
//
// The probe is an unauthenticated GET of sysDescr.0; the agent answers with
// a usmStatsUnknownEngineIDs report whose security header carries the
// engine parameters. Boots and time may come back as zero, in that case
// they are learned from the first notInTimeWindow report.
func (s *agentSession) discoverEngine(ctx context.Context) error {
	seclevel, aproto, pproto, err := setAuthPrivParamsStToInt(s.ep.AuthProtocol, s.ep.AuthKey, s.ep.PrivProtocol, s.ep.PrivKey)
	if err != nil {
		return err
	}

	p := &s.params
	p.SecurityLevel = seclevel
	p.AuthProtocol = aproto
	p.PrivProtocol = pproto
	p.EngineID = nil
	p.ContextEngineId = nil
	p.LocalizedKeyAuth = nil
	p.LocalizedKeyPriv = nil
	p.DiscoveredEngineId = false
	p.DiscoveredTimeBoots = false
	atomic.StoreInt32(&p.RBoots, 0)
	atomic.StoreInt32(&p.RTime, 0)
	atomic.StoreUint32(&p.DataFlag, 1<<msgFlag_Reportable_Bit)

	probe := &PDU{Kind: OpGet, VarBinds: []VarBind{{OID: oidSysDescr, Value: NewNull()}}}
	rts, err := s.sendV3(ctx, probe, true)
	if err != nil {
		return err
	}
	if len(rts.Security.AuthEng) == 0 {
		return fmt.Errorf("%w: no engine ID in response", ErrEngineDiscovery)
	}
	if rts.PDUType == SNMPv2_REQUEST_REPORT && len(rts.Response.VarBinds) > 0 &&
		!rts.Response.VarBinds[0].OID.Equal(oidUsmStatsUnknownEngineIDs) {
		return fmt.Errorf("%w: %w", ErrEngineDiscovery, reportError(rts))
	}

	p.EngineID = slices.Clone(rts.Security.AuthEng)
	p.ContextEngineId = p.EngineID
	p.DiscoveredEngineId = true
	s.log.Debug("discovered engine",
		zap.String("engine_id", hex.EncodeToString(p.EngineID)),
		zap.Int32("boots", rts.Security.Boots),
		zap.Int32("time", rts.Security.Time))

	if seclevel > SECLEVEL_NOAUTH_NOPRIV {
		p.LocalizedKeyAuth = makeLocalizedKey(s.ep.AuthKey, p.EngineID, aproto)
		atomic.OrUint32(&p.DataFlag, 1<<msgFlag_Authenticated_Bit)
	}
	if seclevel == SECLEVEL_AUTHPRIV {
		Lkey := makeLocalizedKey(s.ep.PrivKey, p.EngineID, aproto)
		p.LocalizedKeyPriv = expandPrivKey(Lkey, pproto, aproto, p.EngineID)
		p.PrivParameter = rand.Uint64()
		p.PrivParameterDes = rand.Uint32()
		atomic.OrUint32(&p.DataFlag, 1<<msgFlag_Encrypted_Bit)
	}
	if rts.Security.Boots > 0 || rts.Security.Time > 0 {
		s.syncTime(rts.Security.Boots, rts.Security.Time)
	}
	return nil
}

func (s *agentSession) syncTime(boots, engineTime int32) {
	s.params.DiscoveredTimeBoots = true
	s.params.TimeSyncedAt = time.Now()
	atomic.StoreInt32(&s.params.RBoots, boots)
	atomic.StoreInt32(&s.params.RTime, engineTime)
}

// engineTime estimates the agent clock from the last synchronisation.
func (s *agentSession) engineTime() int32 {
	t := atomic.LoadInt32(&s.params.RTime)
	if !s.params.DiscoveredTimeBoots {
		return t
	}
	return t + int32(time.Since(s.params.TimeSyncedAt)/time.Second)
}

// makeMessage builds an SNMPv3 message with the session's security level.
//
// The digest is computed over the finished message with zero-filled auth
// parameters and then put in place, which needs a second marshal.
func (s *agentSession) makeMessage(vbs []SNMP_Packet_V2_VarBind, reqType int, requestID int32, nonRepeaters int32, maxRepetitions int32) ([]byte, error) {
	p := &s.params
	flags := atomic.LoadUint32(&p.DataFlag)
	boots := atomic.LoadInt32(&p.RBoots)
	engineTime := s.engineTime()

	var SNMP_Packet SNMPv3_Packet
	SNMP_Packet.Version = 3
	GlobalData, err := ASNber.Marshal(SNMPv3_GlobalData{
		MsgID:            atomic.LoadInt32(&p.MessageId),
		MsgMaxSize:       int(SNMP_DEFAULTMSGSITE),
		MsgFlag:          []byte{byte(flags)},
		MsgSecurityModel: msgSecurityModel_USM,
	})
	if err != nil {
		return nil, err
	}
	SNMP_Packet.GlobalData.FullBytes = GlobalData

	SNMP_SecuritySequence := SNMPv3_SecSeq{
		AuthEng: p.EngineID,
		Boots:   boots,
		Time:    engineTime,
		User:    []byte(s.ep.Username),
	}
	authenticated := flags&(1<<msgFlag_Authenticated_Bit) != 0
	if authenticated {
		SNMP_SecuritySequence.AuthParams = make([]byte, authParamsLen(p.AuthProtocol))
	}

	encrypted := flags&(1<<msgFlag_Encrypted_Bit) != 0
	var privKey, IV []byte
	if encrypted {
		Salt := make([]byte, 8)
		switch p.PrivProtocol {
		case PRIV_PROTOCOL_AES128, PRIV_PROTOCOL_AES192, PRIV_PROTOCOL_AES256, PRIV_PROTOCOL_AES192A, PRIV_PROTOCOL_AES256A:
			//64 битный счетчик, начальное значение случайное
			binary.BigEndian.PutUint64(Salt, atomic.AddUint64(&p.PrivParameter, 1))
			privKey = p.LocalizedKeyPriv
			IV = aesIV(boots, engineTime, Salt)
		case PRIV_PROTOCOL_DES:
			//Boots + 32 битный счетчик
			if len(p.LocalizedKeyPriv) < 16 {
				return nil, errors.New("localized key for DES must be 16 or more bytes")
			}
			binary.BigEndian.PutUint32(Salt[0:4], uint32(boots))
			binary.BigEndian.PutUint32(Salt[4:8], atomic.AddUint32(&p.PrivParameterDes, 1))
			privKey = p.LocalizedKeyPriv[:8]
			IV = desIV(p.LocalizedKeyPriv, Salt)
		default:
			return nil, errors.New("encryption flag is set but priv protocol is unknown")
		}
		SNMP_SecuritySequence.PrivParams = Salt
	}

	SecuritylData, err := ASNber.Marshal(SNMP_SecuritySequence)
	if err != nil {
		return nil, err
	}
	SNMP_Packet.SecuritySettings = SecuritylData

	pmval, err := pduRawValue(reqType, SNMP_Packet_V2_PDU{
		RequestID:      requestID,
		ErrorStatusRaw: nonRepeaters,
		ErrorIndexRaw:  maxRepetitions,
		VarBinds:       vbs,
	})
	if err != nil {
		return nil, err
	}
	V3PduMarshal, err := ASNber.Marshal(SNMPv3_PDU{
		ContextEngineId: p.ContextEngineId,
		ContextName:     []byte(s.ep.ContextName),
		V2VarBind:       pmval,
	})
	if err != nil {
		return nil, err
	}

	if encrypted {
		var EncryptedPdu []byte
		if p.PrivProtocol == PRIV_PROTOCOL_DES {
			EncryptedPdu, err = encryptDES(V3PduMarshal, privKey, IV)
		} else {
			EncryptedPdu, err = encryptAESCFB(V3PduMarshal, privKey, IV)
		}
		if err != nil {
			return nil, fmt.Errorf("encryption error: %w", err)
		}
		SNMP_Packet.PtData.Tag = 0x04
		SNMP_Packet.PtData.Bytes = EncryptedPdu
	} else {
		SNMP_Packet.PtData.FullBytes = V3PduMarshal
	}

	SNMPv3Packet, err := ASNber.Marshal(SNMP_Packet)
	if err != nil {
		return nil, err
	}
	if !authenticated {
		return SNMPv3Packet, nil
	}

	SNMP_SecuritySequence.AuthParams = makeDigest(SNMPv3Packet, p.LocalizedKeyAuth, p.AuthProtocol)
	if SNMP_Packet.SecuritySettings, err = ASNber.Marshal(SNMP_SecuritySequence); err != nil {
		return nil, err
	}
	return ASNber.Marshal(SNMP_Packet)
}

// sendV3 sends pdu with fresh message and request IDs. Caller holds cmux.
func (s *agentSession) sendV3(ctx context.Context, pdu *PDU, expectResponse bool) (v3Decoded, error) {
	var rts v3Decoded
	vbs, err := wireVarBinds(pdu)
	if err != nil {
		return rts, err
	}
	nonRepeaters, maxRepetitions := bulkFields(pdu)
	atomic.AddInt32(&s.params.MessageId, 1)
	reqid := atomic.AddInt32(&s.params.MessageIDv2, 1)

	packet, err := s.makeMessage(vbs, int(pdu.Kind), reqid, nonRepeaters, maxRepetitions)
	if err != nil {
		return rts, err
	}
	err = s.exchange(ctx, packet, expectResponse, func(b []byte) error {
		d, perr := receiverV3parser(s, b, reqid)
		if perr == nil {
			rts = d
		}
		return perr
	})
	return rts, err
}

// requestV3 runs one SNMPv3 request. A notInTimeWindow report resyncs the
// engine clock and the request is sent once more; other reports become
// errors. Caller holds cmux.
func (s *agentSession) requestV3(ctx context.Context, pdu *PDU, expectResponse bool) (*Response, error) {
	rts, err := s.sendV3(ctx, pdu, expectResponse)
	if err != nil || !expectResponse {
		return nil, err
	}

	if rts.PDUType == SNMPv2_REQUEST_REPORT {
		if len(rts.Response.VarBinds) == 0 || !rts.Response.VarBinds[0].OID.Equal(oidUsmStatsNotInTimeWindows) {
			err = reportError(rts)
			if errors.Is(err, ErrEngineDiscovery) {
				// агент перезапущен с другим Engine ID, следующий запрос повторит Discovery
				s.params.DiscoveredEngineId = false
			}
			return nil, err
		}
		// Некоторые агенты при Discovery не присылают Boots и Time,
		// их можно выставить после получения ошибки NoInTime
		if rts.Security.Boots == 0 && rts.Security.Time == 0 {
			return nil, fmt.Errorf("%w: boots and time are zero", ErrNotInTimeWindow)
		}
		s.log.Debug("engine time resync",
			zap.Int32("boots", rts.Security.Boots),
			zap.Int32("time", rts.Security.Time))
		s.syncTime(rts.Security.Boots, rts.Security.Time)

		//Повторный запрос после синхронизации
		rts, err = s.sendV3(ctx, pdu, true)
		if err != nil {
			return nil, err
		}
		if rts.PDUType == SNMPv2_REQUEST_REPORT {
			return nil, fmt.Errorf("repeat request failed: %w", reportError(rts))
		}
	}
	if rts.PDUType != SNMPv2_REQUEST_RESPONSE {
		return nil, fmt.Errorf("unexpected PDU type %d in response", rts.PDUType)
	}
	return &rts.Response, nil
}

// reportError maps the counter in a REPORT PDU to an error.
func reportError(rts v3Decoded) error {
	if len(rts.Response.VarBinds) == 0 {
		return errors.New("empty report")
	}
	oid := rts.Response.VarBinds[0].OID
	switch {
	case oid.Equal(oidUsmStatsUnknownUserNames):
		return ErrUnknownUserName
	case oid.Equal(oidUsmStatsWrongDigests):
		return ErrWrongDigest
	case oid.Equal(oidUsmStatsDecryptionErrors):
		return ErrDecryption
	case oid.Equal(oidSnmpUnknownContexts):
		return ErrUnknownContext
	case oid.Equal(oidUsmStatsNotInTimeWindows):
		return ErrNotInTimeWindow
	case oid.Equal(oidUsmStatsUnknownEngineIDs):
		return ErrEngineDiscovery
	}
	return fmt.Errorf("unknown REPORT OID: %s", oid)
}
