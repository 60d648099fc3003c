// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег
// Author: Volkov Oleg
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
	"go.uber.org/zap"
)

// receiverV2parser decodes an SNMPv2c response to request reqid.
// Datagrams for other requests yield wrongIDError.
func receiverV2parser(log *zap.Logger, packet []byte, reqid int32) (*Response, error) {
	msg, err := DecodeV2Message(packet)
	if err != nil {
		return nil, err
	}
	if msg.PDU.RequestID != reqid {
		return nil, wrongIDError{PARCE_ERR_WRONGREQID}
	}
	if msg.PDUType != SNMPv2_REQUEST_RESPONSE {
		return nil, fmt.Errorf("unexpected PDU type %d in response", msg.PDUType)
	}
	return decodeResponsePDU(log, msg.PDU), nil
}

// decodeResponsePDU keeps every varbind in place, including the exception
// markers, so results stay index-aligned with the request.
func decodeResponsePDU(log *zap.Logger, pdu1 SNMP_Packet_V2_PDU) *Response {
	resp := &Response{
		ErrorStatus: int(pdu1.ErrorStatusRaw),
		ErrorIndex:  int(pdu1.ErrorIndexRaw),
		VarBinds:    make([]VarBind, len(pdu1.VarBinds)),
	}
	for i, datain := range pdu1.VarBinds {
		vb, err := VarBindFromWire(datain)
		if err != nil {
			log.Warn("undecodable varbind value",
				zap.Stringer("oid", vb.OID),
				zap.Int("class", datain.RSnmpVar.Class),
				zap.Int("tag", datain.RSnmpVar.Tag),
				zap.Error(err))
			vb.Value = NewNoSuchObject()
		}
		resp.VarBinds[i] = vb
	}
	return resp
}

// receiverV3parser decodes an SNMPv3 response or report: message ID check,
// digest verification, decryption, then the inner PDU.
func receiverV3parser(s *agentSession, udppayload []byte, reqid int32) (v3Decoded, error) {
	var out v3Decoded
	var SNMPrecivedPacket SNMPv3_Packet
	var RecivedGlobalParameters SNMPv3_GlobalData
	var RecivedSecurity SNMPv3_SecSeq
	var Recivedv3_PDU SNMPv3_PDU

	if _, err := ASNber.Unmarshal(udppayload, &SNMPrecivedPacket); err != nil {
		return out, err
	}
	if _, err := ASNber.Unmarshal(SNMPrecivedPacket.GlobalData.FullBytes, &RecivedGlobalParameters); err != nil {
		return out, err
	}
	if RecivedGlobalParameters.MsgID != atomic.LoadInt32(&s.params.MessageId) {
		return out, wrongIDError{PARCE_ERR_WRONGMSGID}
	}
	if len(RecivedGlobalParameters.MsgFlag) != 1 {
		return out, errors.New("invalid msgFlags")
	}
	if _, err := ASNber.Unmarshal(SNMPrecivedPacket.SecuritySettings, &RecivedSecurity); err != nil {
		return out, err
	}
	out.Security = RecivedSecurity
	flags := RecivedGlobalParameters.MsgFlag[0]

	if flags&(1<<msgFlag_Authenticated_Bit) != 0 {
		if len(s.params.LocalizedKeyAuth) == 0 {
			return out, errors.New("authenticated response but no auth key")
		}
		ok, err := verifyDigestRAW(udppayload, RecivedSecurity.AuthParams, s.params.LocalizedKeyAuth, s.params.AuthProtocol)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, errors.New("authentication Error")
		}
	}

	if flags&(1<<msgFlag_Encrypted_Bit) != 0 {
		plain, err := s.decryptScopedPDU(SNMPrecivedPacket.PtData.Bytes, RecivedSecurity)
		if err != nil {
			return out, err
		}
		if _, err := ASNber.Unmarshal(plain, &Recivedv3_PDU); err != nil {
			return out, err
		}
	} else if _, err := ASNber.Unmarshal(SNMPrecivedPacket.PtData.FullBytes, &Recivedv3_PDU); err != nil {
		return out, err
	}

	if Recivedv3_PDU.V2VarBind.Class != ASNber.ClassContextSpecific || len(Recivedv3_PDU.V2VarBind.FullBytes) == 0 {
		return out, errors.New("Received PDU Not Found")
	}
	out.PDUType = Recivedv3_PDU.V2VarBind.Tag

	//Это хак для того чтоб работал Unmarshal ASN.1 правильно:
	//PDU приходит с тегом Context-Specific, а по сути это SEQUENCE (0x30)
	full := make([]byte, len(Recivedv3_PDU.V2VarBind.FullBytes))
	copy(full, Recivedv3_PDU.V2VarBind.FullBytes)
	full[0] = 0x30
	var pdu1 SNMP_Packet_V2_PDU
	if _, err := ASNber.Unmarshal(full, &pdu1); err != nil {
		return out, err
	}
	// Report может прийти с другим request-id
	if out.PDUType != SNMPv2_REQUEST_REPORT && pdu1.RequestID != reqid {
		return out, wrongIDError{PARCE_ERR_WRONGREQID}
	}
	out.Response = *decodeResponsePDU(s.log, pdu1)
	return out, nil
}

func (s *agentSession) decryptScopedPDU(data []byte, sec SNMPv3_SecSeq) ([]byte, error) {
	salt := sec.PrivParams
	if len(salt) != 8 {
		return nil, errors.New("security Parameter length != 8")
	}
	switch s.params.PrivProtocol {
	case PRIV_PROTOCOL_AES128, PRIV_PROTOCOL_AES192, PRIV_PROTOCOL_AES256, PRIV_PROTOCOL_AES192A, PRIV_PROTOCOL_AES256A:
		//IV для AES: Boots + Time + соль из PrivParams
		return decryptAESCFB(data, s.params.LocalizedKeyPriv, aesIV(sec.Boots, sec.Time, salt))
	case PRIV_PROTOCOL_DES:
		if len(s.params.LocalizedKeyPriv) < 16 {
			return nil, errors.New("localized key for DES must be 16 or more bytes")
		}
		return decryptDES(data, s.params.LocalizedKeyPriv[:8], desIV(s.params.LocalizedKeyPriv, salt))
	}
	return nil, errors.New("encrypted response but privacy is not configured")
}

// aesIV is boots | time | salt (RFC 3826 §3.1.2.1).
func aesIV(boots, engineTime int32, salt []byte) []byte {
	iv := make([]byte, 16)
	binary.BigEndian.PutUint32(iv[0:4], uint32(boots))
	binary.BigEndian.PutUint32(iv[4:8], uint32(engineTime))
	copy(iv[8:], salt)
	return iv
}

// desIV is the pre-IV (last 8 bytes of the 16 byte key) XOR salt.
func desIV(key, salt []byte) []byte {
	iv := make([]byte, 8)
	for i := range iv {
		iv[i] = key[8+i] ^ salt[i]
	}
	return iv
}
