// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег
// Author: Volkov Oleg
// License: MIT
// Лицензия: MIT
// Commercial support and custom development available.
package PowerSNMPWalk

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// USM password-to-key expands the password to one megabyte (RFC 3414 A.2).
const passwordExpansionLen = 1048576

// authHash returns the hash constructor and the truncated HMAC length of
// an AUTH_PROTOCOL_* value (RFC 3414, RFC 7860).
func authHash(authProto int) (func() hash.Hash, int) {
	switch authProto {
	case AUTH_PROTOCOL_MD5:
		return md5.New, 12
	case AUTH_PROTOCOL_SHA224:
		return sha256.New224, 16
	case AUTH_PROTOCOL_SHA256:
		return sha256.New, 24
	case AUTH_PROTOCOL_SHA384:
		return sha512.New384, 32
	case AUTH_PROTOCOL_SHA512:
		return sha512.New, 48
	}
	return sha1.New, 12
}

// makeLocalizedKeyFromBytes derives the engine-bound key:
//
//	Ku = H(password repeated to 1 MiB)
//	Kul = H(Ku | engineID | Ku)
func makeLocalizedKeyFromBytes(keyBytes []byte, engineID []byte, authProto int) []byte {
	newHash, _ := authHash(authProto)
	h := newHash()
	if len(keyBytes) == 0 {
		return nil
	}

	buf := make([]byte, 64)
	idx := 0
	for count := 0; count < passwordExpansionLen; count += len(buf) {
		for i := range buf {
			buf[i] = keyBytes[idx%len(keyBytes)]
			idx++
		}
		h.Write(buf)
	}
	ku := h.Sum(nil)

	h.Reset()
	h.Write(ku)
	h.Write(engineID)
	h.Write(ku)
	return h.Sum(nil)
}

func makeLocalizedKey(password string, engineID []byte, authProto int) []byte {
	return makeLocalizedKeyFromBytes([]byte(password), engineID, authProto)
}

// expandPrivKey fits a localized key to the cipher key size.
//
// AES192/AES256 use the Blumenthal draft extension (re-localize the key
// itself, as net-snmp and Cisco do). AES192A/AES256A use the Agent++ /
// Huawei variant: K1 | H(K1).
func expandPrivKey(ku []byte, privProto int, authProto int, engineID []byte) []byte {
	var need int
	switch privProto {
	case PRIV_PROTOCOL_DES, PRIV_PROTOCOL_AES128:
		// DES: 8 байт ключ + 8 байт pre-IV
		need = 16
	case PRIV_PROTOCOL_AES192, PRIV_PROTOCOL_AES192A:
		need = 24
	case PRIV_PROTOCOL_AES256, PRIV_PROTOCOL_AES256A:
		need = 32
	default:
		need = 16
	}
	if len(ku) >= need {
		return ku[:need]
	}

	out := make([]byte, 0, need+64)
	out = append(out, ku...)
	switch privProto {
	case PRIV_PROTOCOL_AES192A, PRIV_PROTOCOL_AES256A:
		newHash, _ := authHash(authProto)
		h := newHash()
		h.Write(ku)
		out = append(out, h.Sum(nil)...)
	default:
		for len(out) < need {
			out = append(out, makeLocalizedKeyFromBytes(out, engineID, authProto)...)
		}
	}
	return out[:need]
}

// makeDigest is the truncated HMAC over the whole message, computed with
// the auth parameters zero-filled.
func makeDigest(msg []byte, localizedKey []byte, authProto int) []byte {
	newHash, n := authHash(authProto)
	mac := hmac.New(newHash, localizedKey)
	mac.Write(msg)
	return mac.Sum(nil)[:n]
}

// authParamsLen is the size of msgAuthenticationParameters.
func authParamsLen(authProto int) int {
	_, n := authHash(authProto)
	return n
}

// verifyDigestRAW zero-fills msgAuthenticationParameters in a copy of the
// packet, recomputes the HMAC and compares in constant time.
func verifyDigestRAW(packet []byte, digest []byte, localizedKey []byte, authProto int) (bool, error) {
	offset, aplen, err := ASNber.FindSNMPv3AuthParamsOffset(packet)
	if err != nil {
		return false, err
	}
	if offset == 0 || offset+aplen > len(packet) {
		return false, errors.New("AuthParam not found")
	}

	data := make([]byte, len(packet))
	copy(data, packet)
	clear(data[offset : offset+aplen])

	return hmac.Equal(makeDigest(data, localizedKey, authProto), digest), nil
}
