// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// AgentEndpoint describes one SNMP agent and how to talk to it.
// It is a plain value: the library copies and normalizes it but never
// modifies the caller's instance.
type AgentEndpoint struct {
	Address string // IP address or host name
	Port    int    // 0 means 161
	Version int    // 2 (v2c) or 3

	// SNMPv2c
	Community string

	// SNMPv3 USM
	Username     string
	AuthProtocol string // md5, sha, sha224, sha256, sha384, sha512
	AuthKey      string
	PrivProtocol string // des, aes, aes192, aes256, aes192a, aes256a
	PrivKey      string
	ContextName  string

	Timeout time.Duration // per attempt, grows with each retry
	Retries int           // extra attempts after the first one

	// MaxVarBindsPerPDU caps the varbinds of one request, 0 for no cap.
	MaxVarBindsPerPDU int
	// MaxRepetitions is used for GETBULK requests.
	MaxRepetitions int
}

// Validate checks the endpoint the way the session constructor does.
func (e AgentEndpoint) Validate() error {
	if strings.TrimSpace(e.Address) == "" || strings.ContainsAny(e.Address, " \t/") {
		return fmt.Errorf("wrong agent address %q", e.Address)
	}
	if e.Port != 0 && (e.Port < 1 || e.Port > 65535) {
		return fmt.Errorf("wrong port number %d, must be from 1 to 65535", e.Port)
	}
	if e.Version != 2 && e.Version != 3 {
		return fmt.Errorf("version error: %d", e.Version)
	}
	if e.MaxVarBindsPerPDU < 0 {
		return errors.New("max varbinds per PDU must not be negative")
	}

	if e.Version == 2 {
		if len(e.Community) == 0 {
			return errors.New("for version 2, snmp community is required")
		}
		return nil
	}

	if len(e.Username) == 0 {
		return errors.New("for version 3, USM user is required")
	}
	if len(e.PrivProtocol) > 0 && len(e.AuthProtocol) == 0 {
		return errors.New("priv protocol accepted only with auth protocol")
	}
	_, auth, priv, err := setAuthPrivParamsStToInt(e.AuthProtocol, e.AuthKey, e.PrivProtocol, e.PrivKey)
	if err != nil {
		return err
	}
	if auth != AUTH_PROTOCOL_NONE && len(e.AuthKey) < 8 {
		return errors.New("auth key too short")
	}
	if priv != PRIV_PROTOCOL_NONE && len(e.PrivKey) < 8 {
		return errors.New("priv key too short")
	}
	return nil
}

// normalized returns a copy with library defaults applied.
func (e AgentEndpoint) normalized() AgentEndpoint {
	if e.Port == 0 {
		e.Port = SNMP_DEFAULTPORT
	}
	if e.Retries < 0 || e.Retries > SNMP_MAXIMUM_RETRY {
		e.Retries = SNMP_DEFAULTRETRY
	}
	if e.Timeout <= 0 {
		e.Timeout = SNMP_DEFAULTTIMEOUT_MS * time.Millisecond
	}
	if e.Timeout > SNMP_MAXTIMEOUT_MS*time.Millisecond {
		e.Timeout = SNMP_MAXTIMEOUT_MS * time.Millisecond
	}
	if e.MaxRepetitions <= 0 || e.MaxRepetitions > int(SNMP_MAXREPETITION) {
		e.MaxRepetitions = int(SNMP_DEFAULTREPETITION)
	}
	return e
}

// HostPort returns the dial address.
func (e AgentEndpoint) HostPort() string {
	port := e.Port
	if port == 0 {
		port = SNMP_DEFAULTPORT
	}
	return net.JoinHostPort(e.Address, strconv.Itoa(port))
}

// Key identifies the transport session serving this endpoint. Endpoints
// with equal keys share a socket and, for v3, the discovered engine state.
func (e AgentEndpoint) Key() string {
	n := e.normalized()
	var b strings.Builder
	b.WriteString(n.HostPort())
	b.WriteString("|v")
	b.WriteString(strconv.Itoa(n.Version))
	b.WriteByte('|')
	if n.Version == 2 {
		b.WriteString(n.Community)
	} else {
		b.WriteString(strings.Join([]string{n.Username, strings.ToLower(n.AuthProtocol), n.AuthKey,
			strings.ToLower(n.PrivProtocol), n.PrivKey, n.ContextName}, "|"))
	}
	return b.String()
}

// String is safe for logs: no community or keys.
func (e AgentEndpoint) String() string {
	if e.Version == 3 {
		return fmt.Sprintf("%s v3 user=%s", e.HostPort(), e.Username)
	}
	return fmt.Sprintf("%s v2c", e.HostPort())
}

// setAuthPrivParamsStToInt maps the USM protocol names to their numeric
// codes and derives the security level.
func setAuthPrivParamsStToInt(authproto string, authkey string, privproto string, privkey string) (seclevel int, intauth int, intpriv int, err error) {
	seclevel = SECLEVEL_NOAUTH_NOPRIV
	switch strings.ToLower(strings.TrimSpace(authproto)) {
	case "":
		intauth = AUTH_PROTOCOL_NONE
	case "md5":
		intauth = AUTH_PROTOCOL_MD5
	case "sha":
		intauth = AUTH_PROTOCOL_SHA
	case "sha224":
		intauth = AUTH_PROTOCOL_SHA224
	case "sha256":
		intauth = AUTH_PROTOCOL_SHA256
	case "sha384":
		intauth = AUTH_PROTOCOL_SHA384
	case "sha512":
		intauth = AUTH_PROTOCOL_SHA512
	default:
		return 0, 0, 0, fmt.Errorf("unsupported auth protocol: %s", authproto)
	}
	if intauth == AUTH_PROTOCOL_NONE {
		return seclevel, intauth, PRIV_PROTOCOL_NONE, nil
	}
	seclevel = SECLEVEL_AUTHNOPRIV
	if len(authkey) == 0 {
		return 0, 0, 0, errors.New("auth key must be greater than 0 symbols")
	}

	switch strings.ToLower(strings.TrimSpace(privproto)) {
	case "":
		intpriv = PRIV_PROTOCOL_NONE
	case "aes", "aes128":
		intpriv = PRIV_PROTOCOL_AES128
	case "aes192":
		intpriv = PRIV_PROTOCOL_AES192
	case "aes256":
		intpriv = PRIV_PROTOCOL_AES256
	case "aes192a":
		intpriv = PRIV_PROTOCOL_AES192A
	case "aes256a":
		intpriv = PRIV_PROTOCOL_AES256A
	case "des":
		intpriv = PRIV_PROTOCOL_DES
	default:
		return 0, 0, 0, fmt.Errorf("unsupported priv protocol: %s", privproto)
	}
	if intpriv != PRIV_PROTOCOL_NONE {
		seclevel = SECLEVEL_AUTHPRIV
		if len(privkey) == 0 {
			return 0, 0, 0, errors.New("priv key must be greater than 0 symbols")
		}
	}
	return seclevel, intauth, intpriv, nil
}
