//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"strings"
	"testing"
	"time"
)

func v3Endpoint() AgentEndpoint {
	return AgentEndpoint{
		Address:      "192.168.0.1",
		Version:      3,
		Username:     "snmpuser",
		AuthProtocol: "sha",
		AuthKey:      "pass123456",
		PrivProtocol: "aes",
		PrivKey:      "priv123456",
	}
}

func TestAgentEndpointValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*AgentEndpoint)
		wantErr string
	}{
		{"v3 authPriv", func(*AgentEndpoint) {}, ""},
		{"v3 noAuthNoPriv", func(e *AgentEndpoint) { e.AuthProtocol, e.AuthKey, e.PrivProtocol, e.PrivKey = "", "", "", "" }, ""},
		{"v2c", func(e *AgentEndpoint) { *e = AgentEndpoint{Address: "switch1.lab", Version: 2, Community: "public"} }, ""},
		{"no address", func(e *AgentEndpoint) { e.Address = " " }, "wrong agent address"},
		{"address with path", func(e *AgentEndpoint) { e.Address = "10.0.0.1/24" }, "wrong agent address"},
		{"bad port", func(e *AgentEndpoint) { e.Port = 70000 }, "wrong port"},
		{"v1", func(e *AgentEndpoint) { e.Version = 1 }, "version"},
		{"v2c without community", func(e *AgentEndpoint) { e.Version = 2 }, "community"},
		{"v3 without user", func(e *AgentEndpoint) { e.Username = "" }, "USM user"},
		{"priv without auth", func(e *AgentEndpoint) { e.AuthProtocol = "" }, "priv protocol accepted only"},
		{"short auth key", func(e *AgentEndpoint) { e.AuthKey = "short" }, "auth key too short"},
		{"short priv key", func(e *AgentEndpoint) { e.PrivKey = "short" }, "priv key too short"},
		{"unknown auth", func(e *AgentEndpoint) { e.AuthProtocol = "sha3" }, "unsupported auth"},
		{"negative max varbinds", func(e *AgentEndpoint) { e.MaxVarBindsPerPDU = -1 }, "max varbinds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := v3Endpoint()
			tt.modify(&ep)
			err := ep.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestAgentEndpointNormalized(t *testing.T) {
	ep := v3Endpoint()
	ep.Retries = -1
	ep.Timeout = time.Hour
	ep.MaxRepetitions = 1000
	n := ep.normalized()
	if n.Port != SNMP_DEFAULTPORT || n.Retries != SNMP_DEFAULTRETRY ||
		n.Timeout != SNMP_MAXTIMEOUT_MS*time.Millisecond || n.MaxRepetitions != int(SNMP_DEFAULTREPETITION) {
		t.Errorf("normalized = %+v", n)
	}
	if got := (AgentEndpoint{Timeout: 15 * time.Second}).normalized().Timeout; got != 10*time.Second {
		t.Errorf("15s timeout normalized to %s, want 10s", got)
	}
	if got := (AgentEndpoint{}).normalized().Timeout; got != 300*time.Millisecond {
		t.Errorf("zero timeout normalized to %s, want 300ms", got)
	}
	if ep.Port != 0 {
		t.Error("normalized modified the receiver")
	}

	ep.Retries, ep.Timeout, ep.MaxRepetitions = 0, 2*time.Second, 40
	n = ep.normalized()
	if n.Retries != 0 || n.Timeout != 2*time.Second || n.MaxRepetitions != 40 {
		t.Errorf("valid settings were replaced: %+v", n)
	}
}

func TestAgentEndpointKeyAndString(t *testing.T) {
	a := v3Endpoint()
	b := v3Endpoint()
	b.Port = 161
	b.Timeout = time.Second
	if a.Key() != b.Key() {
		t.Error("default port or timeout changed the session key")
	}
	b.PrivKey = "other12345"
	if a.Key() == b.Key() {
		t.Error("different keys share a session")
	}

	if got := a.HostPort(); got != "192.168.0.1:161" {
		t.Errorf("HostPort = %s", got)
	}
	if got := (AgentEndpoint{Address: "fe80::1", Port: 1161}).HostPort(); got != "[fe80::1]:1161" {
		t.Errorf("IPv6 HostPort = %s", got)
	}

	s := a.String()
	if strings.Contains(s, a.AuthKey) || strings.Contains(s, a.PrivKey) {
		t.Errorf("String leaks secrets: %s", s)
	}
	v2 := AgentEndpoint{Address: "10.0.0.1", Version: 2, Community: "s3cret"}
	if strings.Contains(v2.String(), "s3cret") {
		t.Errorf("String leaks the community: %s", v2)
	}
}
