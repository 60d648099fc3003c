//go:build integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// Run against a real device:
//
//	go test -tags integration -run TestDevice -h 192.168.0.1 -c private \
//	    -u snmpuser -a sha -A pass123456 -x aes -X priv123456
var (
	Host             = flag.String("h", "", "Switch or routers IP")
	SNMPuser         = flag.String("u", "", "SNMP v3 USER")
	SNMPcommunity    = flag.String("c", "", "Mandatory for version 2, SNMP read-write community name")
	SNMPv3Context    = flag.String("context", "", "SNMP v3 context")
	SNMPauthProtocol = flag.String("a", "", "SNMP auth protocol")
	SNMPauthPassword = flag.String("A", "", "SNMP auth password")
	SNMPprivProtocol = flag.String("x", "", "SNMP priv protocol")
	SNMPprivPassword = flag.String("X", "", "SNMP priv password")
)

var (
	sysLocation = MustParseOID(".1.3.6.1.2.1.1.6.0")
	sysMissing  = MustParseOID(".1.3.6.1.2.1.1.99.0")
	sysName     = MustParseOID(".1.3.6.1.2.1.1.5.0")
	ifDescr     = MustParseOID(".1.3.6.1.2.1.2.2.1.2")
	ifInOctets  = MustParseOID(".1.3.6.1.2.1.2.2.1.10")
	ifOutOctets = MustParseOID(".1.3.6.1.2.1.2.2.1.16")
)

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

func deviceEndpoints(t *testing.T) map[string]AgentEndpoint {
	t.Helper()
	if *Host == "" {
		t.Skip("no device given (-h)")
	}
	eps := map[string]AgentEndpoint{}
	if *SNMPcommunity != "" {
		eps["v2c"] = AgentEndpoint{
			Address:   *Host,
			Version:   2,
			Community: *SNMPcommunity,
			Timeout:   500 * time.Millisecond,
			Retries:   SNMP_DEFAULTRETRY,
		}
	}
	if *SNMPuser != "" {
		eps["v3"] = AgentEndpoint{
			Address:      *Host,
			Version:      3,
			Username:     *SNMPuser,
			AuthProtocol: *SNMPauthProtocol,
			AuthKey:      *SNMPauthPassword,
			PrivProtocol: *SNMPprivProtocol,
			PrivKey:      *SNMPprivPassword,
			ContextName:  *SNMPv3Context,
			Timeout:      500 * time.Millisecond,
			Retries:      SNMP_DEFAULTRETRY,
		}
	}
	if len(eps) == 0 {
		t.Skip("neither community (-c) nor user (-u) given")
	}
	return eps
}

func TestDevice_Get_Set_Walk(t *testing.T) {
	eps := deviceEndpoints(t)
	for _, name := range []string{StrategyPowerC, StrategyGoSNMP} {
		for version, ep := range eps {
			t.Run(name+"/"+version, func(t *testing.T) {
				log := zaptest.NewLogger(t)
				s, err := NewStrategy(name, WithLogger(log))
				if err != nil {
					t.Fatal(err)
				}
				defer s.Close()
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()

				t.Log("-------- Get --------")
				oids := []OID{sysLocation, sysMissing, sysName}
				values, err := s.Get(ctx, ep, oids)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				for i, v := range values {
					t.Log(oids[i], "=", v.Type(), v.DisplayString())
				}
				if !values[1].IsError() {
					t.Errorf("expected an exception for %s, got %s", sysMissing, values[1].Type())
				}

				t.Log("-------- Set --------")
				loc := NewOctetString([]byte("Test location from " + name + " " + version))
				if _, err := s.Set(ctx, ep, []OID{sysLocation}, []Value{loc}); err != nil {
					t.Errorf("Set: %v", err)
				} else {
					got, err := s.Get(ctx, ep, []OID{sysLocation})
					if err != nil {
						t.Fatalf("Get after Set: %v", err)
					}
					if !got[0].Equal(loc) {
						t.Errorf("sysLocation = %q, want %q", got[0].DisplayString(), loc.DisplayString())
					}
				}

				t.Log("-------- Walk --------")
				for _, bulk := range []bool{false, true} {
					opts := []Option{WithLogger(log), WithBatchSize(2)}
					if bulk {
						opts = append(opts, WithGetBulk(10))
					}
					w, err := NewAggregateWalker(s, ep, []OID{ifDescr, ifInOctets, ifOutOctets}, opts...)
					if err != nil {
						t.Fatal(err)
					}
					res, err := w.Walk(ctx)
					if err != nil {
						t.Fatalf("Walk (bulk %v): %v", bulk, err)
					}
					tbl := BuildTable(res)
					t.Logf("bulk %v: %d rows, %d requests, batch %d", bulk, len(tbl.Rows), res.Requests, res.BatchSize)
					for _, row := range tbl.Rows {
						t.Log(row.Index, row.Values[0].DisplayString(), row.Values[1], row.Values[2])
					}
					if !res.Complete() {
						t.Errorf("walk (bulk %v) not complete", bulk)
					}
				}
			})
		}
	}
}
