// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

var getCmd = &cobra.Command{
	Use:   "get OID...",
	Short: "GET one or more objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args, snmp.OpGet)
	},
}

var getNextCmd = &cobra.Command{
	Use:   "getnext OID...",
	Short: "GETNEXT one or more objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args, snmp.OpGetNext)
	},
}

var setCmd = &cobra.Command{
	Use:   "set OID TYPE VALUE [OID TYPE VALUE]...",
	Short: "SET one or more objects",
	Long: `SET one or more objects in a single request.

TYPE is a net-snmp type letter or a type name:
  i INTEGER   u Unsigned32  c Counter32  C Counter64  t TimeTicks
  s STRING    x hex STRING  o OID        a IpAddress  n NULL

Examples:
  snmpwalk set -H 10.0.0.1 -c private .1.3.6.1.2.1.1.5.0 s core-sw1
  snmpwalk set -H 10.0.0.1 -c private .1.3.6.1.2.1.2.2.1.7.3 i 2`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%3 != 0 {
			return fmt.Errorf("expected OID TYPE VALUE triples, got %d argument(s)", len(args))
		}
		return nil
	},
	RunE: runSet,
}

func runFetch(cmd *cobra.Command, args []string, kind snmp.OperationKind) error {
	oids, err := parseOIDs(args)
	if err != nil {
		return err
	}
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ep, err := a.endpoint(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if kind == snmp.OpGet {
		values, err := a.strategy.Get(cmd.Context(), ep, oids)
		if err != nil {
			return err
		}
		for i, v := range values {
			printVarBind(out, oids[i], v)
		}
		return nil
	}

	// GETNEXT prints the OIDs the agent answered with, not the requested ones
	pdu, ok := a.strategy.BuildPDU(ep, kind, oids, nil)
	if !ok {
		return snmp.ErrRejectedPdu
	}
	resp, err := a.strategy.Send(cmd.Context(), ep, pdu, true)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	for _, vb := range resp.VarBinds {
		printVarBind(out, vb.OID, vb.Value)
	}
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	var oids []snmp.OID
	var values []snmp.Value
	for i := 0; i < len(args); i += 3 {
		oid, err := snmp.ParseOID(args[i])
		if err != nil {
			return err
		}
		v, err := snmp.ParseTypedValue(args[i+1], args[i+2])
		if err != nil {
			return fmt.Errorf("%s: %w", oid, err)
		}
		oids = append(oids, oid)
		values = append(values, v)
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ep, err := a.endpoint(cmd)
	if err != nil {
		return err
	}

	got, err := a.strategy.Set(cmd.Context(), ep, oids, values)
	if err != nil {
		return err
	}
	for i, v := range got {
		printVarBind(cmd.OutOrStdout(), oids[i], v)
	}
	return nil
}
