// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

var (
	typeColor  = color.New(color.FgCyan)
	errColor   = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	indexColor = color.New(color.FgHiBlack)
)

// printVarBind writes "oid = TYPE: value" the way net-snmp does. Error
// markers are printed in red without a value.
func printVarBind(w io.Writer, oid snmp.OID, v snmp.Value) {
	if v.IsError() {
		fmt.Fprintf(w, "%s = %s\n", oid, errColor.Sprint(v.Type()))
		return
	}
	text := v.DisplayString()
	if v.Type() == snmp.TypeOctetString && !v.IsDisplayable() {
		if h, err := v.ToHexString(); err == nil {
			text = "0x" + h
		}
	}
	if d, err := snmp.TimeTicksDuration(v); err == nil {
		text = fmt.Sprintf("(%s) %s", v, d)
	}
	fmt.Fprintf(w, "%s = %s: %s\n", oid, typeColor.Sprint(v.Type()), text)
}

// cell renders a value for the table view. It stays uncoloured so the
// tabwriter sees its real width.
func cell(v snmp.Value) string {
	if v.IsError() {
		return "-"
	}
	return v.DisplayString()
}
