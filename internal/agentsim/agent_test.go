//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package agentsim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

const testFixture = `
objects:
  - oid: .1.3.6.1.2.1.1.1.0
    type: string
    value: "sim agent"
  - oid: .1.3.6.1.2.1.1.3.0
    type: timeticks
    value: "12345"
  - oid: .1.3.6.1.2.1.2.2.1.2.1
    type: s
    value: "lo"
  - oid: .1.3.6.1.2.1.2.2.1.2.2
    type: s
    value: "eth0"
  - oid: .1.3.6.1.2.1.2.2.1.10.1
    type: counter32
    value: "100"
  - oid: .1.3.6.1.2.1.2.2.1.10.2
    type: c
    value: "200"
`

var (
	oidSysDescr  = snmp.MustParseOID("1.3.6.1.2.1.1.1.0")
	oidSysUpTime = snmp.MustParseOID("1.3.6.1.2.1.1.3.0")
	oidIfDescr   = snmp.MustParseOID("1.3.6.1.2.1.2.2.1.2")
	oidIfInOct   = snmp.MustParseOID("1.3.6.1.2.1.2.2.1.10")
)

func testMIB(t *testing.T) *MIB {
	t.Helper()
	mib, err := LoadFixture(strings.NewReader(testFixture))
	require.NoError(t, err)
	return mib
}

// exchange encodes a request, runs it through Handle and decodes the answer.
func exchange(t *testing.T, a *Agent, community string, pduType int, f1, f2 int32, vbs ...snmp.VarBind) *snmp.V2Message {
	t.Helper()
	wire := make([]snmp.SNMP_Packet_V2_VarBind, len(vbs))
	for i, vb := range vbs {
		w, err := snmp.WireVarBind(vb)
		require.NoError(t, err)
		wire[i] = w
	}
	packet, err := snmp.EncodeV2Message(community, pduType, snmp.SNMP_Packet_V2_PDU{
		RequestID:      77,
		ErrorStatusRaw: f1,
		ErrorIndexRaw:  f2,
		VarBinds:       wire,
	})
	require.NoError(t, err)

	resp, err := a.Handle(packet)
	require.NoError(t, err)
	if resp == nil {
		return nil
	}
	msg, err := snmp.DecodeV2Message(resp)
	require.NoError(t, err)
	require.Equal(t, snmp.SNMPv2_REQUEST_RESPONSE, msg.PDUType)
	require.Equal(t, int32(77), msg.PDU.RequestID)
	return &msg
}

func decoded(t *testing.T, msg *snmp.V2Message) []snmp.VarBind {
	t.Helper()
	out := make([]snmp.VarBind, len(msg.PDU.VarBinds))
	for i, w := range msg.PDU.VarBinds {
		vb, err := snmp.VarBindFromWire(w)
		require.NoError(t, err)
		out[i] = vb
	}
	return out
}

func req(oids ...snmp.OID) []snmp.VarBind {
	vbs := make([]snmp.VarBind, len(oids))
	for i, o := range oids {
		vbs[i] = snmp.VarBind{OID: o, Value: snmp.NewNull()}
	}
	return vbs
}

func TestLoadFixture(t *testing.T) {
	mib := testMIB(t)
	assert.Equal(t, 6, mib.Len())

	objs := mib.Objects()
	for i := 1; i < len(objs); i++ {
		assert.Negative(t, objs[i-1].OID.Compare(objs[i].OID), "objects must be ordered")
	}

	_, err := LoadFixture(strings.NewReader("objects:\n  - oid: 1.x\n    type: i\n    value: \"1\"\n"))
	assert.Error(t, err)
	_, err = LoadFixture(strings.NewReader("objects:\n  - oid: 1.3.6\n    type: bits\n    value: \"1\"\n"))
	assert.Error(t, err)
	_, err = LoadFixture(strings.NewReader("object: []\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestMIBGetExceptions(t *testing.T) {
	mib := testMIB(t)
	assert.Equal(t, "sim agent", mib.Get(oidSysDescr).String())
	assert.Equal(t, snmp.TypeNoSuchInstance, mib.Get(oidIfDescr.Append(9)).Type())
	assert.Equal(t, snmp.TypeNoSuchObject, mib.Get(snmp.MustParseOID("1.3.6.1.4.1.9.0")).Type())
}

func TestMIBNext(t *testing.T) {
	mib := testMIB(t)
	assert.Equal(t, oidSysDescr, mib.Next(snmp.MustParseOID("1.3.6")).OID)
	assert.Equal(t, oidSysUpTime, mib.Next(oidSysDescr).OID)
	assert.Equal(t, oidIfDescr.Append(1), mib.Next(oidIfDescr).OID)

	last := oidIfInOct.Append(2)
	end := mib.Next(last)
	assert.True(t, end.Value.IsEndOfMib())
	assert.Equal(t, last, end.OID)
}

func TestHandleGet(t *testing.T) {
	a := New(testMIB(t))
	msg := exchange(t, a, "public", snmp.SNMPv2_REQUEST_GET, 0, 0, req(oidSysDescr, oidSysUpTime, oidIfDescr.Append(7))...)
	require.NotNil(t, msg)
	vbs := decoded(t, msg)
	require.Len(t, vbs, 3)
	assert.Equal(t, "sim agent", vbs[0].Value.String())
	assert.Equal(t, snmp.TypeTimeTicks, vbs[1].Value.Type())
	assert.Equal(t, "12345", vbs[1].Value.String())
	assert.Equal(t, snmp.TypeNoSuchInstance, vbs[2].Value.Type())
	assert.Equal(t, int64(1), a.Requests())
}

func TestHandleWrongCommunity(t *testing.T) {
	a := New(testMIB(t), WithCommunity("secret"))
	assert.Nil(t, exchange(t, a, "public", snmp.SNMPv2_REQUEST_GET, 0, 0, req(oidSysDescr)...))
	assert.Equal(t, int64(0), a.Requests())
}

func TestHandleDropFirst(t *testing.T) {
	a := New(testMIB(t), WithDropFirst(2))
	assert.Nil(t, exchange(t, a, "public", snmp.SNMPv2_REQUEST_GET, 0, 0, req(oidSysDescr)...))
	assert.Nil(t, exchange(t, a, "public", snmp.SNMPv2_REQUEST_GET, 0, 0, req(oidSysDescr)...))
	assert.NotNil(t, exchange(t, a, "public", snmp.SNMPv2_REQUEST_GET, 0, 0, req(oidSysDescr)...))
	assert.Equal(t, int64(3), a.Requests())
}

func TestHandleGetNextTooBig(t *testing.T) {
	a := New(testMIB(t), WithMaxVarBinds(1))

	msg := exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETNEXT, 0, 0, req(oidIfDescr, oidIfInOct)...)
	require.NotNil(t, msg)
	assert.Equal(t, int32(snmp.SNMP_ErrTooBig), msg.PDU.ErrorStatusRaw)
	assert.Equal(t, int32(0), msg.PDU.ErrorIndexRaw)
	assert.Empty(t, msg.PDU.VarBinds)
	assert.Equal(t, int64(1), a.TooBigSent())

	msg = exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETNEXT, 0, 0, req(oidIfDescr)...)
	require.NotNil(t, msg)
	assert.Equal(t, int32(snmp.SNMP_ErrNoError), msg.PDU.ErrorStatusRaw)
	vbs := decoded(t, msg)
	require.Len(t, vbs, 1)
	assert.Equal(t, "lo", vbs[0].Value.String())

	a.SetMaxVarBinds(0)
	msg = exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETNEXT, 0, 0, req(oidIfDescr, oidIfInOct)...)
	assert.Len(t, msg.PDU.VarBinds, 2)
}

func TestHandleGetBulk(t *testing.T) {
	a := New(testMIB(t))

	// one non-repeater, two repeaters, five repetitions
	msg := exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETBULK, 1, 5,
		req(snmp.MustParseOID("1.3.6.1.2.1.1"), oidIfDescr, oidIfInOct)...)
	require.NotNil(t, msg)
	vbs := decoded(t, msg)

	// row 1: lo, 100; row 2: eth0, 200; row 3: ifInOctets.1, end of MIB;
	// row 4: ifInOctets.2, end of MIB; row 5: both at the end
	require.GreaterOrEqual(t, len(vbs), 5)
	assert.Equal(t, oidSysDescr, vbs[0].OID)
	assert.Equal(t, "lo", vbs[1].Value.String())
	assert.Equal(t, "100", vbs[2].Value.String())
	assert.Equal(t, "eth0", vbs[3].Value.String())
	assert.Equal(t, "200", vbs[4].Value.String())
	assert.True(t, vbs[len(vbs)-1].Value.IsEndOfMib())
	assert.Len(t, vbs, 11)
	assert.Zero(t, (len(vbs)-1)%2, "repetitions are whole rows")
}

func TestHandleGetBulkLimit(t *testing.T) {
	a := New(testMIB(t), WithMaxVarBinds(4))

	msg := exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETBULK, 0, 10, req(oidIfDescr, oidIfInOct)...)
	require.NotNil(t, msg)
	assert.Equal(t, int32(snmp.SNMP_ErrNoError), msg.PDU.ErrorStatusRaw)
	assert.Len(t, msg.PDU.VarBinds, 4, "cut to two whole rows")

	a.SetMaxVarBinds(1)
	msg = exchange(t, a, "public", snmp.SNMPv2_REQUEST_GETBULK, 0, 10, req(oidIfDescr, oidIfInOct)...)
	require.NotNil(t, msg)
	assert.Equal(t, int32(snmp.SNMP_ErrTooBig), msg.PDU.ErrorStatusRaw)
}

func TestHandleSet(t *testing.T) {
	sysName := snmp.MustParseOID("1.3.6.1.2.1.1.5.0")
	mib := NewMIB(Object{OID: sysName, Value: snmp.NewOctetString([]byte("old"))})

	ro := New(mib)
	msg := exchange(t, ro, "public", snmp.SNMPv2_REQUEST_SET, 0, 0,
		snmp.VarBind{OID: sysName, Value: snmp.NewOctetString([]byte("new"))})
	assert.Equal(t, int32(snmp.SNMP_ErrNotWritable), msg.PDU.ErrorStatusRaw)
	assert.Equal(t, "old", mib.Get(sysName).String())

	rw := New(mib, WithWritable())
	msg = exchange(t, rw, "public", snmp.SNMPv2_REQUEST_SET, 0, 0,
		snmp.VarBind{OID: sysName, Value: snmp.NewInteger32(1)})
	assert.Equal(t, int32(snmp.SNMP_ErrWrongType), msg.PDU.ErrorStatusRaw)
	assert.Equal(t, int32(1), msg.PDU.ErrorIndexRaw)

	msg = exchange(t, rw, "public", snmp.SNMPv2_REQUEST_SET, 0, 0,
		snmp.VarBind{OID: sysName, Value: snmp.NewOctetString([]byte("new"))},
		snmp.VarBind{OID: sysName.Parent().Append(99), Value: snmp.NewOctetString([]byte("x"))})
	assert.Equal(t, int32(snmp.SNMP_ErrNoCreation), msg.PDU.ErrorStatusRaw)
	assert.Equal(t, int32(2), msg.PDU.ErrorIndexRaw)
	assert.Equal(t, "old", mib.Get(sysName).String(), "failed SET changes nothing")

	msg = exchange(t, rw, "public", snmp.SNMPv2_REQUEST_SET, 0, 0,
		snmp.VarBind{OID: sysName, Value: snmp.NewOctetString([]byte("new"))})
	assert.Equal(t, int32(snmp.SNMP_ErrNoError), msg.PDU.ErrorStatusRaw)
	assert.Equal(t, "new", mib.Get(sysName).String())
}
