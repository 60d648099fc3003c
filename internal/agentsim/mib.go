// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)

// Package agentsim is a small SNMPv2c agent serving a fixed set of
// objects. It answers GET, GETNEXT, GETBULK and SET over UDP and can be
// told to refuse large responses with tooBig, which makes it useful for
// exercising walkers without real hardware.
package agentsim

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

// Object is one managed object instance.
type Object struct {
	OID   snmp.OID
	Value snmp.Value
}

// MIB is an ordered object store. It is safe for concurrent use.
type MIB struct {
	mu      sync.RWMutex
	objects []Object
}

// NewMIB returns a MIB holding objs. When an OID repeats, the last one
// wins.
func NewMIB(objs ...Object) *MIB {
	m := &MIB{}
	for _, o := range objs {
		m.put(o)
	}
	return m
}

func (m *MIB) put(o Object) {
	i, found := slices.BinarySearchFunc(m.objects, o.OID, func(e Object, oid snmp.OID) int { return e.OID.Compare(oid) })
	o.OID = o.OID.Clone()
	if found {
		m.objects[i] = o
		return
	}
	m.objects = slices.Insert(m.objects, i, o)
}

// Len returns the number of objects.
func (m *MIB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Objects returns a copy of all objects in OID order.
func (m *MIB) Objects() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.objects)
}

// Get returns the exception marker a real agent would send when oid does
// not exist: noSuchInstance if some object lives below the parent of oid,
// noSuchObject otherwise.
func (m *MIB) Get(oid snmp.OID) snmp.Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, found := m.search(oid)
	if found {
		return m.objects[i].Value
	}
	parent := oid.Parent()
	if len(parent) > 0 {
		j, _ := m.search(parent)
		if j < len(m.objects) && m.objects[j].OID.IsUnder(parent) {
			return snmp.NewNoSuchInstance()
		}
	}
	return snmp.NewNoSuchObject()
}

// Next returns the first object after oid. At the end of the MIB it
// returns oid itself with an endOfMibView value.
func (m *MIB) Next(oid snmp.OID) Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, found := m.search(oid)
	if found {
		i++
	}
	if i >= len(m.objects) {
		return Object{OID: oid.Clone(), Value: snmp.NewEndOfMibView()}
	}
	return m.objects[i]
}

// Set applies vbs as one SET request: either every value is stored or
// none is. It returns the error-status and the 1-based error-index to
// report, noCreation for an unknown object and wrongType for a value of
// another type.
func (m *MIB) Set(vbs []snmp.VarBind) (status, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := make([]int, len(vbs))
	for n, vb := range vbs {
		i, found := m.search(vb.OID)
		if !found {
			return snmp.SNMP_ErrNoCreation, n + 1
		}
		if m.objects[i].Value.Type() != vb.Value.Type() {
			return snmp.SNMP_ErrWrongType, n + 1
		}
		pos[n] = i
	}
	for n, vb := range vbs {
		m.objects[pos[n]].Value = vb.Value
	}
	return snmp.SNMP_ErrNoError, 0
}

func (m *MIB) search(oid snmp.OID) (int, bool) {
	return slices.BinarySearchFunc(m.objects, oid, func(e Object, target snmp.OID) int { return e.OID.Compare(target) })
}

type fixtureFile struct {
	Objects []fixtureObject `yaml:"objects"`
}

type fixtureObject struct {
	OID   string `yaml:"oid"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// LoadFixture reads a YAML object list:
//
//	objects:
//	  - oid: .1.3.6.1.2.1.1.1.0
//	    type: string
//	    value: "Linux sim 6.1"
//	  - oid: .1.3.6.1.2.1.2.2.1.10.1
//	    type: counter32
//	    value: "123456"
//
// Types are the names and letters accepted by snmp.ParseTypedValue.
func LoadFixture(r io.Reader) (*MIB, error) {
	var f fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	objs := make([]Object, 0, len(f.Objects))
	for i, fo := range f.Objects {
		oid, err := snmp.ParseOID(fo.OID)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		v, err := snmp.ParseTypedValue(fo.Type, fo.Value)
		if err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, oid, err)
		}
		objs = append(objs, Object{OID: oid, Value: v})
	}
	return NewMIB(objs...), nil
}

// LoadFixtureFile is LoadFixture for a file.
func LoadFixtureFile(path string) (*MIB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixture(f)
}
