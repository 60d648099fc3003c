// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"slices"
)

// Table is a walk result pivoted into rows. Walking the columns of a
// conceptual table (ifDescr, ifType, ...) yields one entry per row in
// every column, keyed by the same instance suffix.
type Table struct {
	Columns []OID
	Rows    []Row
}

// Row holds one value per table column. A column with no entry for this
// index has a noSuchInstance value in its slot.
type Row struct {
	Index  OID
	Values []Value
}

// BuildTable pivots res by instance suffix. Rows are ordered by index.
// Columns that did not finish contribute what they collected.
func BuildTable(res *WalkResult) *Table {
	t := &Table{Columns: make([]OID, len(res.Columns))}
	byIndex := make(map[string]int)
	for c, col := range res.Columns {
		t.Columns[c] = col.Root.Clone()
		for _, e := range col.Entries {
			key := e.Suffix.String()
			r, ok := byIndex[key]
			if !ok {
				r = len(t.Rows)
				byIndex[key] = r
				row := Row{Index: e.Suffix.Clone(), Values: make([]Value, len(res.Columns))}
				for i := range row.Values {
					row.Values[i] = NewNoSuchInstance()
				}
				t.Rows = append(t.Rows, row)
			}
			t.Rows[r].Values[c] = e.Value
		}
	}
	slices.SortFunc(t.Rows, func(a, b Row) int { return a.Index.Compare(b.Index) })
	return t
}

// Lookup returns the row with the given index.
func (t *Table) Lookup(index OID) (Row, bool) {
	i, found := slices.BinarySearchFunc(t.Rows, index, func(r Row, idx OID) int { return r.Index.Compare(idx) })
	if !found {
		return Row{}, false
	}
	return t.Rows[i], true
}

// Column returns the position of root among the table columns, or -1.
func (t *Table) Column(root OID) int {
	return slices.IndexFunc(t.Columns, root.Equal)
}
