// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

// TrackerState is the walk state of one column.
type TrackerState int

const (
	Walking TrackerState = iota
	Finished
	Failed
)

func (s TrackerState) String() string {
	switch s {
	case Walking:
		return "walking"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is one object collected under a column root.
type Entry struct {
	OID    OID // full instance OID
	Suffix OID // OID with the root stripped, the row index for table columns
	Value  Value
}

// ColumnTracker walks the subtree below one root OID. It is fed by an
// AggregateWalker and is not safe for concurrent use.
type ColumnTracker struct {
	root      OID
	cursor    OID
	entries   []Entry
	state     TrackerState
	truncated bool
	err       error
}

func NewColumnTracker(root OID) *ColumnTracker {
	return &ColumnTracker{root: root.Clone(), cursor: root.Clone()}
}

func (t *ColumnTracker) Root() OID           { return t.root.Clone() }
func (t *ColumnTracker) State() TrackerState { return t.state }
func (t *ColumnTracker) Err() error          { return t.err }

// Truncated reports a walk that stopped before the end of the subtree:
// the agent went backwards, or the walk hit its round limit.
func (t *ColumnTracker) Truncated() bool { return t.truncated }

// NextRequestOID returns the cursor, the OID the next GETNEXT asks about.
// Meaningless once the tracker left Walking.
func (t *ColumnTracker) NextRequestOID() OID { return t.cursor.Clone() }

// Entries returns the collected objects in walk order.
func (t *ColumnTracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Handle consumes the answer to the current cursor and returns the new
// state. Rules, in order:
//
//	endOfMibView                         -> Finished
//	oid outside the root                 -> Finished, value dropped
//	noSuchObject/Instance on first probe -> Finished, no entries
//	oid not after the cursor             -> Finished and Truncated
//	otherwise                            -> entry appended, cursor = oid
//
// Answers arriving after the tracker left Walking are ignored.
func (t *ColumnTracker) Handle(oid OID, v Value) TrackerState {
	if t.state != Walking {
		return t.state
	}
	switch {
	case v.IsEndOfMib():
		t.state = Finished
	case !oid.IsUnder(t.root):
		t.state = Finished
	case v.IsError() && t.cursor.Equal(t.root):
		t.state = Finished
	case oid.Compare(t.cursor) <= 0:
		t.state = Finished
		t.truncated = true
	default:
		t.entries = append(t.entries, Entry{OID: oid.Clone(), Suffix: oid.SuffixAfter(t.root), Value: v})
		t.cursor = oid.Clone()
	}
	return t.state
}

// Fail moves a walking tracker to Failed. It is the only way there.
func (t *ColumnTracker) Fail(err error) {
	if t.state != Walking {
		return
	}
	t.state = Failed
	t.err = err
}

// truncate finishes a walking tracker early, keeping what it has.
func (t *ColumnTracker) truncate() {
	if t.state != Walking {
		return
	}
	t.state = Finished
	t.truncated = true
}

// ColumnResult is the outcome of one tracker.
type ColumnResult struct {
	Root      OID
	State     TrackerState
	Entries   []Entry
	Truncated bool
	Err       error
}

func (t *ColumnTracker) Result() ColumnResult {
	return ColumnResult{
		Root:      t.Root(),
		State:     t.state,
		Entries:   t.Entries(),
		Truncated: t.truncated,
		Err:       t.err,
	}
}
