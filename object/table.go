package object

// Table is an open-addressing hash map with linear probing, keyed by interned
// string handles. Deleted slots become tombstones so later probe sequences
// stay intact. Used for globals, class method tables, and instance fields.
type Table struct {
	// count includes tombstones; it drives the load factor.
	count   int
	live    int
	entries []tableEntry
}

type tableEntry struct {
	key       Handle
	hash      uint32
	value     Value
	tombstone bool
}

func (e *tableEntry) isEmpty() bool {
	return e.key == Handle{} && !e.tombstone
}

// Grow when count would pass 75% of capacity.
const (
	tableMaxLoadNum   = 3
	tableMaxLoadDenom = 4
	tableMinCapacity  = 8
)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.live
}

// Get returns the value stored under the given key, if present. The hash must
// be the key string's precomputed hash.
func (t *Table) Get(key Handle, hash uint32) (Value, bool) {
	if t.count == 0 {
		return Nil, false
	}
	entry := t.findEntry(t.entries, key, hash)
	if entry.key == (Handle{}) {
		return Nil, false
	}
	return entry.value, true
}

// Set stores a value under the given key. It returns true if the key was not
// already present.
func (t *Table) Set(key Handle, hash uint32, value Value) bool {
	if (t.count+1)*tableMaxLoadDenom > len(t.entries)*tableMaxLoadNum {
		t.grow()
	}
	entry := t.findEntry(t.entries, key, hash)
	isNew := entry.key == (Handle{})
	if isNew {
		if !entry.tombstone {
			t.count++
		}
		t.live++
	}
	entry.key = key
	entry.hash = hash
	entry.value = value
	entry.tombstone = false
	return isNew
}

// Delete removes the key, leaving a tombstone in its slot. It returns true if
// the key was present.
func (t *Table) Delete(key Handle, hash uint32) bool {
	if t.count == 0 {
		return false
	}
	entry := t.findEntry(t.entries, key, hash)
	if entry.key == (Handle{}) {
		return false
	}
	// Tombstones keep probe sequences for other keys unbroken
	entry.key = Handle{}
	entry.value = Nil
	entry.tombstone = true
	t.live--
	return true
}

// AddAll copies every entry from src into this table. Existing keys are
// overwritten, which is how class inheritance lets subclass methods shadow
// inherited ones when defined afterwards.
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		entry := &src.entries[i]
		if entry.key != (Handle{}) {
			t.Set(entry.key, entry.hash, entry.value)
		}
	}
}

// FindKey locates an existing key whose string content matches the given text
// and hash, resolving handles to text through the provided function. This is
// the interning lookup: it compares content rather than identity.
func (t *Table) FindKey(text string, hash uint32, resolve func(Handle) string) (Handle, bool) {
	if t.count == 0 {
		return Handle{}, false
	}
	index := int(hash) & (len(t.entries) - 1)
	for {
		entry := &t.entries[index]
		if entry.key == (Handle{}) {
			if !entry.tombstone {
				return Handle{}, false
			}
		} else if entry.hash == hash && resolve(entry.key) == text {
			return entry.key, true
		}
		index = (index + 1) & (len(t.entries) - 1)
	}
}

// findEntry returns the slot for the key: the entry holding it, the first
// tombstone passed on the probe path, or the first empty slot.
func (t *Table) findEntry(entries []tableEntry, key Handle, hash uint32) *tableEntry {
	index := int(hash) & (len(entries) - 1)
	var tombstone *tableEntry
	for {
		entry := &entries[index]
		if entry.key == (Handle{}) {
			if entry.tombstone {
				if tombstone == nil {
					tombstone = entry
				}
			} else {
				if tombstone != nil {
					return tombstone
				}
				return entry
			}
		} else if entry.key == key {
			return entry
		}
		index = (index + 1) & (len(entries) - 1)
	}
}

func (t *Table) grow() {
	capacity := len(t.entries) * 2
	if capacity < tableMinCapacity {
		capacity = tableMinCapacity
	}
	entries := make([]tableEntry, capacity)
	// Re-insert live entries; tombstones are dropped
	count := 0
	for i := range t.entries {
		src := &t.entries[i]
		if src.key == (Handle{}) {
			continue
		}
		dst := t.findEntry(entries, src.key, src.hash)
		*dst = *src
		count++
	}
	t.entries = entries
	t.count = count
}

// Each calls fn for every live entry. Iteration order is unspecified.
func (t *Table) Each(fn func(key Handle, value Value)) {
	for i := range t.entries {
		entry := &t.entries[i]
		if entry.key != (Handle{}) {
			fn(entry.key, entry.value)
		}
	}
}
