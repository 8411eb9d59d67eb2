package ais

import (
	"encoding/binary"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/sealane/aistrack/ais/geo"
)

const tableTargets = "targets"

// mmsiIndexer indexes any Target by its MMSI, encoded big-endian so memdb's
// byte-lexicographic radix tree also sorts targets numerically by MMSI.
type mmsiIndexer struct{}

func (mmsiIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	t, ok := obj.(Target)
	if !ok {
		return false, nil, nil
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, t.MMSI())
	return true, buf, nil
}

func (mmsiIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	mmsi, ok := args[0].(uint32)
	if !ok {
		return nil, errString("store: FromArgs expects a single uint32 MMSI")
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, mmsi)
	return buf, nil
}

type errString string

func (e errString) Error() string { return string(e) }

var storeSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableTargets: {
			Name: tableTargets,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: mmsiIndexer{},
				},
			},
		},
	},
}

// Store is the concurrent MMSI-keyed database of AIS targets.
//
// Targets are treated as copy-on-write values: a target pointer returned by
// TryGet or Snapshot is never mutated after publication. Mutate (and the
// GetOrCreate it builds on) clones the stored target, applies the caller's
// changes to the private clone, and publishes the clone with a single
// transaction, so a reader holding an older pointer continues to see a
// self-consistent value no matter what concurrent writers do. This is also
// what makes Snapshot's memdb read transaction a genuinely lock-free, stable
// iteration, rather than a set of pointers a writer might be mutating
// underneath the reader — per spec.md §4.1 and §5.
type Store struct {
	db *memdb.MemDB
}

// NewStore constructs an empty target store.
func NewStore() *Store {
	db, err := memdb.NewMemDB(storeSchema)
	if err != nil {
		// The schema above is static and valid by construction; NewMemDB
		// only fails on a malformed schema.
		panic(err)
	}
	return &Store{db: db}
}

// TryGet returns the target stored for mmsi, if any.
func (s *Store) TryGet(mmsi uint32) (Target, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableTargets, "id", mmsi)
	if err != nil || raw == nil {
		return nil, false
	}
	return raw.(Target), true
}

// cloneTarget returns a shallow struct copy of t as a new pointer. Fields
// that are themselves pointers (Position, the motion fields) are never
// mutated through after this point — callers always replace them with a
// fresh pointer — so a shallow copy is sufficient to isolate the clone from
// the original.
func cloneTarget(t Target) Target {
	switch v := t.(type) {
	case *Ship:
		c := *v
		return &c
	case *BaseStation:
		c := *v
		return &c
	case *SarAircraft:
		c := *v
		return &c
	case *AidToNavigation:
		c := *v
		return &c
	default:
		return t
	}
}

// Mutate fetches the target for mmsi (constructing one with ctor, replacing
// any existing target of a different variant), applies fn to a private
// clone, publishes the clone, and returns it.
//
// fn may be nil to perform a bare get-or-create. If lastSeenAt is non-nil it
// is applied to the clone after fn runs.
func Mutate[T Target](s *Store, mmsi uint32, ctor func(uint32) T, lastSeenAt *time.Time, fn func(T)) T {
	txn := s.db.Txn(true)
	defer txn.Commit()

	raw, _ := txn.First(tableTargets, "id", mmsi)
	var next T
	if existing, ok := raw.(T); ok {
		next = cloneTarget(existing).(T)
	} else {
		if raw != nil {
			txn.Delete(tableTargets, raw)
		}
		next = ctor(mmsi)
	}
	if fn != nil {
		fn(next)
	}
	if lastSeenAt != nil {
		next.setSeen(*lastSeenAt)
	}
	txn.Insert(tableTargets, next)
	return next
}

// GetOrCreate is Mutate with no field changes: it returns the existing
// target if its variant matches, or installs and returns a freshly
// constructed one.
func GetOrCreate[T Target](s *Store, mmsi uint32, ctor func(uint32) T, lastSeenAt *time.Time) T {
	return Mutate(s, mmsi, ctor, lastSeenAt, nil)
}

// Remove deletes the target for mmsi, if present.
func (s *Store) Remove(mmsi uint32) {
	txn := s.db.Txn(true)
	defer txn.Commit()
	if raw, _ := txn.First(tableTargets, "id", mmsi); raw != nil {
		txn.Delete(tableTargets, raw)
	}
}

// RemoveIf deletes every target for which pred returns true, returning the
// count removed.
func (s *Store) RemoveIf(pred func(Target) bool) int {
	txn := s.db.Txn(true)
	defer txn.Commit()

	it, err := txn.Get(tableTargets, "id")
	if err != nil {
		return 0
	}
	var toDelete []interface{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if pred(raw.(Target)) {
			toDelete = append(toDelete, raw)
		}
	}
	for _, raw := range toDelete {
		txn.Delete(tableTargets, raw)
	}
	return len(toDelete)
}

// Snapshot returns a stable slice of every target currently stored, as of
// the moment Snapshot was called. Targets inserted, mutated or removed by
// concurrent writers afterwards are not reflected in the returned slice or
// in the values it points to.
func (s *Store) Snapshot() []Target {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableTargets, "id")
	if err != nil {
		return nil
	}
	var out []Target
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(Target))
	}
	return out
}

// Len returns the number of targets currently stored.
func (s *Store) Len() int {
	return len(s.Snapshot())
}

// SetRelativePosition publishes rel as the RelativePosition of the target
// mmsi, via the same copy-on-write path as Mutate. It is a no-op if the
// target has since been removed. The alarm surveillance loop uses this to
// record the CPA/TCPA geometry it computed against a Snapshot, without
// disturbing targets concurrently being mutated by the AIS manager.
func (s *Store) SetRelativePosition(mmsi uint32, rel *geo.RelativePosition) {
	txn := s.db.Txn(true)
	defer txn.Commit()

	raw, _ := txn.First(tableTargets, "id", mmsi)
	if raw == nil {
		return
	}
	clone := cloneTarget(raw.(Target))
	clone.setRelativePosition(rel)
	txn.Insert(tableTargets, clone)
}
