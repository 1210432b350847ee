package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
	"github.com/GoSim-25-26J-441/diagram-service/internal/namespace"
)

// prefixNS signs by prefixing "ns." so expectations stay readable.
type prefixNS struct{}

func (prefixNS) Verify(id string) bool { return strings.HasPrefix(id, "ns.") }
func (prefixNS) Sign(id string) string { return "ns." + id }

// memStore is an in-memory Beginner. Writes become visible on Commit only.
type memStore struct {
	committed  map[string]entities.Entity
	touched    []int64
	commits    int
	failOn     string
	failCommit string
}

func newMemStore() *memStore {
	return &memStore{committed: map[string]entities.Entity{}}
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	return &memTx{store: s, staged: map[string]entities.Entity{}}, nil
}

type memTx struct {
	store   *memStore
	staged  map[string]entities.Entity
	touched []int64
	done    bool
}

func (tx *memTx) EntityByID(_ context.Context, id string, includeDeleted bool) (*entities.Entity, error) {
	e, ok := tx.store.committed[id]
	if !ok || (e.Deleted() && !includeDeleted) {
		return nil, entities.ErrNotFound
	}
	return &e, nil
}

func (tx *memTx) CreateEntity(_ context.Context, e *entities.Entity) error {
	if e.ID == tx.store.failOn {
		return errors.New("disk full")
	}
	tx.staged[e.ID] = *e
	return nil
}

func (tx *memTx) UpdateEntity(_ context.Context, e *entities.Entity, data map[string]any) error {
	if e.ID == tx.store.failOn {
		return errors.New("disk full")
	}
	e.Data = data
	e.Schema = entities.SchemaOf(data)
	tx.staged[e.ID] = *e
	return nil
}

func (tx *memTx) UndeleteEntity(_ context.Context, e *entities.Entity) error {
	e.DeletedAt = nil
	tx.staged[e.ID] = *e
	return nil
}

func (tx *memTx) TouchCollection(_ context.Context, id int64) error {
	tx.touched = append(tx.touched, id)
	return nil
}

func (tx *memTx) Commit() error {
	if _, ok := tx.staged[tx.store.failCommit]; ok {
		return errors.New("connection lost")
	}
	for id, e := range tx.staged {
		tx.store.committed[id] = e
	}
	tx.store.touched = append(tx.store.touched, tx.touched...)
	tx.store.commits++
	tx.done = true
	return nil
}

func (tx *memTx) Rollback() error { return nil }

type recordingIndexer struct {
	synced []string
	queued []string
}

func (ix *recordingIndexer) UpdateEntity(_ context.Context, e *entities.Entity, sync bool) error {
	if sync {
		ix.synced = append(ix.synced, e.ID)
	} else {
		ix.queued = append(ix.queued, e.ID)
	}
	return nil
}

func newReconciler() (*Reconciler, *memStore, *recordingIndexer) {
	store := newMemStore()
	ix := &recordingIndexer{}
	return New(store, ix, nil), store, ix
}

var target = Target{CollectionID: 7, Namespace: prefixNS{}}

func TestReconcile_ValidIDsPassThrough(t *testing.T) {
	r, store, _ := newReconciler()

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "ns.a", "schema": "Person"},
	}, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"ns.a"}, res.EntityIDs)
	assert.Empty(t, res.Substitutions)
	assert.Contains(t, store.committed, "ns.a")
}

func TestReconcile_ForeignIDsAreSigned(t *testing.T) {
	r, _, _ := newReconciler()

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "a"},
		{"id": "b"},
	}, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"ns.a", "ns.b"}, res.EntityIDs)
	assert.Equal(t, Substitutions{"a": "ns.a", "b": "ns.b"}, res.Substitutions)
}

func TestReconcile_Example(t *testing.T) {
	r, store, ix := newReconciler()

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "x1", "name": "A"},
		{"id": "x1", "linked": "x1"},
	}, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"ns.x1", "ns.x1"}, res.EntityIDs)
	assert.Equal(t, Substitutions{"x1": "ns.x1"}, res.Substitutions)
	assert.Equal(t, "ns.x1", store.committed["ns.x1"].Data["linked"])
	assert.Equal(t, []string{"ns.x1", "ns.x1"}, ix.synced)
	assert.Equal(t, 2, store.commits)
}

func TestReconcile_ReferencesResolveInOrder(t *testing.T) {
	r, store, _ := newReconciler()

	// r1 references b before b has been seen; r2 references a after.
	_, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "a", "properties": map[string]any{"knows": []any{"b"}}},
		{"id": "b", "properties": map[string]any{"knows": []any{"a"}}},
	}, target)
	require.NoError(t, err)

	a := store.committed["ns.a"].Data["properties"].(map[string]any)
	b := store.committed["ns.b"].Data["properties"].(map[string]any)
	assert.Equal(t, []any{"b"}, a["knows"], "later substitutions are not visible to earlier records")
	assert.Equal(t, []any{"ns.a"}, b["knows"])
}

func TestReconcile_CreateTouchesCollection(t *testing.T) {
	r, store, _ := newReconciler()
	store.committed["ns.old"] = entities.Entity{ID: "ns.old", CollectionID: 7}

	_, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "ns.old", "schema": "Person"},
		{"id": "new"},
	}, target)
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, store.touched, "only creation touches the collection")
	assert.Equal(t, "Person", store.committed["ns.old"].Schema)
}

func TestReconcile_SoftDeletedEntityIsUndeleted(t *testing.T) {
	r, store, _ := newReconciler()
	deletedAt := time.Now()
	store.committed["ns.a"] = entities.Entity{ID: "ns.a", CollectionID: 7, DeletedAt: &deletedAt}

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "a", "schema": "Company"},
	}, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"ns.a"}, res.EntityIDs)
	require.Len(t, store.committed, 1, "no duplicate entity is created")
	e := store.committed["ns.a"]
	assert.False(t, e.Deleted())
	assert.Equal(t, "Company", e.Schema)
	assert.Empty(t, store.touched)
}

func TestReconcile_MissingID(t *testing.T) {
	r, _, _ := newReconciler()

	for _, rec := range []map[string]any{{"schema": "Person"}, {"id": 12}, {"id": ""}} {
		_, err := r.Reconcile(context.Background(), []map[string]any{rec}, target)
		assert.ErrorIs(t, err, ErrMissingField)
	}
}

func TestReconcile_PartialFailureKeepsEarlierCommits(t *testing.T) {
	r, store, _ := newReconciler()
	store.failOn = "ns.b"

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "a"},
		{"id": "b"},
		{"id": "c"},
	}, target)
	require.Error(t, err)

	assert.Equal(t, []string{"ns.a"}, res.EntityIDs)
	assert.Contains(t, store.committed, "ns.a")
	assert.NotContains(t, store.committed, "ns.b")
	assert.NotContains(t, store.committed, "ns.c")
}

func TestReconcile_FailedCommitQueuesReindex(t *testing.T) {
	r, store, ix := newReconciler()
	store.failCommit = "ns.b"

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": "a"},
		{"id": "b"},
	}, target)
	require.Error(t, err)

	assert.Equal(t, []string{"ns.a"}, res.EntityIDs)
	assert.Equal(t, []string{"ns.a", "ns.b"}, ix.synced)
	assert.Equal(t, []string{"ns.b"}, ix.queued, "the document written before the failed commit is handed to the sweeper")
	assert.Equal(t, []int64{7}, store.touched, "the touch of the failed record is rolled back")
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	r, _, _ := newReconciler()
	rec := map[string]any{"id": "a", "ref": "a"}

	_, err := r.Reconcile(context.Background(), []map[string]any{rec}, target)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "a", "ref": "a"}, rec)
}

func TestReconcile_HMACNamespace(t *testing.T) {
	r, _, _ := newReconciler()
	ns := namespace.New("leaks")
	signed := ns.Sign("p1")

	res, err := r.Reconcile(context.Background(), []map[string]any{
		{"id": signed},
		{"id": "p2", "ref": signed},
	}, Target{CollectionID: 7, Namespace: ns})
	require.NoError(t, err)

	assert.Equal(t, []string{signed, ns.Sign("p2")}, res.EntityIDs)
	assert.Equal(t, Substitutions{"p2": ns.Sign("p2")}, res.Substitutions)
}
