package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

func newEntry(t *testing.T, id string) *aggregates.TreeEntry {
	t.Helper()
	name, err := valueobjects.NewTreeName(id)
	require.NoError(t, err)
	entry, err := aggregates.NewTreeEntry(valueobjects.TreeID(id), name, "5", valueobjects.TreeKindMediaType, nil)
	require.NoError(t, err)
	return entry
}

func TestTreeRepository_OptimisticSave(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTreeRepository(nil)
	require.NoError(t, repo.Create(ctx, newEntry(t, "t1")))

	err := repo.Create(ctx, newEntry(t, "t1"))
	var exists *pkgerrors.TreeAlreadyExistsError
	assert.ErrorAs(t, err, &exists)

	first, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)

	node, err := entities.NewNode("A", "A")
	require.NoError(t, err)
	require.NoError(t, first.Tree().Insert(node))
	require.NoError(t, repo.Save(ctx, first))

	assert.True(t, pkgerrors.IsConflict(repo.Save(ctx, second)))

	stored, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, stored.Tree().Has("A"))
	assert.Equal(t, first.Version(), stored.Version())
}

func TestTreeRepository_ReadsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTreeRepository(nil)
	require.NoError(t, repo.Create(ctx, newEntry(t, "t1")))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	node, err := entities.NewNode("A", "A")
	require.NoError(t, err)
	require.NoError(t, loaded.Tree().Insert(node))

	again, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, again.Tree().Has("A"))
}

func TestTreeRepository_SingleMain(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTreeRepository(nil)
	a, b := newEntry(t, "a"), newEntry(t, "b")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	a.MarkMain("")
	require.NoError(t, repo.Save(ctx, a))

	b.MarkMain("a")
	assert.True(t, pkgerrors.IsConflict(repo.Save(ctx, b)))

	a.ClearMain()
	require.NoError(t, repo.SaveAll(ctx, a, b))

	main, err := repo.GetMain(ctx)
	require.NoError(t, err)
	require.NotNil(t, main)
	assert.Equal(t, valueobjects.TreeID("b"), main.ID())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, valueobjects.TreeID("a"), list[0].ID())
}

func TestTreeRepository_Missing(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryTreeRepository(nil)

	_, err := repo.GetByID(ctx, "nope")
	var missing *pkgerrors.TreeNotFoundError
	assert.ErrorAs(t, err, &missing)

	main, err := repo.GetMain(ctx)
	require.NoError(t, err)
	assert.Nil(t, main)
}

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore()
	now := time.Now()

	first := []events.TreeEvent{
		events.NewNodeAdded("t1", 1, "A", "A", now),
		events.NewNodeAdded("t1", 2, "B", "B", now),
	}
	require.NoError(t, store.AppendEvents(ctx, "t1", 0, first))

	stale := []events.TreeEvent{events.NewNodeRemoved("t1", 2, "A", now)}
	assert.True(t, pkgerrors.IsConflict(store.AppendEvents(ctx, "t1", 1, stale)))

	require.NoError(t, store.AppendEvents(ctx, "t1", 2, []events.TreeEvent{events.NewNodeRemoved("t1", 3, "A", now)}))

	all, err := store.LoadEvents(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, events.TypeNodeRemoved, all[2].GetEventType())

	tail, err := store.LoadEventsAfter(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 3, tail[0].GetVersion())

	empty, err := store.LoadEvents(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMergeRequestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMergeRequestRepository()

	req, err := entities.NewMergeRequest("a", "b", "5")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, req))

	pending, err := repo.FindPending(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, pending[0].Accept())
	require.NoError(t, repo.Save(ctx, pending[0]))

	pending, err = repo.FindPending(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, pending)

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.MergeRequestAccepted, stored.Status)
	assert.True(t, req.IsPending(), "callers' copies are not shared with the store")

	_, err = repo.GetByID(ctx, "nope")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryHistoryRepository()
	for v := 1; v <= 3; v++ {
		require.NoError(t, repo.Record(ctx, events.NewHistoryRecorded("t1", v, "5", nil, time.Now())))
	}

	records, err := repo.ListByTree(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].GetVersion())
	assert.Equal(t, 2, records[1].GetVersion())

	all, err := repo.ListByTree(ctx, "t1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
