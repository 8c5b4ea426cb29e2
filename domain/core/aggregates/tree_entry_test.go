package aggregates

import (
	"strings"
	"testing"

	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeName(t *testing.T, raw string) valueobjects.TreeName {
	t.Helper()
	name, err := valueobjects.NewTreeName(raw)
	require.NoError(t, err)
	return name
}

func TestNewTreeEntry(t *testing.T) {
	entry, err := NewTreeEntry("t1", treeName(t, " Tree \n"), "5", valueobjects.TreeKindMediaType, nil)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.TreeID("t1"), entry.ID())
	assert.Equal(t, "Tree", entry.Name().String())
	assert.True(t, entry.IsOwnedBy("5"))
	assert.False(t, entry.IsOwnedBy("6"))
	assert.False(t, entry.IsMain())
	assert.Equal(t, MediaTypePolicy.Name, entry.Tree().Policy().Name)
	assert.Equal(t, 0, entry.Tree().Len())

	evts := entry.GetUncommittedEvents()
	require.Len(t, evts, 1)
	_, ok := evts[0].(events.TreeCreated)
	assert.True(t, ok)

	entry.MarkEventsAsCommitted()
	assert.Empty(t, entry.GetUncommittedEvents())
}

func TestNewTreeEntry_Invalid(t *testing.T) {
	_, err := NewTreeEntry("", treeName(t, "x"), "5", valueobjects.TreeKindGenre, nil)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewTreeEntry("t1", valueobjects.TreeName{}, "5", valueobjects.TreeKindGenre, nil)
	var invalid *pkgerrors.TreeNameInvalidError
	assert.ErrorAs(t, err, &invalid)

	_, err = NewTreeEntry("t1", treeName(t, strings.Repeat("x", 101)), "5", valueobjects.TreeKindGenre, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTreeEntry_RenameAndMain(t *testing.T) {
	entry, err := NewTreeEntry("t1", treeName(t, "Tree"), "5", valueobjects.TreeKindGenre, nil)
	require.NoError(t, err)
	entry.MarkEventsAsCommitted()

	require.NoError(t, entry.Rename(treeName(t, "Renamed")))
	assert.Equal(t, "Renamed", entry.Name().String())

	entry.MarkMain("t0")
	entry.MarkMain("t0")
	assert.True(t, entry.IsMain())

	evts := entry.GetUncommittedEvents()
	require.Len(t, evts, 2)
	renamed := evts[0].(events.TreeRenamed)
	assert.Equal(t, "Tree", renamed.OldName)
	set := evts[1].(events.MainTreeSet)
	assert.Equal(t, valueobjects.TreeID("t0"), set.PreviousMain)

	entry.ClearMain()
	assert.False(t, entry.IsMain())
}

func TestTreeEntry_Copy(t *testing.T) {
	origin, err := NewTreeEntry("main", treeName(t, "Main"), "1", valueobjects.TreeKindGenre, nil)
	require.NoError(t, err)
	insertAll(t, origin.Tree(), node(t, "Rock"), node(t, "Metal", "Rock"))
	origin.MarkMain("")

	copied, err := origin.Copy("fork", treeName(t, "Fork"), "2")
	require.NoError(t, err)

	assert.Equal(t, origin.Tree().Snapshot(), copied.Tree().Snapshot())
	assert.Equal(t, valueobjects.TreeID("main"), copied.OriginID())
	assert.Equal(t, origin.Tree().Snapshot(), copied.Base())
	assert.False(t, copied.IsMain())
	assert.True(t, copied.IsOwnedBy("2"))
	assert.Equal(t, entities.StatusUnchanged, copied.Tree().Status("Rock"))

	// the copy is independent
	insertAll(t, copied.Tree(), node(t, "Doom", "Metal"))
	assert.False(t, origin.Tree().Has("Doom"))

	// the copy's tree can be rebuilt from its own events
	rebuilt, err := Rehydrate("fork", GenrePolicy, nil, copied.Tree().GetUncommittedEvents())
	require.NoError(t, err)
	assert.Equal(t, copied.Tree().Snapshot(), rebuilt.Snapshot())

	evts := copied.GetUncommittedEvents()
	require.Len(t, evts, 1)
	_, ok := evts[0].(events.TreeCopied)
	assert.True(t, ok)
}

func TestTreeEntry_MergeBaseFor(t *testing.T) {
	origin, err := NewTreeEntry("main", treeName(t, "Main"), "1", valueobjects.TreeKindMediaType, nil)
	require.NoError(t, err)
	insertAll(t, origin.Tree(), node(t, "X"))

	fork, err := origin.Copy("fork", treeName(t, "Fork"), "2")
	require.NoError(t, err)
	sibling, err := origin.Copy("sibling", treeName(t, "Sibling"), "3")
	require.NoError(t, err)
	stranger, err := NewTreeEntry("other", treeName(t, "Other"), "4", valueobjects.TreeKindMediaType, nil)
	require.NoError(t, err)

	assert.Equal(t, fork.Base(), origin.MergeBaseFor(fork))
	assert.Equal(t, fork.Base(), fork.MergeBaseFor(origin))
	assert.Equal(t, fork.Base(), fork.MergeBaseFor(sibling))
	assert.Equal(t, 0, origin.MergeBaseFor(stranger).Len())

	// after fork is merged back its base moves forward
	insertAll(t, fork.Tree(), node(t, "Y", "X"))
	_, err = origin.Tree().MergeFrom(fork.ID(), origin.MergeBaseFor(fork), fork.Tree().Snapshot())
	require.NoError(t, err)
	fork.Rebase(fork.Tree().Snapshot())
	assert.Equal(t, 2, origin.MergeBaseFor(fork).Len())
}
