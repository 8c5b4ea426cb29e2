package valueobjects

import (
	"testing"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "Tree", want: "Tree"},
		{name: "trimmed", raw: "  Tree\n", want: "Tree"},
		{name: "empty", raw: "", wantErr: true},
		{name: "spaces", raw: "   ", wantErr: true},
		{name: "newlines", raw: "\n\n\r\n", wantErr: true},
		{name: "tabs", raw: "\t \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTreeName(tt.raw)
			if tt.wantErr {
				var invalid *pkgerrors.TreeNameInvalidError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.raw, invalid.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseRoleSet(t *testing.T) {
	set := ParseRoleSet([]string{"write", " ADMIN ", "offline_access", "WRITE"})

	assert.True(t, set.Has(RoleWrite))
	assert.True(t, set.Has(RoleAdmin))
	assert.False(t, set.Has(RoleRead))
	assert.True(t, set.HasAny(RoleRead, RoleAdmin))
	assert.Equal(t, "{ADMIN,WRITE}", set.String())

	_, err := ParseRole("owner")
	assert.Error(t, err)
}

func TestNodeIDSet(t *testing.T) {
	s := NewNodeIDSet("b", "a")

	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []NodeID{"a", "c"}, s.Sorted())

	clone := s.Clone()
	clone.Add("z")
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Equals(clone))

	var empty NodeIDSet
	assert.False(t, empty.Has("a"))
	assert.False(t, empty.Remove("a"))
	assert.Empty(t, empty.Sorted())
	assert.True(t, empty.Equals(NewNodeIDSet()))
}

func TestParseKinds(t *testing.T) {
	kind, err := ParseEdgeKind("derived_from")
	require.NoError(t, err)
	assert.Equal(t, EdgeDerivedFrom, kind)

	_, err = ParseEdgeKind("sibling")
	assert.Error(t, err)

	treeKind, err := ParseTreeKind("")
	require.NoError(t, err)
	assert.Equal(t, TreeKindMediaType, treeKind)

	_, err = ParseTreeKind("albums")
	assert.Error(t, err)
}

func TestNodeIDs(t *testing.T) {
	assert.Equal(t, NodeID("42"), NewNodeIDFromInt(42))

	nodeID, err := NewNodeIDFromString(" rock ")
	require.NoError(t, err)
	assert.Equal(t, NodeID("rock"), nodeID)

	_, err = NewNodeIDFromString("  ")
	assert.Error(t, err)

	_, err = NewTreeID("")
	assert.Error(t, err)
}
