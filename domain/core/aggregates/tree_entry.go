package aggregates

import (
	"fmt"
	"time"

	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// TreeEntry is the registry aggregate root: one named, owned, independently
// versioned taxonomy tree.
type TreeEntry struct {
	id        valueobjects.TreeID
	name      valueobjects.TreeName
	ownerID   valueobjects.UserID
	isMain    bool
	kind      valueobjects.TreeKind
	originID  valueobjects.TreeID
	base      entities.Snapshot
	tree      *Tree
	cfg       *config.DomainConfig
	createdAt time.Time
	updatedAt time.Time
	version   int
	events    []events.DomainEvent
}

// NewTreeEntry registers an empty tree
func NewTreeEntry(id valueobjects.TreeID, name valueobjects.TreeName, ownerID valueobjects.UserID, kind valueobjects.TreeKind, cfg *config.DomainConfig) (*TreeEntry, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("tree ID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := checkTreeName(name, cfg); err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &TreeEntry{
		id:        id,
		name:      name,
		ownerID:   ownerID,
		kind:      kind,
		tree:      NewTreeWithConfig(id, PolicyFor(kind), cfg),
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
	}
	entry.addEvent(events.NewTreeCreated(id, name.String(), ownerID, now))
	return entry, nil
}

// TreeEntryParams carries persisted state back into a TreeEntry
type TreeEntryParams struct {
	ID        valueobjects.TreeID
	Name      string
	OwnerID   valueobjects.UserID
	IsMain    bool
	Kind      valueobjects.TreeKind
	OriginID  valueobjects.TreeID
	Base      entities.Snapshot
	Tree      *Tree
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// ReconstructTreeEntry rebuilds an entry from storage without raising events
func ReconstructTreeEntry(p TreeEntryParams, cfg *config.DomainConfig) (*TreeEntry, error) {
	name, err := valueobjects.NewTreeName(p.Name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	tree := p.Tree
	if tree == nil {
		tree = NewTreeWithConfig(p.ID, PolicyFor(p.Kind), cfg)
	}
	return &TreeEntry{
		id:        p.ID,
		name:      name,
		ownerID:   p.OwnerID,
		isMain:    p.IsMain,
		kind:      p.Kind,
		originID:  p.OriginID,
		base:      p.Base,
		tree:      tree,
		cfg:       cfg,
		createdAt: p.CreatedAt,
		updatedAt: p.UpdatedAt,
		version:   p.Version,
	}, nil
}

// Getters

func (e *TreeEntry) ID() valueobjects.TreeID       { return e.id }
func (e *TreeEntry) Name() valueobjects.TreeName   { return e.name }
func (e *TreeEntry) OwnerID() valueobjects.UserID  { return e.ownerID }
func (e *TreeEntry) IsMain() bool                  { return e.isMain }
func (e *TreeEntry) Kind() valueobjects.TreeKind   { return e.kind }
func (e *TreeEntry) OriginID() valueobjects.TreeID { return e.originID }
func (e *TreeEntry) Base() entities.Snapshot       { return e.base.Clone() }
func (e *TreeEntry) Tree() *Tree                   { return e.tree }
func (e *TreeEntry) CreatedAt() time.Time          { return e.createdAt }
func (e *TreeEntry) UpdatedAt() time.Time          { return e.updatedAt }
func (e *TreeEntry) Version() int                  { return e.version }

// IsOwnedBy reports whether userID owns the tree
func (e *TreeEntry) IsOwnedBy(userID valueobjects.UserID) bool {
	return e.ownerID == userID
}

// Rename changes the display name
func (e *TreeEntry) Rename(name valueobjects.TreeName) error {
	if err := checkTreeName(name, e.cfg); err != nil {
		return err
	}
	if name.String() == e.name.String() {
		return nil
	}
	old := e.name
	e.name = name
	e.touch()
	e.addEvent(events.NewTreeRenamed(e.id, e.version+1, old.String(), name.String(), e.updatedAt))
	return nil
}

// MarkMain flags the entry as the canonical tree. previous is the id of the
// entry that held the flag before, if any.
func (e *TreeEntry) MarkMain(previous valueobjects.TreeID) {
	if e.isMain {
		return
	}
	e.isMain = true
	e.touch()
	e.addEvent(events.NewMainTreeSet(e.id, previous, e.updatedAt))
}

// ClearMain removes the canonical flag
func (e *TreeEntry) ClearMain() {
	if !e.isMain {
		return
	}
	e.isMain = false
	e.touch()
}

// Copy creates an independent tree holding the same nodes and edges. The
// copy remembers this entry as its origin and the current snapshot as its
// merge base.
func (e *TreeEntry) Copy(newID valueobjects.TreeID, name valueobjects.TreeName, ownerID valueobjects.UserID) (*TreeEntry, error) {
	copied, err := NewTreeEntry(newID, name, ownerID, e.kind, e.cfg)
	if err != nil {
		return nil, err
	}
	copied.events = nil

	snapshot := e.tree.Snapshot()
	if _, err := copied.tree.MergeFrom(e.id, entities.Snapshot{}, snapshot); err != nil {
		return nil, fmt.Errorf("failed to copy tree %s: %w", e.id, err)
	}
	copied.tree.CommitSession()
	copied.originID = e.id
	copied.base = snapshot
	copied.addEvent(events.NewTreeCopied(newID, e.id, ownerID, copied.createdAt))
	return copied, nil
}

// MergeBaseFor returns the common ancestor snapshot to use when merging
// source into this entry. Unrelated trees merge against an empty base, which
// makes the merge a plain additive union.
func (e *TreeEntry) MergeBaseFor(source *TreeEntry) entities.Snapshot {
	switch {
	case source.originID == e.id:
		return source.base.Clone()
	case e.originID == source.id:
		return e.base.Clone()
	case e.originID != "" && e.originID == source.originID:
		// Siblings copied from the same origin; the older base is the safer ancestor.
		if e.base.Len() <= source.base.Len() {
			return e.base.Clone()
		}
		return source.base.Clone()
	default:
		return entities.Snapshot{}
	}
}

// Rebase moves the merge base forward, typically after this entry has been
// merged into its origin.
func (e *TreeEntry) Rebase(snapshot entities.Snapshot) {
	e.base = snapshot.Clone()
	e.touch()
}

// Touch records that the tree content changed
func (e *TreeEntry) Touch() {
	e.touch()
}

// IncrementVersion is called by repositories after a successful save
func (e *TreeEntry) IncrementVersion() {
	e.version++
}

// GetUncommittedEvents returns registry events raised since the last save
func (e *TreeEntry) GetUncommittedEvents() []events.DomainEvent {
	return e.events
}

// MarkEventsAsCommitted clears the registry events
func (e *TreeEntry) MarkEventsAsCommitted() {
	e.events = []events.DomainEvent{}
}

func (e *TreeEntry) touch() {
	e.updatedAt = time.Now()
}

func (e *TreeEntry) addEvent(event events.DomainEvent) {
	e.events = append(e.events, event)
}

func checkTreeName(name valueobjects.TreeName, cfg *config.DomainConfig) error {
	if name.String() == "" {
		return &pkgerrors.TreeNameInvalidError{Name: name.String()}
	}
	if len(name.String()) > cfg.MaxTreeNameLength {
		return pkgerrors.NewValidationError(fmt.Sprintf("tree name exceeds %d characters", cfg.MaxTreeNameLength))
	}
	return nil
}
