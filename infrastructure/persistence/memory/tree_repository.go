package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// treeRecord is the stored form of an entry. Entries are rebuilt on every
// read so callers never share a Tree with the store.
type treeRecord struct {
	id          valueobjects.TreeID
	name        string
	ownerID     valueobjects.UserID
	isMain      bool
	kind        valueobjects.TreeKind
	originID    valueobjects.TreeID
	base        entities.Snapshot
	snapshot    entities.Snapshot
	treeVersion int
	createdAt   time.Time
	updatedAt   time.Time
	version     int
}

// InMemoryTreeRepository provides an in-memory implementation of TreeRepository
type InMemoryTreeRepository struct {
	mu      sync.RWMutex
	records map[valueobjects.TreeID]*treeRecord
	cfg     *config.DomainConfig
}

var _ ports.TreeRepository = (*InMemoryTreeRepository)(nil)

// NewInMemoryTreeRepository creates a new in-memory tree repository
func NewInMemoryTreeRepository(cfg *config.DomainConfig) *InMemoryTreeRepository {
	return &InMemoryTreeRepository{
		records: make(map[valueobjects.TreeID]*treeRecord),
		cfg:     cfg,
	}
}

// Create stores a new entry
func (r *InMemoryTreeRepository) Create(ctx context.Context, entry *aggregates.TreeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[entry.ID()]; exists {
		return &pkgerrors.TreeAlreadyExistsError{TreeID: entry.ID().String()}
	}
	if err := r.checkSingleMain(entry); err != nil {
		return err
	}

	entry.IncrementVersion()
	r.records[entry.ID()] = toRecord(entry)
	return nil
}

// Save stores an existing entry if nobody saved it in the meantime
func (r *InMemoryTreeRepository) Save(ctx context.Context, entry *aggregates.TreeEntry) error {
	return r.SaveAll(ctx, entry)
}

// SaveAll saves several entries; either all of them are written or none
func (r *InMemoryTreeRepository) SaveAll(ctx context.Context, entries ...*aggregates.TreeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		stored, exists := r.records[entry.ID()]
		if !exists {
			return &pkgerrors.TreeNotFoundError{TreeID: entry.ID().String()}
		}
		if stored.version != entry.Version() {
			return pkgerrors.NewConflictError(fmt.Sprintf("tree %s was modified concurrently", entry.ID())).
				WithDetails(map[string]interface{}{"expected": entry.Version(), "actual": stored.version})
		}
	}
	if err := r.checkSingleMain(entries...); err != nil {
		return err
	}

	for _, entry := range entries {
		entry.IncrementVersion()
		r.records[entry.ID()] = toRecord(entry)
	}
	return nil
}

// GetByID loads an entry
func (r *InMemoryTreeRepository) GetByID(ctx context.Context, id valueobjects.TreeID) (*aggregates.TreeEntry, error) {
	r.mu.RLock()
	record, exists := r.records[id]
	r.mu.RUnlock()

	if !exists {
		return nil, &pkgerrors.TreeNotFoundError{TreeID: id.String()}
	}
	return r.fromRecord(record)
}

// Exists reports whether an id is taken
func (r *InMemoryTreeRepository) Exists(ctx context.Context, id valueobjects.TreeID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.records[id]
	return exists, nil
}

// GetMain returns the main entry, or nil if none is flagged
func (r *InMemoryTreeRepository) GetMain(ctx context.Context) (*aggregates.TreeEntry, error) {
	r.mu.RLock()
	var main *treeRecord
	for _, record := range r.records {
		if record.isMain {
			main = record
			break
		}
	}
	r.mu.RUnlock()

	if main == nil {
		return nil, nil
	}
	return r.fromRecord(main)
}

// List returns every entry ordered by id
func (r *InMemoryTreeRepository) List(ctx context.Context) ([]*aggregates.TreeEntry, error) {
	r.mu.RLock()
	records := make([]*treeRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].id < records[j].id })

	entries := make([]*aggregates.TreeEntry, 0, len(records))
	for _, record := range records {
		entry, err := r.fromRecord(record)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// checkSingleMain rejects a write that would leave two entries flagged main.
// Caller must hold the lock.
func (r *InMemoryTreeRepository) checkSingleMain(entries ...*aggregates.TreeEntry) error {
	pending := make(map[valueobjects.TreeID]bool, len(r.records)+len(entries))
	for id, record := range r.records {
		pending[id] = record.isMain
	}
	for _, entry := range entries {
		pending[entry.ID()] = entry.IsMain()
	}

	mains := 0
	for _, isMain := range pending {
		if isMain {
			mains++
		}
	}
	if mains > 1 {
		return pkgerrors.NewConflictError("another tree is already main")
	}
	return nil
}

func toRecord(entry *aggregates.TreeEntry) *treeRecord {
	return &treeRecord{
		id:          entry.ID(),
		name:        entry.Name().String(),
		ownerID:     entry.OwnerID(),
		isMain:      entry.IsMain(),
		kind:        entry.Kind(),
		originID:    entry.OriginID(),
		base:        entry.Base(),
		snapshot:    entry.Tree().Snapshot(),
		treeVersion: entry.Tree().Version(),
		createdAt:   entry.CreatedAt(),
		updatedAt:   entry.UpdatedAt(),
		version:     entry.Version(),
	}
}

func (r *InMemoryTreeRepository) fromRecord(record *treeRecord) (*aggregates.TreeEntry, error) {
	tree, err := aggregates.TreeFromSnapshot(record.id, aggregates.PolicyFor(record.kind), r.cfg, record.snapshot, record.treeVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to restore tree %s: %w", record.id, err)
	}
	return aggregates.ReconstructTreeEntry(aggregates.TreeEntryParams{
		ID:        record.id,
		Name:      record.name,
		OwnerID:   record.ownerID,
		IsMain:    record.isMain,
		Kind:      record.kind,
		OriginID:  record.originID,
		Base:      record.base.Clone(),
		Tree:      tree,
		CreatedAt: record.createdAt,
		UpdatedAt: record.updatedAt,
		Version:   record.version,
	}, r.cfg)
}
