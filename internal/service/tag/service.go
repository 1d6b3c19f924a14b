// Package tag implements the four-level categorization hierarchy: Category,
// Subcategory, Tag Group, Tag. System-seeded defaults are read-only; user tags
// may be created, edited, moved and deleted, guarded by usage and children.
package tag

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/catalog"
	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	// ListTags returns the system defaults plus the user's own tags.
	ListTags(ctx context.Context, userID uuid.UUID) ([]ledger.Tag, error)
	GetTag(ctx context.Context, userID, tagID uuid.UUID) (ledger.Tag, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error)
	UpdateTag(ctx context.Context, t ledger.Tag) (ledger.Tag, error)
	DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error
	// UpdateTags applies a batch atomically; no partial writes.
	UpdateTags(ctx context.Context, tags []ledger.Tag) error
}

// Node is one entry of the reconstructed hierarchy.
type Node struct {
	ledger.Tag
	Children []*Node
}

// Service exposes tag hierarchy management.
type Service interface {
	CreateItem(ctx context.Context, t ledger.Tag) (ledger.Tag, error)
	UpdateItem(ctx context.Context, t ledger.Tag) (ledger.Tag, error)
	DeleteItem(ctx context.Context, userID, tagID uuid.UUID) error
	MoveItemLevel(ctx context.Context, userID, tagID uuid.UUID, newLevel int, newParentID uuid.UUID) (ledger.Tag, error)
	BulkUpdateItems(ctx context.Context, userID uuid.UUID, items []ledger.Tag) error
	Tree(ctx context.Context, userID uuid.UUID) ([]*Node, error)
	EnsureDefaults(ctx context.Context) error
}

type service struct {
	repo     Repo
	writer   Writer
	defaults []catalog.TagDef
}

// New constructs the service with the injected seed catalog.
func New(repo Repo, writer Writer, defaults []catalog.TagDef) Service {
	return &service{repo: repo, writer: writer, defaults: defaults}
}

func (s *service) CreateItem(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	if t.OwnerID == uuid.Nil {
		return ledger.Tag{}, errs.ErrInvalid
	}
	if t.Name == "" {
		return ledger.Tag{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if t.Level < ledger.LevelCategory || t.Level > ledger.LevelTag {
		return ledger.Tag{}, fmt.Errorf("%w: level must be between 0 and 3", errs.ErrInvalid)
	}
	if t.ParentID == uuid.Nil {
		if t.Level != ledger.LevelCategory {
			return ledger.Tag{}, fmt.Errorf("%w: a tag without a parent must be level 0", errs.ErrInvalid)
		}
	} else {
		parent, err := s.repo.GetTag(ctx, t.OwnerID, t.ParentID)
		if err != nil {
			return ledger.Tag{}, err
		}
		if t.Level != parent.Level+1 {
			return ledger.Tag{}, fmt.Errorf("%w: level must be exactly one below the parent", errs.ErrInvalid)
		}
	}
	t.ID = uuid.New()
	t.IsDefault = false
	t.UsageCount = 0
	return s.writer.CreateTag(ctx, t)
}

// UpdateItem renames or recolors a tag. Level and parent moves go through
// MoveItemLevel; defaults are read-only.
func (s *service) UpdateItem(ctx context.Context, t ledger.Tag) (ledger.Tag, error) {
	if t.OwnerID == uuid.Nil || t.ID == uuid.Nil {
		return ledger.Tag{}, errs.ErrInvalid
	}
	current, err := s.repo.GetTag(ctx, t.OwnerID, t.ID)
	if err != nil {
		return ledger.Tag{}, err
	}
	if current.IsDefault {
		return ledger.Tag{}, errs.ErrDefaultTag
	}
	if current.OwnerID != t.OwnerID {
		return ledger.Tag{}, errs.ErrForbidden
	}
	if t.Name == "" {
		return ledger.Tag{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if t.Level != current.Level || t.ParentID != current.ParentID {
		return ledger.Tag{}, fmt.Errorf("%w: use the move operation to change level or parent", errs.ErrInvalid)
	}
	current.Name = t.Name
	current.Color = t.Color
	return s.writer.UpdateTag(ctx, current)
}

// DeleteItem removes a user tag. A tag referenced by transactions or with
// children is in use and cannot be deleted.
func (s *service) DeleteItem(ctx context.Context, userID, tagID uuid.UUID) error {
	if userID == uuid.Nil || tagID == uuid.Nil {
		return errs.ErrInvalid
	}
	t, err := s.repo.GetTag(ctx, userID, tagID)
	if err != nil {
		return err
	}
	if t.IsDefault {
		return errs.ErrDefaultTag
	}
	if t.OwnerID != userID {
		return errs.ErrForbidden
	}
	if t.UsageCount > 0 {
		return errs.ErrInUse
	}
	children, err := s.hasChildren(ctx, userID, tagID)
	if err != nil {
		return err
	}
	if children {
		return errs.ErrInUse
	}
	return s.writer.DeleteTag(ctx, userID, tagID)
}

// MoveItemLevel relocates a tag in the hierarchy. Children do not move with it,
// so a tag that has children may only be reparented within its current level.
func (s *service) MoveItemLevel(ctx context.Context, userID, tagID uuid.UUID, newLevel int, newParentID uuid.UUID) (ledger.Tag, error) {
	if userID == uuid.Nil || tagID == uuid.Nil {
		return ledger.Tag{}, errs.ErrInvalid
	}
	current, err := s.repo.GetTag(ctx, userID, tagID)
	if err != nil {
		return ledger.Tag{}, err
	}
	if current.IsDefault {
		return ledger.Tag{}, errs.ErrDefaultTag
	}
	if current.OwnerID != userID {
		return ledger.Tag{}, errs.ErrForbidden
	}
	if newLevel < ledger.LevelCategory || newLevel > ledger.LevelTag {
		return ledger.Tag{}, fmt.Errorf("%w: level must be between 0 and 3", errs.ErrInvalid)
	}
	if newParentID == uuid.Nil {
		if newLevel != ledger.LevelCategory {
			return ledger.Tag{}, fmt.Errorf("%w: a tag without a parent must be level 0", errs.ErrInvalid)
		}
	} else {
		if newParentID == tagID {
			return ledger.Tag{}, fmt.Errorf("%w: a tag cannot be its own parent", errs.ErrInvalid)
		}
		parent, err := s.repo.GetTag(ctx, userID, newParentID)
		if err != nil {
			return ledger.Tag{}, err
		}
		if newLevel != parent.Level+1 {
			return ledger.Tag{}, fmt.Errorf("%w: level must be exactly one below the parent", errs.ErrInvalid)
		}
	}
	if newLevel != current.Level {
		children, err := s.hasChildren(ctx, userID, tagID)
		if err != nil {
			return ledger.Tag{}, err
		}
		if children {
			return ledger.Tag{}, fmt.Errorf("%w: a tag with children can only move within its level", errs.ErrInvalid)
		}
	}
	current.Level = newLevel
	current.ParentID = newParentID
	return s.writer.UpdateTag(ctx, current)
}

// BulkUpdateItems renames/recolors a batch of tags atomically. Every item is
// validated before anything is written.
func (s *service) BulkUpdateItems(ctx context.Context, userID uuid.UUID, items []ledger.Tag) error {
	if userID == uuid.Nil {
		return errs.ErrInvalid
	}
	if len(items) == 0 {
		return nil
	}
	batch := make([]ledger.Tag, 0, len(items))
	for i, it := range items {
		current, err := s.repo.GetTag(ctx, userID, it.ID)
		if err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
		if current.IsDefault {
			return fmt.Errorf("item[%d]: %w", i, errs.ErrDefaultTag)
		}
		if current.OwnerID != userID {
			return fmt.Errorf("item[%d]: %w", i, errs.ErrForbidden)
		}
		if it.Name == "" {
			return fmt.Errorf("item[%d]: %w: name is required", i, errs.ErrInvalid)
		}
		if it.Level != current.Level || it.ParentID != current.ParentID {
			return fmt.Errorf("item[%d]: %w: bulk updates cannot move tags", i, errs.ErrInvalid)
		}
		current.Name = it.Name
		current.Color = it.Color
		batch = append(batch, current)
	}
	return s.writer.UpdateTags(ctx, batch)
}

// Tree reconstructs the hierarchy for display. Tags are indexed by id in a flat
// arena and children are resolved by lookup, ordered by level ascending then
// name ascending.
func (s *service) Tree(ctx context.Context, userID uuid.UUID) ([]*Node, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Level != tags[j].Level {
			return tags[i].Level < tags[j].Level
		}
		return tags[i].Name < tags[j].Name
	})
	arena := make([]Node, len(tags))
	index := make(map[uuid.UUID]int, len(tags))
	for i, t := range tags {
		arena[i] = Node{Tag: t}
		index[t.ID] = i
	}
	roots := make([]*Node, 0)
	for i := range arena {
		pid := arena[i].ParentID
		if pid == uuid.Nil {
			roots = append(roots, &arena[i])
			continue
		}
		if pi, ok := index[pid]; ok {
			arena[pi].Children = append(arena[pi].Children, &arena[i])
		} else {
			// Orphaned parent reference; surface the tag rather than hide it.
			roots = append(roots, &arena[i])
		}
	}
	return roots, nil
}

// EnsureDefaults seeds the system hierarchy from the injected catalog. It is
// idempotent: existing defaults are matched by name and level.
func (s *service) EnsureDefaults(ctx context.Context) error {
	existing, err := s.repo.ListTags(ctx, uuid.Nil)
	if err != nil {
		return err
	}
	byKey := make(map[string]ledger.Tag, len(existing))
	for _, t := range existing {
		if t.IsDefault {
			byKey[defaultKey(t.Name, t.Level)] = t
		}
	}
	for _, root := range s.defaults {
		parent, ok := byKey[defaultKey(root.Name, ledger.LevelCategory)]
		if !ok {
			parent = ledger.Tag{
				ID:        uuid.New(),
				Name:      root.Name,
				Color:     root.Color,
				Level:     ledger.LevelCategory,
				IsDefault: true,
			}
			if _, err := s.writer.CreateTag(ctx, parent); err != nil {
				return err
			}
			byKey[defaultKey(parent.Name, parent.Level)] = parent
		}
		for _, child := range root.Children {
			if _, ok := byKey[defaultKey(child.Name, ledger.LevelSubcategory)]; ok {
				continue
			}
			c := ledger.Tag{
				ID:        uuid.New(),
				Name:      child.Name,
				Color:     child.Color,
				Level:     ledger.LevelSubcategory,
				ParentID:  parent.ID,
				IsDefault: true,
			}
			if _, err := s.writer.CreateTag(ctx, c); err != nil {
				return err
			}
			byKey[defaultKey(c.Name, c.Level)] = c
		}
	}
	return nil
}

func (s *service) hasChildren(ctx context.Context, userID, tagID uuid.UUID) (bool, error) {
	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, t := range tags {
		if t.ParentID == tagID {
			return true, nil
		}
	}
	return false, nil
}

func defaultKey(name string, level int) string {
	return fmt.Sprintf("%d:%s", level, name)
}
