package tag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/raragao87/opheliahub/internal/catalog"
	"github.com/raragao87/opheliahub/internal/errs"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, Service, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	svc := New(store, store, catalog.DefaultTagTree())
	return store, svc, uuid.New()
}

func TestCreateItem_LevelInvariant(t *testing.T) {
	_, svc, owner := setup(t)

	root, err := svc.CreateItem(context.Background(), ledger.Tag{
		OwnerID: owner, Name: "Hobbies", Level: ledger.LevelCategory,
	})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := svc.CreateItem(context.Background(), ledger.Tag{
		OwnerID: owner, Name: "Climbing", Level: ledger.LevelSubcategory, ParentID: root.ID,
	})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.Level != root.Level+1 {
		t.Fatalf("level = %d, want %d", child.Level, root.Level+1)
	}

	// Skipping a level is rejected.
	if _, err := svc.CreateItem(context.Background(), ledger.Tag{
		OwnerID: owner, Name: "Gear", Level: ledger.LevelTag, ParentID: root.ID,
	}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	// A root must be level 0.
	if _, err := svc.CreateItem(context.Background(), ledger.Tag{
		OwnerID: owner, Name: "Floating", Level: ledger.LevelTagGroup,
	}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDeleteItem_Guards(t *testing.T) {
	store, svc, owner := setup(t)

	root, err := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Travel", Level: ledger.LevelCategory})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	child, err := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Flights", Level: ledger.LevelSubcategory, ParentID: root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	// Parent has a child.
	if err := svc.DeleteItem(context.Background(), owner, root.ID); !errors.Is(err, errs.ErrInUse) {
		t.Fatalf("delete with children err = %v, want ErrInUse", err)
	}
	// Referenced tags cannot be deleted.
	if err := store.AdjustTagUsage(context.Background(), map[uuid.UUID]int{child.ID: 1}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := svc.DeleteItem(context.Background(), owner, child.ID); !errors.Is(err, errs.ErrInUse) {
		t.Fatalf("delete in-use err = %v, want ErrInUse", err)
	}
	// Store unchanged after failed deletes.
	if _, err := store.GetTag(context.Background(), owner, root.ID); err != nil {
		t.Fatalf("root disappeared: %v", err)
	}

	if err := store.AdjustTagUsage(context.Background(), map[uuid.UUID]int{child.ID: -1}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := svc.DeleteItem(context.Background(), owner, child.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteItem(context.Background(), owner, root.ID); err != nil {
		t.Fatalf("delete root: %v", err)
	}
}

func TestDefaults_ReadOnlyAndIdempotentSeed(t *testing.T) {
	store, svc, owner := setup(t)

	if err := svc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := store.ListTags(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("no defaults seeded")
	}
	// Second run creates nothing new.
	if err := svc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	second, err := store.ListTags(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("re-seed changed count: %d -> %d", len(first), len(second))
	}

	def := first[0]
	if _, err := svc.UpdateItem(context.Background(), ledger.Tag{ID: def.ID, OwnerID: owner, Name: "Renamed", Level: def.Level, ParentID: def.ParentID}); !errors.Is(err, errs.ErrDefaultTag) {
		t.Fatalf("update default err = %v, want ErrDefaultTag", err)
	}
	if err := svc.DeleteItem(context.Background(), owner, def.ID); !errors.Is(err, errs.ErrDefaultTag) {
		t.Fatalf("delete default err = %v, want ErrDefaultTag", err)
	}
}

func TestMoveItemLevel(t *testing.T) {
	_, svc, owner := setup(t)

	a, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "A", Level: ledger.LevelCategory})
	b, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "B", Level: ledger.LevelCategory})
	leaf, err := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Leaf", Level: ledger.LevelSubcategory, ParentID: a.ID})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	// Reparent within the same level.
	moved, err := svc.MoveItemLevel(context.Background(), owner, leaf.ID, ledger.LevelSubcategory, b.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ParentID != b.ID {
		t.Fatalf("parent = %s, want %s", moved.ParentID, b.ID)
	}

	// A tag with children cannot change level.
	if _, err := svc.MoveItemLevel(context.Background(), owner, b.ID, ledger.LevelSubcategory, a.ID); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("move with children err = %v, want ErrInvalid", err)
	}
	// Self-parenting is rejected.
	if _, err := svc.MoveItemLevel(context.Background(), owner, a.ID, ledger.LevelSubcategory, a.ID); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("self parent err = %v, want ErrInvalid", err)
	}
}

func TestTree_RebuildsHierarchy(t *testing.T) {
	_, svc, owner := setup(t)

	root, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Home", Level: ledger.LevelCategory})
	childA, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Garden", Level: ledger.LevelSubcategory, ParentID: root.ID})
	childB, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "Kitchen", Level: ledger.LevelSubcategory, ParentID: root.ID})

	roots, err := svc.Tree(context.Background(), owner)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	var home *Node
	for _, n := range roots {
		if n.ID == root.ID {
			home = n
		}
	}
	if home == nil {
		t.Fatal("root not in tree")
	}
	if len(home.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(home.Children))
	}
	// Name-ascending within a level.
	if home.Children[0].ID != childA.ID || home.Children[1].ID != childB.ID {
		t.Fatalf("children out of order: %s, %s", home.Children[0].Name, home.Children[1].Name)
	}
}

func TestBulkUpdateItems_AllOrNothing(t *testing.T) {
	store, svc, owner := setup(t)

	a, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "A", Level: ledger.LevelCategory})
	b, _ := svc.CreateItem(context.Background(), ledger.Tag{OwnerID: owner, Name: "B", Level: ledger.LevelCategory})

	err := svc.BulkUpdateItems(context.Background(), owner, []ledger.Tag{
		{ID: a.ID, OwnerID: owner, Name: "A2", Level: a.Level},
		{ID: b.ID, OwnerID: owner, Name: "", Level: b.Level},
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	// First item must not have been written.
	got, _ := store.GetTag(context.Background(), owner, a.ID)
	if got.Name != "A" {
		t.Fatalf("name = %q, want A (batch must be atomic)", got.Name)
	}

	if err := svc.BulkUpdateItems(context.Background(), owner, []ledger.Tag{
		{ID: a.ID, OwnerID: owner, Name: "A2", Level: a.Level},
		{ID: b.ID, OwnerID: owner, Name: "B2", Level: b.Level},
	}); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	got, _ = store.GetTag(context.Background(), owner, a.ID)
	if got.Name != "A2" {
		t.Fatalf("name = %q, want A2", got.Name)
	}
}
