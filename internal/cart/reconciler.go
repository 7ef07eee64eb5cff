package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/example/storefront/internal/event"
)

// MergeResult accounts for one reconciliation invocation.
type MergeResult struct {
	// Merged counts snapshot items folded into existing rows.
	Merged int `json:"merged"`
	// Inserted counts snapshot items that became new rows.
	Inserted int `json:"inserted"`
	// Failed counts snapshot items that could not be applied. The snapshot
	// is retained whenever this is non-zero.
	Failed int `json:"failed"`
	// SnapshotCleared is true when the snapshot key was removed.
	SnapshotCleared bool `json:"snapshot_cleared"`
	// Cart is the re-fetched authenticated cart, the new source of truth.
	Cart []LineItem `json:"cart"`
}

// CartMerged is published after a merge so connected clients refresh their
// cart view.
type CartMerged struct {
	UserID   string `json:"user_id"`
	Merged   int    `json:"merged"`
	Inserted int    `json:"inserted"`
	Failed   int    `json:"failed"`
}

// Reconciler migrates an anonymous cart snapshot into the authenticated cart
// on the transition from no identity to a present identity.
//
// Concurrent invocations for the same identity are coalesced behind a
// single-flight group: the second caller waits for and shares the first
// invocation's outcome instead of racing it. Across processes the
// UNIQUE (owner_id, product_id, size) constraint is the backstop; an insert
// losing that race is converted to an update-increment.
type Reconciler struct {
	store     Store
	snapshots SnapshotStore
	notifier  Notifier
	publisher event.Publisher
	group     singleflight.Group
}

func NewReconciler(store Store, snapshots SnapshotStore, notifier Notifier, publisher event.Publisher) *Reconciler {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Reconciler{
		store:     store,
		snapshots: snapshots,
		notifier:  notifier,
		publisher: publisher,
	}
}

// Reconcile applies the snapshot under snapshotKey to userID's cart and
// returns the refreshed cart. It is safe to call on every sign-in: an empty
// or missing snapshot is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, userID, snapshotKey string) (*MergeResult, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	v, err, _ := r.group.Do(userID, func() (any, error) {
		return r.merge(ctx, userID, snapshotKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*MergeResult), nil
}

func (r *Reconciler) merge(ctx context.Context, userID, snapshotKey string) (*MergeResult, error) {
	snapshot, err := r.snapshots.Load(ctx, snapshotKey)
	if err != nil {
		r.notifier.Notify("error", "Your saved cart could not be loaded; it will be retried on your next sign-in.")
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	result := &MergeResult{}

	if len(snapshot) == 0 {
		// Nothing to migrate; no writes are issued.
		cart, err := r.store.FetchByOwner(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("fetch cart: %w", err)
		}
		result.Cart = cart
		return result, nil
	}

	// Fetched fresh, not assumed empty. A failure here aborts the whole
	// merge with the snapshot intact.
	if _, err := r.store.FetchByOwner(ctx, userID); err != nil {
		r.notifier.Notify("error", "Your saved cart could not be merged; it will be retried on your next sign-in.")
		return nil, fmt.Errorf("fetch cart: %w", err)
	}

	for _, item := range snapshot {
		if err := item.validate(); err != nil {
			log.Printf("[Reconciler] Skipping invalid snapshot item %s/%s for %s: %v", item.ProductID, item.Size, userID, err)
			result.Failed++
			continue
		}
		if err := r.applyItem(ctx, userID, item, result); err != nil {
			log.Printf("[Reconciler] Failed to merge %s/%s for %s: %v", item.ProductID, item.Size, userID, err)
			r.notifier.Notify("warning", fmt.Sprintf("One cart item (%s) could not be merged and will be retried.", item.ProductID))
			result.Failed++
		}
	}

	// The refreshed cart is the new source of truth; locally accumulated
	// state is not trusted because concurrent server-side changes are
	// possible. If the re-fetch fails the snapshot stays in place so no
	// item whose outcome is unconfirmed is discarded.
	cart, err := r.store.FetchByOwner(ctx, userID)
	if err != nil {
		r.notifier.Notify("error", "Your cart could not be refreshed; merge will be retried on your next sign-in.")
		return nil, fmt.Errorf("refetch cart: %w", err)
	}
	result.Cart = cart

	if result.Failed == 0 {
		if err := r.snapshots.Clear(ctx, snapshotKey); err != nil {
			// Retrying an already-applied snapshot only re-increments
			// quantities, so surface it rather than fail the merge.
			log.Printf("[Reconciler] Failed to clear snapshot %s: %v", snapshotKey, err)
		} else {
			result.SnapshotCleared = true
		}
	}

	r.publishMerged(ctx, userID, result)
	return result, nil
}

// applyItem merges a single snapshot item: update-increment when the pair
// exists, insert when it does not. An insert losing the uniqueness race is
// converted to an update-increment and retried once.
func (r *Reconciler) applyItem(ctx context.Context, userID string, item SnapshotItem, result *MergeResult) error {
	existing, err := r.store.Find(ctx, userID, item.ProductID, item.Size)
	switch {
	case err == nil:
		if _, err := r.store.UpdateQuantity(ctx, existing.ID, existing.Quantity+item.Quantity); err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		result.Merged++
		return nil

	case errors.Is(err, ErrItemNotFound):
		_, err := r.store.Insert(ctx, userID, item.ProductID, item.Size, item.Quantity)
		if errors.Is(err, ErrDuplicateItem) {
			// A concurrent writer inserted the pair between the check and
			// the write. Treat as "already present".
			return r.incrementExisting(ctx, userID, item, result)
		}
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		result.Inserted++
		return nil

	default:
		// An unconditional insert after a failed existence check risks a
		// duplicate pair, so the item is aborted instead.
		return fmt.Errorf("existence check: %w", err)
	}
}

func (r *Reconciler) incrementExisting(ctx context.Context, userID string, item SnapshotItem, result *MergeResult) error {
	existing, err := r.store.Find(ctx, userID, item.ProductID, item.Size)
	if err != nil {
		return fmt.Errorf("re-find after duplicate: %w", err)
	}
	if _, err := r.store.UpdateQuantity(ctx, existing.ID, existing.Quantity+item.Quantity); err != nil {
		return fmt.Errorf("update after duplicate: %w", err)
	}
	result.Merged++
	return nil
}

func (r *Reconciler) publishMerged(ctx context.Context, userID string, result *MergeResult) {
	if r.publisher == nil || result.Merged+result.Inserted == 0 {
		return
	}
	env, err := event.New(event.TypeCartMerged, userID, CartMerged{
		UserID:   userID,
		Merged:   result.Merged,
		Inserted: result.Inserted,
		Failed:   result.Failed,
	})
	if err != nil {
		return
	}
	if err := r.publisher.Publish(ctx, userID, env); err != nil {
		log.Printf("[Reconciler] Failed to publish merge event for %s: %v", userID, err)
	}
}

// LogNotifier reports merge outcomes to the process log. The API layer
// replaces it with a per-request notifier that surfaces messages to the user.
type LogNotifier struct{}

func (LogNotifier) Notify(kind, message string) {
	log.Printf("[Notify] %s: %s", kind, message)
}
