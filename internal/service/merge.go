package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/storefront/internal/bus"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/localcart"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type MergeFailure struct {
	Entry cart.Entry
	Err   error
}

type MergeResult struct {
	// Skipped is set when the identity is not durable and nothing was touched.
	Skipped bool
	Merged  []cart.Entry
	Failed  []MergeFailure
	// Restored lists failed entries put back into the local cart after a
	// storage error so a later merge can retry them.
	Restored []cart.Entry
	// Count is the authoritative server count after the merge.
	Count int
}

// Merger folds the local cart of a browser session into the server cart
// when the session gains a durable identity. Each entry is added on its
// own; a failing entry is logged and skipped so the rest still arrives.
// Entries that failed on storage go back to the local cart; unknown or
// invalid products are dropped.
type Merger struct {
	Local  localcart.Store
	Repo   CartRepository
	Bus    *bus.Bus
	Events mykafka.Publisher

	inflight singleflight.Group
}

// OnIdentityEstablished runs at most one merge per browser session at a
// time. A caller arriving while a merge is running shares its result. The
// merge outlives the cancellation of ctx, since drained entries exist only in
// memory until they are written.
func (m *Merger) OnIdentityEstablished(ctx context.Context, sess Session) (*MergeResult, error) {
	if !sess.Identity.Durable() {
		return &MergeResult{Skipped: true}, nil
	}

	v, err, _ := m.inflight.Do(sess.Token, func() (any, error) {
		return m.merge(context.WithoutCancel(ctx), sess)
	})
	if err != nil {
		return nil, err
	}
	return v.(*MergeResult), nil
}

func (m *Merger) merge(ctx context.Context, sess Session) (*MergeResult, error) {
	l := logging.FromContext(ctx).With("user", sess.Identity.String())

	drained, err := m.Local.For(sess.Token).Drain(ctx)
	if err != nil {
		return nil, translate("drain local cart", err)
	}

	res := &MergeResult{}
	if len(drained) == 0 {
		return res, nil
	}

	local := m.Local.For(sess.Token)
	server := NewServerCart(m.Repo, sess.Identity)
	for _, e := range drained {
		err := server.Add(ctx, e.ProductID, e.Quantity)
		if err == nil {
			res.Merged = append(res.Merged, e)
			continue
		}

		l.Warn("merge_entry_failed", "product_id", e.ProductID, "quantity", e.Quantity, "error", err)
		res.Failed = append(res.Failed, MergeFailure{Entry: e, Err: err})
		if !errors.Is(err, ErrStorage) {
			continue
		}
		if err := local.Add(ctx, e.ProductID, e.Quantity); err != nil {
			l.Error("merge_restore_failed", "product_id", e.ProductID, "quantity", e.Quantity, "error", err)
			continue
		}
		res.Restored = append(res.Restored, e)
	}

	count, err := server.Count(ctx)
	if err != nil {
		l.Warn("merge_count_failed", "error", err)
	} else {
		res.Count = count
		m.Bus.PublishAuthoritative(sess.Token, count)
	}

	if m.Events != nil {
		ev := mykafka.CartEvent{
			Type:   mykafka.EventCartMerged,
			UserID: sess.Identity.ID(),
			Merged: len(res.Merged),
			Failed: len(res.Failed),
			At:     time.Now().UTC(),
		}
		if err := m.Events.PublishEvent(ctx, mykafka.TopicCartEvents, strconv.FormatInt(ev.UserID, 10), ev); err != nil {
			l.Error("kafka_publish_error", "topic", mykafka.TopicCartEvents, "error", err)
		}
	}

	l.Info("cart_merged", "merged", len(res.Merged), "failed", len(res.Failed), "restored", len(res.Restored), "count", res.Count)
	return res, nil
}
