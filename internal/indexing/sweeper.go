// Package indexing keeps the Redis entity index in step with Postgres.
//
// Writes queued asynchronously by the API land on the pending list; the
// sweeper drains that list and reindexes every collection touched since its
// previous run.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
)

const pendingBatch = 100

// touchOverlap is how far each sweep looks back past the previous watermark.
// Touch stamps updated_at with its transaction's start time, so a collection
// can become visible only after a sweep whose watermark is already later.
const touchOverlap = 2 * time.Minute

type EntitySource interface {
	ByID(ctx context.Context, id string, includeDeleted bool) (*entities.Entity, error)
	ListByCollection(ctx context.Context, collectionID int64) ([]entities.Entity, error)
}

type CollectionSource interface {
	Now(ctx context.Context) (time.Time, error)
	TouchedSince(ctx context.Context, since time.Time) ([]int64, error)
}

type Index interface {
	UpdateEntity(ctx context.Context, e *entities.Entity, sync bool) error
	Document(ctx context.Context, id string) (*entities.Entity, error)
	PopPending(ctx context.Context, n int) ([]string, error)
	Requeue(ctx context.Context, ids []string) error
	CollectionMembers(ctx context.Context, collectionID int64) ([]string, error)
}

// Stats summarises one sweep.
type Stats struct {
	Pending     int
	Collections int
	Reindexed   int
	Removed     int
}

type Sweeper struct {
	entities    EntitySource
	collections CollectionSource
	index       Index
	limiter     *rate.Limiter
	log         *zap.Logger
	overlap     time.Duration

	mu sync.Mutex
	// last is the database time the previous successful sweep started at.
	last time.Time
}

// NewSweeper reindexes at most perSecond entities per second. The first
// sweep covers collections touched shortly before it started.
func NewSweeper(es EntitySource, cs CollectionSource, ix Index, perSecond int, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Sweeper{
		entities:    es,
		collections: cs,
		index:       ix,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), perSecond),
		log:         log,
		overlap:     touchOverlap,
	}
}

// Sweep runs one pass. Concurrent calls are serialised.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	n, err := s.drain(ctx)
	st.Pending = n
	if err != nil {
		return st, err
	}

	started, err := s.collections.Now(ctx)
	if err != nil {
		return st, err
	}
	since := s.last
	if since.IsZero() {
		since = started
	}

	ids, err := s.collections.TouchedSince(ctx, since.Add(-s.overlap))
	if err != nil {
		return st, fmt.Errorf("touched collections: %w", err)
	}
	for _, cid := range ids {
		reindexed, removed, err := s.reindexCollection(ctx, cid)
		st.Reindexed += reindexed
		st.Removed += removed
		if err != nil {
			return st, fmt.Errorf("collection %d: %w", cid, err)
		}
		st.Collections++
	}
	s.last = started
	return st, nil
}

// drain indexes every queued entity id. When an id fails, it and the rest of
// its batch go back on the queue before the error is returned.
func (s *Sweeper) drain(ctx context.Context) (int, error) {
	total := 0
	for {
		ids, err := s.index.PopPending(ctx, pendingBatch)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		for i, id := range ids {
			indexed, err := s.drainOne(ctx, id)
			if err != nil {
				if rerr := s.index.Requeue(context.WithoutCancel(ctx), ids[i:]); rerr != nil {
					s.log.Error("requeue pending entities",
						zap.Strings("entity_ids", ids[i:]),
						zap.Error(rerr))
				}
				return total, err
			}
			if indexed {
				total++
			}
		}
	}
}

// drainOne brings the index document of id in line with its row. A row that
// no longer exists takes its document with it.
func (s *Sweeper) drainOne(ctx context.Context, id string) (bool, error) {
	e, err := s.entities.ByID(ctx, id, true)
	if errors.Is(err, entities.ErrNotFound) {
		doc, derr := s.index.Document(ctx, id)
		if errors.Is(derr, entities.ErrNotFound) {
			s.log.Debug("pending entity vanished", zap.String("entity_id", id))
			return false, nil
		}
		if derr != nil {
			return false, derr
		}
		now := time.Now()
		doc.DeletedAt = &now
		e = doc
	} else if err != nil {
		return false, fmt.Errorf("load entity %s: %w", id, err)
	}
	if err := s.update(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sweeper) reindexCollection(ctx context.Context, collectionID int64) (int, int, error) {
	live, err := s.entities.ListByCollection(ctx, collectionID)
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[string]struct{}, len(live))
	reindexed := 0
	for i := range live {
		seen[live[i].ID] = struct{}{}
		if err := s.update(ctx, &live[i]); err != nil {
			return reindexed, 0, err
		}
		reindexed++
	}

	members, err := s.index.CollectionMembers(ctx, collectionID)
	if err != nil {
		return reindexed, 0, err
	}
	removed := 0
	for _, id := range members {
		if _, ok := seen[id]; ok {
			continue
		}
		e, err := s.entities.ByID(ctx, id, true)
		if errors.Is(err, entities.ErrNotFound) {
			now := time.Now()
			e = &entities.Entity{ID: id, CollectionID: collectionID, DeletedAt: &now}
		} else if err != nil {
			return reindexed, removed, err
		}
		if err := s.update(ctx, e); err != nil {
			return reindexed, removed, err
		}
		removed++
	}
	return reindexed, removed, nil
}

func (s *Sweeper) update(ctx context.Context, e *entities.Entity) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.index.UpdateEntity(ctx, e, true); err != nil {
		return fmt.Errorf("index entity %s: %w", e.ID, err)
	}
	return nil
}

// Start schedules Sweep on a six-field (seconds first) cron spec. Stop the
// returned scheduler to end sweeping.
func (s *Sweeper) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(spec, func() {
		st, err := s.Sweep(ctx)
		fields := []zap.Field{
			zap.Int("pending", st.Pending),
			zap.Int("collections", st.Collections),
			zap.Int("reindexed", st.Reindexed),
			zap.Int("removed", st.Removed),
		}
		if err != nil {
			s.log.Error("index sweep failed", append(fields, zap.Error(err))...)
			return
		}
		s.log.Info("index sweep completed", fields...)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}
