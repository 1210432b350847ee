package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix        = "idx:entity:"     // Index document: idx:entity:{entity_id}
	collectionSetPrefix = "idx:collection:" // Set of entity ids: idx:collection:{collection_id}:entities
	eventChannelPrefix  = "idx:events:"     // Pub/Sub channel: idx:events:{collection_id}
	pendingKey          = "idx:pending"     // List of entity ids awaiting async reindex

	EventEntityUpdated = "entity.updated"
)

// Event is published whenever an entity document is (re)written.
type Event struct {
	Type         string    `json:"type"`
	EntityID     string    `json:"entity_id"`
	CollectionID int64     `json:"collection_id"`
	At           time.Time `json:"at"`
}

// Indexer keeps the Redis search documents in line with Postgres.
type Indexer struct {
	client *redis.Client
}

func NewIndexer(client *redis.Client) *Indexer {
	return &Indexer{client: client}
}

// UpdateEntity propagates an entity change. With sync the document is written
// and the event published before returning; otherwise the id is queued for
// the sweeper.
func (ix *Indexer) UpdateEntity(ctx context.Context, e *Entity, sync bool) error {
	if !sync {
		if err := ix.client.LPush(ctx, pendingKey, e.ID).Err(); err != nil {
			return fmt.Errorf("queue entity %s: %w", e.ID, err)
		}
		return nil
	}

	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", e.ID, err)
	}

	pipe := ix.client.TxPipeline()
	if e.Deleted() {
		pipe.Del(ctx, docKey(e.ID))
		pipe.SRem(ctx, collectionSetKey(e.CollectionID), e.ID)
	} else {
		pipe.Set(ctx, docKey(e.ID), doc, 0)
		pipe.SAdd(ctx, collectionSetKey(e.CollectionID), e.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index entity %s: %w", e.ID, err)
	}

	event, err := json.Marshal(Event{
		Type:         EventEntityUpdated,
		EntityID:     e.ID,
		CollectionID: e.CollectionID,
		At:           time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", e.ID, err)
	}
	if err := ix.client.Publish(ctx, eventChannel(e.CollectionID), event).Err(); err != nil {
		return fmt.Errorf("publish event for %s: %w", e.ID, err)
	}
	return nil
}

// Document returns the indexed copy of an entity.
func (ix *Indexer) Document(ctx context.Context, id string) (*Entity, error) {
	data, err := ix.client.Get(ctx, docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity document: %w", err)
	}

	var e Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entity document: %w", err)
	}
	return &e, nil
}

// CollectionMembers lists the indexed entity ids of a collection.
func (ix *Indexer) CollectionMembers(ctx context.Context, collectionID int64) ([]string, error) {
	return ix.client.SMembers(ctx, collectionSetKey(collectionID)).Result()
}

// PopPending removes up to n queued entity ids, oldest first.
func (ix *Indexer) PopPending(ctx context.Context, n int) ([]string, error) {
	ids, err := ix.client.RPopCount(ctx, pendingKey, n).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop pending: %w", err)
	}
	return ids, nil
}

// Requeue puts ids back at the head of the pending list so the next
// PopPending returns them first, in the given order.
func (ix *Indexer) Requeue(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[len(ids)-1-i] = id
	}
	if err := ix.client.RPush(ctx, pendingKey, vals...).Err(); err != nil {
		return fmt.Errorf("requeue pending: %w", err)
	}
	return nil
}

// Subscribe listens for entity events of one collection.
func (ix *Indexer) Subscribe(ctx context.Context, collectionID int64) *redis.PubSub {
	return ix.client.Subscribe(ctx, eventChannel(collectionID))
}

func docKey(id string) string {
	return fmt.Sprintf("%s%s", docKeyPrefix, id)
}

func collectionSetKey(collectionID int64) string {
	return fmt.Sprintf("%s%d:entities", collectionSetPrefix, collectionID)
}

func eventChannel(collectionID int64) string {
	return fmt.Sprintf("%s%d", eventChannelPrefix, collectionID)
}
