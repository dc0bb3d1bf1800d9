package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/riskrag/internal/db"
	"github.com/kailas-cloud/riskrag/internal/domain"
	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
)

// anonymousUser keys the history index of assessments saved without an owner.
const anonymousUser = "_anonymous"

// store is the consumer interface for assessments (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo stores assessments as JSON strings with a per-user sorted-set history index.
type Repo struct {
	store  store
	prefix string
}

// New creates a Redis-backed assessment repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) recordKey(id string) string { return r.prefix + "assessment:" + id }

func (r *Repo) historyKey(userID string) string {
	if userID == "" {
		userID = anonymousUser
	}
	return r.prefix + "history:" + userID
}

// Save writes the record, then indexes it by creation time. Rolls back the record on index failure.
func (r *Repo) Save(ctx context.Context, a domasm.Assessment) error {
	data, err := marshalRecord(a)
	if err != nil {
		return err
	}

	key := r.recordKey(a.ID())
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set assessment %s: %w", a.ID(), err)
	}

	score := float64(a.CreatedAt().UnixMilli())
	if err := r.store.ZAdd(ctx, r.historyKey(a.UserID()), score, a.ID()); err != nil {
		cleanupErr := r.store.Del(ctx, key)
		return errors.Join(fmt.Errorf("index assessment %s: %w", a.ID(), err), cleanupErr)
	}
	return nil
}

// Get loads an assessment by ID.
func (r *Repo) Get(ctx context.Context, id string) (domasm.Assessment, error) {
	data, err := r.store.Get(ctx, r.recordKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domasm.Assessment{}, domain.ErrNotFound
		}
		return domasm.Assessment{}, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return unmarshalRecord(data)
}

// ListByUser returns a page of the user's assessments, newest first.
// Index entries whose record has gone missing are skipped.
func (r *Repo) ListByUser(ctx context.Context, userID string, skip, limit int) ([]domasm.Assessment, error) {
	if limit <= 0 {
		return []domasm.Assessment{}, nil
	}

	ids, err := r.store.ZRevRange(ctx, r.historyKey(userID), int64(skip), int64(skip+limit-1))
	if err != nil {
		return nil, fmt.Errorf("range history %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return []domasm.Assessment{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	blobs, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get assessments: %w", err)
	}

	out := make([]domasm.Assessment, 0, len(blobs))
	for i, data := range blobs {
		if data == nil {
			continue
		}
		a, err := unmarshalRecord(data)
		if err != nil {
			return nil, fmt.Errorf("parse assessment %s: %w", ids[i], err)
		}
		out = append(out, a)
	}
	return out, nil
}

// CountByUser returns the size of the user's history.
func (r *Repo) CountByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.store.ZCard(ctx, r.historyKey(userID))
	if err != nil {
		return 0, fmt.Errorf("count history %s: %w", userID, err)
	}
	return int(n), nil
}
