package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const (
	projectKeyPrefix     = "review:project:"     // Project snapshot: review:project:{id}
	participantKeyPrefix = "review:participant:" // Sorted set of project IDs by createdAt: review:participant:{user_id}
	statusKeyPrefix      = "review:status:"      // Set of project IDs in a status: review:status:{status}
)

// RedisRepository stores each project as one JSON document and keeps the
// participant and status indexes next to it. Conditional writes use
// WATCH/MULTI on the project key.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	p, err := r.load(ctx, r.client, id)
	if err != nil {
		return nil, upstream("projects.get", err)
	}
	return p, nil
}

func (r *RedisRepository) Insert(ctx context.Context, p *domain.Project) error {
	key := projectKey(p.ID)
	stored := p.Clone()
	stored.Version = 1

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateID
		}
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal project: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			indexParticipants(ctx, pipe, stored, stored.Participants())
			pipe.SAdd(ctx, statusKey(stored.Status), stored.ID)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrDuplicateID
	}
	if err != nil {
		return upstream("projects.insert", err)
	}
	p.Version = 1
	return nil
}

func (r *RedisRepository) Put(ctx context.Context, p *domain.Project, expectedVersion int64) error {
	key := projectKey(p.ID)
	next := p.Clone()
	next.Version = expectedVersion + 1

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.load(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return staleVersion("", p.ID, expectedVersion, cur.Version)
		}
		if err := checkHistory("", len(cur.Feedback), next.Feedback); err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal project: %w", err)
		}

		gone, _ := lo.Difference(cur.Participants(), next.Participants())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			for _, uid := range gone {
				pipe.ZRem(ctx, participantKey(uid), p.ID)
			}
			indexParticipants(ctx, pipe, next, next.Participants())
			if cur.Status != next.Status {
				pipe.SRem(ctx, statusKey(cur.Status), p.ID)
				pipe.SAdd(ctx, statusKey(next.Status), p.ID)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return lostRace("projects.put", p.ID)
	}
	if err != nil {
		return upstream("projects.put", err)
	}
	p.Version = next.Version
	return nil
}

func (r *RedisRepository) QueryByParticipant(ctx context.Context, userID string, q domain.ListQuery) ([]*domain.Project, error) {
	ids, err := r.ProjectIDsByParticipant(ctx, userID)
	if err != nil {
		return nil, upstream("projects.query", err)
	}
	out := make([]*domain.Project, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return projectKey(id) })
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, upstream("projects.query", fmt.Errorf("failed to load projects: %w", err))
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// index entry outlived its project
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, upstream("projects.query", fmt.Errorf("failed to unmarshal project: %w", err))
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, &p)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (r *RedisRepository) ProjectIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.client.ZRevRange(ctx, participantKey(userID), 0, -1).Result()
	if err != nil {
		return nil, upstream("projects.participant_ids", fmt.Errorf("failed to list project ids: %w", err))
	}
	return ids, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	key := projectKey(id)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return staleVersion("", id, expectedVersion, cur.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			for _, uid := range cur.Participants() {
				pipe.ZRem(ctx, participantKey(uid), id)
			}
			pipe.SRem(ctx, statusKey(cur.Status), id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return lostRace("projects.delete", id)
	}
	return upstream("projects.delete", err)
}

func (r *RedisRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	cmds := make(map[domain.Status]*redis.IntCmd, len(domain.AllStatuses))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, s := range domain.AllStatuses {
			cmds[s] = pipe.SCard(ctx, statusKey(s))
		}
		return nil
	})
	if err != nil {
		return nil, upstream("projects.count", fmt.Errorf("failed to count projects: %w", err))
	}
	out := make(map[domain.Status]int, len(cmds))
	for s, cmd := range cmds {
		out[s] = int(cmd.Val())
	}
	return out, nil
}

func (r *RedisRepository) load(ctx context.Context, c getter, id string) (*domain.Project, error) {
	data, err := c.Get(ctx, projectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound("", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &p, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func indexParticipants(ctx context.Context, pipe redis.Pipeliner, p *domain.Project, uids []string) {
	score := float64(p.CreatedAt.UnixMilli())
	for _, uid := range uids {
		pipe.ZAdd(ctx, participantKey(uid), redis.Z{Score: score, Member: p.ID})
	}
}

func projectKey(id string) string      { return projectKeyPrefix + id }
func participantKey(uid string) string { return participantKeyPrefix + uid }
func statusKey(s domain.Status) string { return statusKeyPrefix + string(s) }
