package repository

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisEventRepo keeps the risk event log in Redis: a capped list of recent
// events for listing plus one key per event for lookups by ID. Suitable as
// the primary store for deployments without Postgres.
type RedisEventRepo struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisEventRepo(client *RedisClient, listKey string, listMax int) *RedisEventRepo {
	if listKey == "" {
		listKey = "risk_events"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisEventRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisEventRepo) Insert(ctx context.Context, ev *model.RiskEvent) error {
	if ev == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := r.client.Client.Pipeline()
	pipe.Set(ctx, r.eventKey(ev.ID), payload, 0)
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisEventRepo) GetByID(ctx context.Context, id string) (*model.RiskEvent, error) {
	raw, err := r.client.Client.Get(ctx, r.eventKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev model.RiskEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *RedisEventRepo) List(ctx context.Context, user, market string, limit int) ([]*model.RiskEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fetch := limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}

	items, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.RiskEvent, 0, limit)
	for _, raw := range items {
		var ev model.RiskEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		if user != "" && ev.User != user {
			continue
		}
		if market != "" && ev.Market != market {
			continue
		}
		results = append(results, &ev)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (r *RedisEventRepo) eventKey(id string) string {
	return "risk_event:" + id
}
