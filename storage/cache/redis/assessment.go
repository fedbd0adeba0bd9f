// Package rediscache caches assessment items in redis in front of another repository.
package rediscache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

const keyPrefix = "tathmini:item:"

// Open connects to redis and waits for it to answer.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type assessmentRepository struct {
	next   assessment.Repository
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

// NewAssessmentRepository wraps next with a read-through cache of single items.
// Cache failures are logged and fall back to next.
func NewAssessmentRepository(next assessment.Repository, client *redis.Client, ttl time.Duration, logger core.Logger) assessment.Repository {
	return &assessmentRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func itemKey(ntiid string) string {
	return keyPrefix + ntiid
}

func (repo *assessmentRepository) warn(msg string, err error) {
	if repo.logger != nil {
		repo.logger.Warn(msg+": "+err.Error(), err)
	}
}

func (repo *assessmentRepository) GetItem(ctx context.Context, ntiid string) (assessment.Item, error) {
	data, err := repo.client.Get(ctx, itemKey(ntiid)).Bytes()
	switch {
	case err == nil:
		item, err := assessment.DecodeItem(data)
		if err == nil {
			return item, nil
		}
		repo.warn("decoding cached item", err)
	case err != redis.Nil:
		repo.warn("reading cached item", err)
	}

	item, err := repo.next.GetItem(ctx, ntiid)
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(item); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", ntiid)
	}
	if err = repo.client.Set(ctx, itemKey(ntiid), data, repo.ttl).Err(); err != nil {
		repo.warn("caching item", err)
	}
	return item, nil
}

func (repo *assessmentRepository) invalidate(ctx context.Context, ntiids ...string) {
	if len(ntiids) == 0 {
		return
	}
	keys := make([]string, 0, len(ntiids))
	for _, id := range ntiids {
		keys = append(keys, itemKey(id))
	}
	if err := repo.client.Del(ctx, keys...).Err(); err != nil {
		repo.warn("invalidating cached items", err)
	}
}

func (repo *assessmentRepository) SaveItems(ctx context.Context, items ...assessment.Item) error {
	if err := repo.next.SaveItems(ctx, items...); err != nil {
		return err
	}
	ntiids := make([]string, 0, len(items))
	for _, item := range items {
		ntiids = append(ntiids, item.ItemNTIID())
	}
	repo.invalidate(ctx, ntiids...)
	return nil
}

func (repo *assessmentRepository) DeleteItems(ctx context.Context, ntiids ...string) error {
	if err := repo.next.DeleteItems(ctx, ntiids...); err != nil {
		return err
	}
	repo.invalidate(ctx, ntiids...)
	return nil
}

func (repo *assessmentRepository) QueryItems(
	ctx context.Context,
	filter assessment.ItemFilter,
	ordering []core.DBOrdering,
) ([]assessment.Item, error) {
	return repo.next.QueryItems(ctx, filter, ordering)
}

func (repo *assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.AssessedAssignment) error {
	return repo.next.CreateSubmission(ctx, sub)
}

func (repo *assessmentRepository) QuerySubmissions(
	ctx context.Context,
	filter assessment.SubmissionFilter,
	ordering []core.DBOrdering,
) ([]assessment.AssessedAssignment, error) {
	return repo.next.QuerySubmissions(ctx, filter, ordering)
}
