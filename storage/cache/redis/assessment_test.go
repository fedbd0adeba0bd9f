package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tathmini/core/assessment"
	inmemdb "github.com/trezcool/tathmini/storage/database/inmem"
)

type countingRepository struct {
	assessment.Repository
	gets int
}

func (repo *countingRepository) GetItem(ctx context.Context, ntiid string) (assessment.Item, error) {
	repo.gets++
	return repo.Repository.GetItem(ctx, ntiid)
}

func setup(t *testing.T) (*miniredis.Miniredis, *countingRepository, assessment.Repository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingRepository{Repository: inmemdb.NewAssessmentRepository(inmemdb.Open())}
	return mr, next, NewAssessmentRepository(next, client, time.Minute, nil)
}

func TestAssessmentRepository_GetItem(t *testing.T) {
	ctx := context.Background()
	mr, next, repo := setup(t)

	q := &assessment.Question{
		NTIID:   "tag:nextthought.com,2011-10:T-NAQ-q1",
		Content: "1+1?",
		Parts: []assessment.Part{{
			Kind:      assessment.NumericMathPart,
			Solutions: []assessment.Solution{{Kind: assessment.NumericMathSolution, Text: "2"}},
		}},
	}
	require.NoError(t, repo.SaveItems(ctx, q))

	for i := 0; i < 3; i++ {
		got, err := repo.GetItem(ctx, q.NTIID)
		require.NoError(t, err)
		assert.Equal(t, "1+1?", got.(*assessment.Question).Content)
	}
	assert.Equal(t, 1, next.gets, "only the first read reaches the repository")
	assert.True(t, mr.Exists(itemKey(q.NTIID)))
	assert.Equal(t, time.Minute, mr.TTL(itemKey(q.NTIID)))

	// saving invalidates
	q.Content = "2+2?"
	require.NoError(t, repo.SaveItems(ctx, q))
	assert.False(t, mr.Exists(itemKey(q.NTIID)))
	got, err := repo.GetItem(ctx, q.NTIID)
	require.NoError(t, err)
	assert.Equal(t, "2+2?", got.(*assessment.Question).Content)
	assert.Equal(t, 2, next.gets)

	// deleting invalidates
	require.NoError(t, repo.DeleteItems(ctx, q.NTIID))
	_, err = repo.GetItem(ctx, q.NTIID)
	assert.Equal(t, assessment.ErrNotFound, err)
	assert.False(t, mr.Exists(itemKey(q.NTIID)), "misses are not cached")
}

func TestAssessmentRepository_redisDown(t *testing.T) {
	ctx := context.Background()
	mr, next, repo := setup(t)

	hw := &assessment.Assignment{NTIID: "tag:nextthought.com,2011-10:T-NAQ-hw", Title: "HW"}
	require.NoError(t, next.SaveItems(ctx, hw))

	mr.Close()
	got, err := repo.GetItem(ctx, hw.NTIID)
	require.NoError(t, err)
	assert.Equal(t, "HW", got.ItemTitle())
}
