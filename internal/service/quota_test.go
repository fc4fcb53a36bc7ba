package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LFG_Board/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLimitThenRollover(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost), "post %d", i+1)
	}
	err := e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, model.ActionPost, qe.Action)
	assert.Equal(t, 3, qe.Limit)
	assert.Equal(t, 3, e.reload(t, user.ID).PostsToday, "rejected action must not mutate")

	// 恰好 24h 不重置
	e.clock.Advance(24 * time.Hour)
	require.ErrorIs(t, e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost), ErrQuotaExceeded)

	e.clock.Advance(time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost))
	}
	require.ErrorIs(t, e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost), ErrQuotaExceeded)

	acc := e.reload(t, user.ID)
	assert.Equal(t, 3, acc.PostsToday)
	assert.Equal(t, t0.Add(24*time.Hour+time.Second), acc.LastQuotaReset)
}

func TestQuotaCountersAreIndependent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(ctx, user, model.ActionPost))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(ctx, user, model.ActionComment))
	}
	require.ErrorIs(t, e.quota.CheckAndIncrement(ctx, user, model.ActionComment), ErrQuotaExceeded)

	acc := e.reload(t, user.ID)
	assert.Equal(t, 3, acc.PostsToday)
	assert.Equal(t, 5, acc.CommentsToday)
}

func TestQuotaRolloverResetsBothCounters(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)
	require.NoError(t, e.quota.CheckAndIncrement(ctx, user, model.ActionPost))
	require.NoError(t, e.quota.CheckAndIncrement(ctx, user, model.ActionComment))

	e.clock.Advance(25 * time.Hour)
	require.NoError(t, e.quota.CheckAndIncrement(ctx, user, model.ActionPost))

	acc := e.reload(t, user.ID)
	assert.Equal(t, 1, acc.PostsToday)
	assert.Equal(t, 0, acc.CommentsToday)
}

func TestQuotaPremiumIsUnlimited(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := e.account(t, "admin", model.RoleAdmin)
	user := e.account(t, "user", model.RoleUser)
	require.NoError(t, e.machine.GrantPremium(ctx, adminActor(admin), user.ID, nil))

	for i := 0; i < 20; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(ctx, e.reload(t, user.ID), model.ActionPost))
	}
	assert.Equal(t, 20, e.reload(t, user.ID).PostsToday)
}

func TestQuotaSkipsNonRateLimitedActions(t *testing.T) {
	e := newEngine(t)
	user := e.account(t, "user", model.RoleUser)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.quota.CheckAndIncrement(context.Background(), user, model.ActionCommentEditOwn))
	}
	acc := e.reload(t, user.ID)
	assert.Zero(t, acc.PostsToday)
	assert.Zero(t, acc.CommentsToday)
}

func TestQuotaConcurrentNeverExceedsLimit(t *testing.T) {
	for _, k := range []int{1, 7, 40} {
		e := newEngine(t)
		user := e.account(t, "user", model.RoleUser)
		limit := testLimits().PostsPerDay
		total := limit + k

		var wg sync.WaitGroup
		var mu sync.Mutex
		ok, failed := 0, 0
		start := make(chan struct{})
		for i := 0; i < total; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := e.quota.CheckAndIncrement(context.Background(), user, model.ActionPost)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, ErrQuotaExceeded):
					failed++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, limit, ok, "k=%d", k)
		assert.Equal(t, k, failed, "k=%d", k)
		assert.Equal(t, limit, e.reload(t, user.ID).PostsToday)
	}
}

func TestQuotaUsage(t *testing.T) {
	e := newEngine(t)
	user := e.account(t, "user", model.RoleUser)
	require.NoError(t, e.quota.CheckAndIncrement(context.Background(), user, model.ActionPost))

	u := e.quota.Usage(e.reload(t, user.ID), model.ActionPost)
	assert.Equal(t, QuotaUsage{Used: 1, Limit: 3, Remaining: 2}, u)

	e.clock.Advance(25 * time.Hour)
	u = e.quota.Usage(e.reload(t, user.ID), model.ActionPost)
	assert.Equal(t, QuotaUsage{Used: 0, Limit: 3, Remaining: 3}, u)

	premium := &model.Account{IsPremium: true, LastQuotaReset: e.clock.Now()}
	u = e.quota.Usage(premium, model.ActionComment)
	assert.Equal(t, Unlimited, u.Limit)
	assert.Equal(t, Unlimited, u.Remaining)
}

func TestQuotaLimitTreatsExpiredPremiumAsFree(t *testing.T) {
	e := newEngine(t)
	acc := &model.Account{IsPremium: true, PremiumExpiresAt: ptr(t0.Add(-time.Second))}
	assert.Equal(t, 3, e.quota.Limit(acc, model.ActionPost, t0))
	acc.PremiumExpiresAt = ptr(t0.Add(time.Second))
	assert.Equal(t, Unlimited, e.quota.Limit(acc, model.ActionPost, t0))
}
