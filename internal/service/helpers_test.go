package service

import (
	"context"
	"testing"
	"time"

	"LFG_Board/internal/config"
	"LFG_Board/internal/model"
	"LFG_Board/internal/pkg"
	"LFG_Board/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type engine struct {
	store     *memory.Store
	sessions  *memory.Sessions
	clock     *memory.Clock
	ledger    *BanLedger
	quota     *QuotaTracker
	evaluator *EntitlementEvaluator
	machine   *AccountStateMachine
	auth      *AuthService
	posts     *PostService
	comments  *CommentService
	tokens    *pkg.TokenIssuer
}

func testLimits() config.RateLimits {
	return config.RateLimits{PostsPerDay: 3, CommentsPerDay: 5, LoginAttemptsPerMinute: 5}
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	e := &engine{
		store:    memory.NewStore(),
		sessions: memory.NewSessions(),
		clock:    memory.NewClock(t0),
		tokens: pkg.NewTokenIssuer(config.JWTConfig{
			AccessSecret: "a", RefreshSecret: "r", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour,
		}),
	}
	e.ledger = NewBanLedger(e.store, e.sessions, e.clock)
	e.quota = NewQuotaTracker(e.store, testLimits(), e.clock)
	e.evaluator = NewEntitlementEvaluator(e.store, e.ledger, e.quota, e.clock)
	e.machine = NewAccountStateMachine(e.store, e.ledger, e.sessions, e.clock)
	e.auth = NewAuthService(e.store, e.sessions, e.evaluator, e.ledger, e.quota, e.tokens, e.clock, 30*time.Minute)
	e.posts = NewPostService(e.store, e.store, e.store, e.evaluator, e.clock)
	e.comments = NewCommentService(e.store, e.store, e.evaluator, e.clock)
	return e
}

func (e *engine) account(t *testing.T, name string, role model.Role) *model.Account {
	t.Helper()
	acc := &model.Account{
		Username:       name,
		Email:          name + "@lfg.test",
		Role:           role,
		Status:         model.StatusActive,
		LastQuotaReset: e.clock.Now(),
	}
	require.NoError(t, e.store.CreateAccount(context.Background(), acc))
	return acc
}

func (e *engine) reload(t *testing.T, id uint64) *model.Account {
	t.Helper()
	acc, err := e.store.FindAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func adminActor(acc *model.Account) Actor { return Actor{AccountID: acc.ID, Role: acc.Role} }

func ptr[T any](v T) *T { return &v }
