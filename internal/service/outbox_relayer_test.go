package service

import (
	"context"
	"errors"
	"testing"

	"LFG_Board/internal/config"
	"LFG_Board/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelayerDeliversAndRetries(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	user := e.account(t, "user", model.RoleUser)
	_, err := e.machine.Ban(ctx, admin, user.ID, "spam", "1h")
	require.NoError(t, err)
	require.NoError(t, e.machine.Unban(ctx, admin, user.ID))

	var delivered []string
	fail := true
	sender := func(_ context.Context, ob *model.ModerationOutbox) error {
		if fail && ob.EventType == model.EventAccountUnbanned {
			return errors.New("broker down")
		}
		delivered = append(delivered, ob.EventType)
		return nil
	}
	r := NewOutboxRelayer(e.store, config.OutboxConfig{BatchSize: 10, MaxRetry: 2}, Sink{Name: "bus", Send: sender})

	assert.Equal(t, 1, r.drainOnce(ctx))
	fail = false
	assert.Equal(t, 1, r.drainOnce(ctx))
	assert.Equal(t, 0, r.drainOnce(ctx))
	assert.Equal(t, []string{model.EventAccountBanned, model.EventAccountUnbanned}, delivered)
}

func TestOutboxRelayerGivesUpAfterMaxRetry(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	user := e.account(t, "user", model.RoleUser)
	require.NoError(t, e.machine.GrantPremium(ctx, admin, user.ID, nil))

	calls := 0
	r := NewOutboxRelayer(e.store, config.OutboxConfig{BatchSize: 10, MaxRetry: 2}, Sink{Name: "bus", Send: func(context.Context, *model.ModerationOutbox) error {
		calls++
		return errors.New("down")
	}})
	for i := 0; i < 5; i++ {
		r.drainOnce(ctx)
	}
	assert.Equal(t, 2, calls)
}

func TestBanNoticeSender(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	user := e.account(t, "user", model.RoleUser)
	_, err := e.machine.Ban(ctx, admin, user.ID, "griefing", "perm")
	require.NoError(t, err)
	require.NoError(t, e.machine.GrantPremium(ctx, admin, admin.AccountID, nil))

	type mail struct{ to, subject, body string }
	var sent []mail
	sender := BanNoticeSender(e.store, func(to, subject, body string) error {
		sent = append(sent, mail{to, subject, body})
		return nil
	})
	r := NewOutboxRelayer(e.store, config.OutboxConfig{}, Sink{Name: "log", Send: LogSender}, Sink{Name: "mail", Send: sender})
	assert.Equal(t, 2, r.drainOnce(ctx))

	require.Len(t, sent, 1)
	assert.Equal(t, "user@lfg.test", sent[0].to)
	assert.Contains(t, sent[0].body, "griefing")
}

func TestOutboxRelayerRetriesOnlyFailedSink(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	user := e.account(t, "user", model.RoleUser)
	_, err := e.machine.Ban(ctx, admin, user.ID, "spam", "perm")
	require.NoError(t, err)

	busCalls, mails := 0, 0
	bus := func(context.Context, *model.ModerationOutbox) error {
		busCalls++
		if busCalls == 1 {
			return errors.New("broker down")
		}
		return nil
	}
	mail := BanNoticeSender(e.store, func(string, string, string) error {
		mails++
		return nil
	})
	r := NewOutboxRelayer(e.store, config.OutboxConfig{BatchSize: 10, MaxRetry: 3}, Sink{Name: "kafka", Send: bus}, Sink{Name: "mail", Send: mail})

	assert.Equal(t, 0, r.drainOnce(ctx))
	assert.Equal(t, 1, mails)
	pending, err := e.store.PendingOutbox(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, []string{"mail"}, []string(pending[0].Delivered))

	assert.Equal(t, 1, r.drainOnce(ctx))
	assert.Equal(t, 0, r.drainOnce(ctx))
	assert.Equal(t, 2, busCalls)
	assert.Equal(t, 1, mails, "mail is not resent when only kafka failed")
}
