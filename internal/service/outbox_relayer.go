package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"LFG_Board/internal/config"
	"LFG_Board/internal/model"
	"LFG_Board/internal/pkg"

	log "github.com/sirupsen/logrus"
)

// Sender 投递一条 outbox 事件
type Sender func(ctx context.Context, ob *model.ModerationOutbox) error

// Sink 具名投递目标；每条事件按 sink 分别记录是否已投递
type Sink struct {
	Name string
	Send Sender
}

// OutboxRelayer 后台把 moderation_outbox 中的事件投递出去
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	interval  time.Duration
	maxRetry  int
	sinks     []Sink
}

func NewOutboxRelayer(repo OutboxStore, cfg config.OutboxConfig, sinks ...Sink) *OutboxRelayer {
	r := &OutboxRelayer{
		repo:      repo,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		maxRetry:  cfg.MaxRetry,
		sinks:     sinks,
	}
	if r.batchSize <= 0 {
		r.batchSize = 200
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	if r.maxRetry <= 0 {
		r.maxRetry = 5
	}
	return r
}

// Run 阻塞直到 ctx 取消
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 按 id 顺序投递一批；重试时只投递上次未成功的 sink
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.PendingOutbox(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		log.WithError(err).Warn("outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		delivered, ok := r.deliver(ctx, &ob)
		if !ok {
			if errMark := r.repo.MarkOutboxFailed(ctx, ob.ID, delivered); errMark != nil {
				log.WithError(errMark).WithField("outbox_id", ob.ID).Warn("outbox mark failed")
			}
			continue
		}
		if errMark := r.repo.MarkOutboxSent(ctx, ob.ID); errMark != nil {
			log.WithError(errMark).WithField("outbox_id", ob.ID).Warn("outbox mark sent failed")
			continue
		}
		sent++
	}
	return sent
}

// deliver 返回累计投递成功的 sink 名，以及是否全部成功
func (r *OutboxRelayer) deliver(ctx context.Context, ob *model.ModerationOutbox) ([]string, bool) {
	delivered := slices.Clone([]string(ob.Delivered))
	ok := true
	for _, sink := range r.sinks {
		if slices.Contains(delivered, sink.Name) {
			continue
		}
		if err := sink.Send(ctx, ob); err != nil {
			log.WithError(err).WithFields(log.Fields{"outbox_id": ob.ID, "event": ob.EventType, "sink": sink.Name, "retry": ob.Retry}).Warn("outbox send failed")
			ok = false
			continue
		}
		delivered = append(delivered, sink.Name)
	}
	return delivered, ok
}

// LogSender 未配置 kafka 时的默认投递：只打日志
func LogSender(_ context.Context, ob *model.ModerationOutbox) error {
	log.WithFields(log.Fields{
		"outbox_id":  ob.ID,
		"event":      ob.EventType,
		"account_id": ob.AccountID,
		"actor_id":   ob.ActorID,
	}).Info("moderation event")
	return nil
}

// KafkaSender 账号 id 作 key，事件类型放在 header
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.ModerationOutbox) error {
		value, err := json.Marshal(map[string]any{
			"id":         ob.ID,
			"event_type": ob.EventType,
			"account_id": ob.AccountID,
			"actor_id":   ob.ActorID,
			"payload":    json.RawMessage(ob.Payload),
		})
		if err != nil {
			return err
		}
		return p.Send(ctx, pkg.MakeKeyFromID(ob.AccountID), value, map[string]string{"event_type": ob.EventType})
	}
}

// BanNoticeSender 封禁事件给被封账号发邮件，其余事件忽略
func BanNoticeSender(accounts AccountReader, mail pkg.Mailer) Sender {
	return func(ctx context.Context, ob *model.ModerationOutbox) error {
		if ob.EventType != model.EventAccountBanned {
			return nil
		}
		acc, err := accounts.FindAccount(ctx, ob.AccountID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var p struct {
			Reason        string     `json:"reason"`
			BanExpiration *time.Time `json:"ban_expiration"`
		}
		if err = json.Unmarshal(ob.Payload, &p); err != nil {
			return err
		}
		return mail(acc.Email, "账号封禁通知", pkg.BanNoticeHTML(acc.Username, p.Reason, p.BanExpiration))
	}
}
