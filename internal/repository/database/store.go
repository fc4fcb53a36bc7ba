package database

import (
	"encoding/json"
	"errors"
	"time"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 聚合所有 gorm 仓储，满足 service 层的各个存储接口
type Store struct {
	*AccountRepository
	*BanRepository
	*QuotaRepository
	*PostRepository
	*CommentRepository
	*NotificationRepository
	*OutboxRepository
	*FeedbackRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		AccountRepository:      &AccountRepository{DB: db},
		BanRepository:          &BanRepository{DB: db},
		QuotaRepository:        &QuotaRepository{DB: db},
		PostRepository:         &PostRepository{DB: db},
		CommentRepository:      &CommentRepository{DB: db},
		NotificationRepository: &NotificationRepository{DB: db},
		OutboxRepository:       &OutboxRepository{DB: db},
		FeedbackRepository:     &FeedbackRepository{DB: db},
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

// lockAccount select for update，锁住账号行作为状态变更的串行点
func lockAccount(tx *gorm.DB, id uint64) (*model.Account, error) {
	var acc model.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "status", "is_premium", "premium_expires_at").
		Where("id = ?", id).
		Take(&acc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &acc, nil
}

// insertOutbox 写 outbox 事件表，必须在业务事务内调用
func insertOutbox(tx *gorm.DB, ev model.Event) error {
	data := map[string]any{
		"event_time": ev.At.UTC().Format(time.RFC3339Nano),
		"account_id": ev.AccountID,
	}
	for k, v := range ev.Data {
		data[k] = v
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ob := &model.ModerationOutbox{
		EventType: ev.Type,
		AccountID: ev.AccountID,
		ActorID:   ev.ActorID,
		Payload:   payload,
		Status:    model.OutboxPending,
	}
	return tx.Create(ob).Error
}
