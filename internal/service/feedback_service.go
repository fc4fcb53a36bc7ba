package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"LFG_Board/internal/model"

	log "github.com/sirupsen/logrus"
)

const (
	MinFeedbackLength = 10
	MaxFeedbackLength = 2000
)

type FeedbackService struct {
	repo      FeedbackStore
	evaluator *EntitlementEvaluator
	clock     Clock
}

func NewFeedbackService(repo FeedbackStore, evaluator *EntitlementEvaluator, clock Clock) *FeedbackService {
	return &FeedbackService{repo: repo, evaluator: evaluator, clock: clock}
}

// Submit 仅 active 账号可提交，不占额度
func (s *FeedbackService) Submit(ctx context.Context, accountID uint64, kind, message string) (*model.Feedback, error) {
	t := model.FeedbackType(strings.TrimSpace(kind))
	if !t.Valid() {
		return nil, invalidInput("invalid feedback type %q", kind)
	}
	message = strings.TrimSpace(message)
	n := utf8.RuneCountInString(message)
	if n < MinFeedbackLength {
		return nil, invalidInput("feedback must be at least %d characters", MinFeedbackLength)
	}
	if n > MaxFeedbackLength {
		return nil, invalidInput("feedback must be at most %d characters", MaxFeedbackLength)
	}
	if _, err := s.evaluator.Authorize(ctx, accountID, model.ActionFeedback); err != nil {
		return nil, err
	}
	fb := &model.Feedback{
		AccountID: accountID,
		Type:      t,
		Message:   message,
		Status:    model.FeedbackOpen,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"feedback_id": fb.ID, "account_id": accountID, "type": t}).Info("feedback submitted")
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context, actor Actor, page, size int) ([]model.Feedback, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	page, size = normalizePage(page, size)
	return s.repo.ListFeedback(ctx, (page-1)*size, size)
}

func (s *FeedbackService) UpdateStatus(ctx context.Context, actor Actor, id uint64, status string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	st := model.FeedbackStatus(status)
	if !st.Valid() {
		return invalidInput("invalid feedback status %q", status)
	}
	return s.repo.UpdateFeedbackStatus(ctx, id, st)
}

// FeedbackSummary 管理端待处理统计
type FeedbackSummary struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
}

func (s *FeedbackService) Summary(ctx context.Context, actor Actor) (FeedbackSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return FeedbackSummary{}, err
	}
	counts, err := s.repo.CountFeedback(ctx)
	if err != nil {
		return FeedbackSummary{}, err
	}
	out := FeedbackSummary{Open: counts[model.FeedbackOpen], InProgress: counts[model.FeedbackInProgress]}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}
