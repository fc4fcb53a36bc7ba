package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"LFG_Board/internal/model"
)

const MaxCommentLength = 250

type CommentService struct {
	comments  CommentStore
	posts     PostStore
	evaluator *EntitlementEvaluator
	clock     Clock
}

func NewCommentService(comments CommentStore, posts PostStore, evaluator *EntitlementEvaluator, clock Clock) *CommentService {
	return &CommentService{comments: comments, posts: posts, evaluator: evaluator, clock: clock}
}

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalidInput("comment must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", invalidInput("comment must be at most %d characters", MaxCommentLength)
	}
	return content, nil
}

// CreateComment 评论他人帖子时给帖主写一条通知；额度扣减、评论与通知同事务提交
// 帖子在写入前被删除时返回 ErrNotFound，额度不变
func (s *CommentService) CreateComment(ctx context.Context, authorID, postID uint64, content string) (*model.Comment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	acc, charge, err := s.evaluator.Admit(ctx, authorID, model.ActionComment)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{PostID: postID, AuthorID: authorID, Content: content, CreatedAt: s.clock.Now()}
	var n *model.Notification
	if post.AuthorID != authorID {
		n = &model.Notification{
			AccountID: post.AuthorID,
			PostID:    postID,
			Type:      model.NotificationCommentOnPost,
			Message:   fmt.Sprintf("%s commented on your post", acc.Username),
		}
	}
	if err = s.comments.CreateComment(ctx, c, n, charge); err != nil {
		return nil, quotaError(charge, err)
	}
	return c, nil
}

// EditComment 仅作者或管理员；编辑不占额度，但同样经过 Authorize
func (s *CommentService) EditComment(ctx context.Context, actor Actor, commentID uint64, content string) (*model.Comment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	c, err := s.comments.FindComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actor.AccountID && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if _, err = s.evaluator.Authorize(ctx, actor.AccountID, model.ActionCommentEditOwn); err != nil {
		return nil, err
	}
	if err = s.comments.UpdateCommentContent(ctx, commentID, content); err != nil {
		return nil, err
	}
	c.Content = content
	return c, nil
}

// DeleteComment 评论作者、帖主或管理员
func (s *CommentService) DeleteComment(ctx context.Context, actor Actor, commentID uint64) error {
	c, err := s.comments.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	allowed := c.AuthorID == actor.AccountID || actor.IsAdmin()
	if !allowed {
		post, errPost := s.posts.FindPost(ctx, c.PostID)
		if errPost == nil && post.AuthorID == actor.AccountID {
			allowed = true
		}
	}
	if !allowed {
		return ErrUnauthorized
	}
	return s.comments.DeleteComment(ctx, commentID)
}

func (s *CommentService) ListComments(ctx context.Context, postID uint64, page, size int) ([]model.Comment, int64, error) {
	page, size = normalizePage(page, size)
	return s.comments.ListComments(ctx, postID, (page-1)*size, size)
}
