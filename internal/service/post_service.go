package service

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"LFG_Board/internal/model"
)

const (
	MaxPartySize         = 5
	MaxDescriptionLength = 600
)

type PostService struct {
	repo      PostStore
	comments  CommentStore
	accounts  AccountReader
	evaluator *EntitlementEvaluator
	clock     Clock
}

func NewPostService(repo PostStore, comments CommentStore, accounts AccountReader, evaluator *EntitlementEvaluator, clock Clock) *PostService {
	return &PostService{repo: repo, comments: comments, accounts: accounts, evaluator: evaluator, clock: clock}
}

// CreatePostInput 组队需求
type CreatePostInput struct {
	PartySize       int
	PositionsNeeded []string
	MinRank         string
	MaxRank         string
	Description     string
}

// validate 新建帖子时位置可以为空、人数缺省为 1；编辑时两者都必须给出
func (in CreatePostInput) validate(editing bool) (*model.Post, error) {
	if in.PartySize == 0 && !editing {
		in.PartySize = 1
	}
	if in.PartySize < 1 || in.PartySize > MaxPartySize {
		return nil, invalidInput("party size must be between 1 and %d", MaxPartySize)
	}
	if len(in.PositionsNeeded) == 0 && editing {
		return nil, invalidInput("at least one position is required")
	}
	seen := map[string]bool{}
	positions := make([]string, 0, len(in.PositionsNeeded))
	for _, label := range in.PositionsNeeded {
		p, ok := model.ParsePosition(strings.ToLower(strings.TrimSpace(label)))
		if !ok {
			return nil, invalidInput("unknown position %q", label)
		}
		if !seen[p] {
			seen[p] = true
			positions = append(positions, p)
		}
	}
	minIdx, maxIdx := model.RankIndex(model.Rank(in.MinRank)), model.RankIndex(model.Rank(in.MaxRank))
	if minIdx < 0 || maxIdx < 0 {
		return nil, invalidInput("unknown rank")
	}
	if minIdx > maxIdx {
		return nil, invalidInput("min rank must not be above max rank")
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return nil, invalidInput("description must be at most %d characters", MaxDescriptionLength)
	}
	return &model.Post{
		PartySize:       in.PartySize,
		PositionsNeeded: positions,
		MinRank:         model.Rank(in.MinRank),
		MaxRank:         model.Rank(in.MaxRank),
		Description:     desc,
	}, nil
}

// CreatePost 先校验入参（不占额度），额度扣减随插入在同一事务提交，插入失败不消耗额度
func (s *PostService) CreatePost(ctx context.Context, authorID uint64, in CreatePostInput) (*model.Post, error) {
	post, err := in.validate(false)
	if err != nil {
		return nil, err
	}
	_, charge, err := s.evaluator.Admit(ctx, authorID, model.ActionPost)
	if err != nil {
		return nil, err
	}
	post.AuthorID = authorID
	post.Status = model.PostStatusNormal
	post.CreatedAt = s.clock.Now()
	if err = s.repo.CreatePost(ctx, post, charge); err != nil {
		return nil, quotaError(charge, err)
	}
	return post, nil
}

// UpdatePost 作者或管理员可改，不占额度
func (s *PostService) UpdatePost(ctx context.Context, actor Actor, postID uint64, in CreatePostInput) (*model.Post, error) {
	next, err := in.validate(true)
	if err != nil {
		return nil, err
	}
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.AccountID && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if _, err = s.evaluator.Authorize(ctx, actor.AccountID, model.ActionPostEditOwn); err != nil {
		return nil, err
	}
	post.PartySize = next.PartySize
	post.PositionsNeeded = next.PositionsNeeded
	post.MinRank, post.MaxRank = next.MinRank, next.MaxRank
	post.Description = next.Description
	post.UpdatedAt = s.clock.Now()
	if err = s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	return s.repo.FindPost(ctx, id)
}

// ListPosts 页码分页，最新在前
func (s *PostService) ListPosts(ctx context.Context, page, size int) ([]model.Post, int64, error) {
	page, size = normalizePage(page, size)
	return s.repo.ListPosts(ctx, (page-1)*size, size)
}

// ListPostsCursor 游标分页：首次不传 lastID/lastCreatedAt
// 返回 nextLastID/nextLastCreatedAt 供下一页使用
func (s *PostService) ListPostsCursor(ctx context.Context, lastID uint64, lastCreatedAt time.Time, size int) ([]model.Post, uint64, time.Time, error) {
	_, size = normalizePage(1, size)
	list, err := s.repo.ListPostsCursor(ctx, lastID, lastCreatedAt, size)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	var nextID uint64
	var nextTS time.Time
	if len(list) > 0 {
		last := list[len(list)-1]
		nextID = last.ID
		nextTS = last.CreatedAt
	}
	return list, nextID, nextTS, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID uint64, page, size int) ([]model.Post, int64, error) {
	page, size = normalizePage(page, size)
	return s.repo.ListPostsByAuthor(ctx, authorID, (page-1)*size, size)
}

// DeletePost 作者或管理员可删；不存在或已删除返回 ErrNotFound
func (s *PostService) DeletePost(ctx context.Context, actor Actor, postID uint64) error {
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.AccountID && !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return s.repo.DeletePost(ctx, postID)
}

// PostAuthor 列表中展示的作者摘要
type PostAuthor struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	IsPremium bool   `json:"is_premium"`
}

// FeedItem 帖子附带评论数与作者
type FeedItem struct {
	model.Post
	CommentCount int64       `json:"comment_count"`
	Author       *PostAuthor `json:"author,omitempty"`
}

// ListFeed 会员帖优先：每 2 条会员帖接 1 条普通帖，一方取完后另一方顺延
// 第 page 页只依赖两组各自最新的 page*size 条
func (s *PostService) ListFeed(ctx context.Context, page, size int) ([]FeedItem, int64, error) {
	page, size = normalizePage(page, size)
	now := s.clock.Now()
	need := page * size
	premium, premiumTotal, err := s.repo.ListPostsByTier(ctx, true, now, need)
	if err != nil {
		return nil, 0, err
	}
	free, freeTotal, err := s.repo.ListPostsByTier(ctx, false, now, need)
	if err != nil {
		return nil, 0, err
	}
	merged := mergeFeed(premium, free)
	start := min((page-1)*size, len(merged))
	end := min(start+size, len(merged))
	items, err := s.decorate(ctx, merged[start:end], now)
	if err != nil {
		return nil, 0, err
	}
	return items, premiumTotal + freeTotal, nil
}

func mergeFeed(premium, free []model.Post) []model.Post {
	out := make([]model.Post, 0, len(premium)+len(free))
	p, f := 0, 0
	for p < len(premium) || f < len(free) {
		for i := 0; i < 2 && p < len(premium); i++ {
			out = append(out, premium[p])
			p++
		}
		if f < len(free) {
			out = append(out, free[f])
			f++
		}
	}
	return out
}

// decorate 批量补评论数与作者，避免逐条查询
func (s *PostService) decorate(ctx context.Context, posts []model.Post, now time.Time) ([]FeedItem, error) {
	items := make([]FeedItem, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}
	postIDs := make([]uint64, 0, len(posts))
	authorIDs := make([]uint64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !slices.Contains(authorIDs, p.AuthorID) {
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	counts, err := s.comments.CountComments(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.FindAccounts(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	authors := make(map[uint64]*PostAuthor, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		authors[a.ID] = &PostAuthor{ID: a.ID, Username: a.Username, IsPremium: a.PremiumActiveAt(now)}
	}
	for _, p := range posts {
		items = append(items, FeedItem{Post: p, CommentCount: counts[p.ID], Author: authors[p.AuthorID]})
	}
	return items, nil
}
