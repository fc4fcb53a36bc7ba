package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"LFG_Board/internal/model"
)

// ---- posts ----

func (s *Store) CreatePost(_ context.Context, post *model.Post, charge *model.QuotaCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.charge(charge); err != nil {
		return err
	}
	post.ID = s.id()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt
	c := *post
	s.posts[post.ID] = &c
	return nil
}

func (s *Store) FindPost(_ context.Context, id uint64) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.Status != model.PostStatusNormal {
		return nil, model.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) UpdatePost(_ context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[post.ID]
	if !ok || p.Status != model.PostStatusNormal {
		return model.ErrNotFound
	}
	p.PartySize = post.PartySize
	p.PositionsNeeded = slices.Clone(post.PositionsNeeded)
	p.MinRank, p.MaxRank = post.MinRank, post.MaxRank
	p.Description = post.Description
	p.UpdatedAt = post.UpdatedAt
	return nil
}

func (s *Store) ListPostsByTier(_ context.Context, premium bool, now time.Time, limit int) ([]model.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.livePosts(func(p *model.Post) bool {
		a, ok := s.accounts[p.AuthorID]
		return ok && a.PremiumActiveAt(now) == premium
	})
	return page(all, 0, limit), int64(len(all)), nil
}

func (s *Store) livePosts(keep func(*model.Post) bool) []model.Post {
	var out []model.Post
	for _, p := range s.posts {
		if p.Status == model.PostStatusNormal && keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListPosts(_ context.Context, offset, limit int) ([]model.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.livePosts(func(*model.Post) bool { return true })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *Store) ListPostsCursor(_ context.Context, lastID uint64, lastCreatedAt time.Time, limit int) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.livePosts(func(p *model.Post) bool {
		if lastCreatedAt.IsZero() {
			return true
		}
		return p.CreatedAt.Before(lastCreatedAt) || (p.CreatedAt.Equal(lastCreatedAt) && p.ID < lastID)
	})
	return page(all, 0, limit), nil
}

func (s *Store) ListPostsByAuthor(_ context.Context, authorID uint64, offset, limit int) ([]model.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.livePosts(func(p *model.Post) bool { return p.AuthorID == authorID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *Store) DeletePost(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return model.ErrNotFound
	}
	p.Status = model.PostStatusDeleted
	return nil
}

// ---- comments ----

func (s *Store) CreateComment(_ context.Context, c *model.Comment, n *model.Notification, charge *model.QuotaCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[c.PostID]; !ok || p.Status != model.PostStatusNormal {
		return model.ErrNotFound
	}
	if err := s.charge(charge); err != nil {
		return err
	}
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	cc := *c
	s.comments[c.ID] = &cc
	if n != nil {
		n.ID = s.id()
		n.CommentID = c.ID
		n.CreatedAt = c.CreatedAt
		nn := *n
		s.notifications[n.ID] = &nn
	}
	return nil
}

func (s *Store) FindComment(_ context.Context, id uint64) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (s *Store) UpdateCommentContent(_ context.Context, id uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return model.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteComment(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.comments, id)
	for nid, n := range s.notifications {
		if n.CommentID == id {
			delete(s.notifications, nid)
		}
	}
	return nil
}

func (s *Store) ListComments(_ context.Context, postID uint64, offset, limit int) ([]model.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *Store) CountComments(_ context.Context, postIDs []uint64) (map[uint64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]int64, len(postIDs))
	for _, c := range s.comments {
		if slices.Contains(postIDs, c.PostID) {
			out[c.PostID]++
		}
	}
	return out, nil
}

// ---- notifications ----

func (s *Store) ListUnread(_ context.Context, accountID uint64) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Notification{}
	for _, n := range s.notifications {
		if n.AccountID == accountID && !n.IsRead {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, accountID, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.AccountID != accountID {
		return model.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *Store) MarkAllRead(_ context.Context, accountID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.notifications {
		if v.AccountID == accountID && !v.IsRead {
			v.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteRead(_ context.Context, accountID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.notifications {
		if v.AccountID == accountID && v.IsRead {
			delete(s.notifications, id)
			n++
		}
	}
	return n, nil
}

// ---- feedback ----

func (s *Store) CreateFeedback(_ context.Context, fb *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb.ID = s.id()
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	fb.UpdatedAt = fb.CreatedAt
	s.feedback = append(s.feedback, *fb)
	return nil
}

func (s *Store) ListFeedback(_ context.Context, offset, limit int) ([]model.Feedback, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Feedback, 0, len(s.feedback))
	for _, fb := range s.feedback {
		if a, ok := s.accounts[fb.AccountID]; ok {
			fb.Username = a.Username
		}
		all = append(all, fb)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *Store) UpdateFeedbackStatus(_ context.Context, id uint64, status model.FeedbackStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feedback {
		if s.feedback[i].ID == id {
			s.feedback[i].Status = status
			s.feedback[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *Store) CountFeedback(_ context.Context) (map[model.FeedbackStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[model.FeedbackStatus]int64{}
	for _, fb := range s.feedback {
		out[fb.Status]++
	}
	return out, nil
}
