package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"LFG_Board/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPost() CreatePostInput {
	return CreatePostInput{
		PartySize:       3,
		PositionsNeeded: []string{"carry", "soft support", "Carry"},
		MinRank:         "Archon",
		MaxRank:         "Divine",
		Description:     "  chill games  ",
	}
}

func TestCreatePostValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)

	bad := []func(*CreatePostInput){
		func(in *CreatePostInput) { in.PartySize = -1 },
		func(in *CreatePostInput) { in.PartySize = 6 },
		func(in *CreatePostInput) { in.PositionsNeeded = []string{"jungler"} },
		func(in *CreatePostInput) { in.MinRank = "Immortal"; in.MaxRank = "Herald" },
		func(in *CreatePostInput) { in.MinRank = "Titan" },
		func(in *CreatePostInput) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) },
	}
	for i, mutate := range bad {
		in := validPost()
		mutate(&in)
		_, err := e.posts.CreatePost(ctx, user.ID, in)
		require.ErrorIs(t, err, ErrInvalidInput, "case %d", i)
	}
	assert.Zero(t, e.reload(t, user.ID).PostsToday, "invalid input does not consume quota")

	post, err := e.posts.CreatePost(ctx, user.ID, validPost())
	require.NoError(t, err)
	assert.Equal(t, []string{model.PositionCarry, model.PositionSoftSupport}, []string(post.PositionsNeeded))
	assert.Equal(t, "chill games", post.Description)
	assert.Equal(t, 1, e.reload(t, user.ID).PostsToday)
}

func TestCreatePostGoesThroughAuthorize(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := e.account(t, "admin", model.RoleAdmin)
	user := e.account(t, "user", model.RoleUser)

	for i := 0; i < 3; i++ {
		_, err := e.posts.CreatePost(ctx, user.ID, validPost())
		require.NoError(t, err)
	}
	_, err := e.posts.CreatePost(ctx, user.ID, validPost())
	require.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = e.ledger.RecordBan(ctx, user.ID, "spam", "1d", admin.ID)
	require.NoError(t, err)
	_, err = e.posts.CreatePost(ctx, user.ID, validPost())
	require.ErrorIs(t, err, ErrBanned)

	list, total, err := e.posts.ListPosts(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 3)
}

func TestListPostsCursor(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := e.account(t, "admin", model.RoleAdmin)
	require.NoError(t, e.machine.GrantPremium(ctx, adminActor(admin), admin.ID, nil))

	var ids []uint64
	for i := 0; i < 5; i++ {
		p, err := e.posts.CreatePost(ctx, admin.ID, validPost())
		require.NoError(t, err)
		ids = append(ids, p.ID)
		e.clock.Advance(time.Minute)
	}

	page1, nextID, nextTS, err := e.posts.ListPostsCursor(ctx, 0, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)

	page2, _, _, err := e.posts.ListPostsCursor(ctx, nextID, nextTS, 10)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, ids[2], page2[0].ID)
	assert.Equal(t, ids[0], page2[2].ID)
}

func TestDeletePostPermissions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	author := e.account(t, "author", model.RoleUser)
	other := e.account(t, "other", model.RoleUser)

	post, err := e.posts.CreatePost(ctx, author.ID, validPost())
	require.NoError(t, err)

	require.ErrorIs(t, e.posts.DeletePost(ctx, Actor{AccountID: other.ID, Role: model.RoleUser}, post.ID), ErrUnauthorized)
	require.NoError(t, e.posts.DeletePost(ctx, admin, post.ID))
	_, err = e.posts.GetPost(ctx, post.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.ErrorIs(t, e.posts.DeletePost(ctx, admin, post.ID), model.ErrNotFound)
	require.ErrorIs(t, e.posts.DeletePost(ctx, admin, 9999), model.ErrNotFound)
}

func TestCommentNotifiesPostAuthor(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	author := e.account(t, "author", model.RoleUser)
	fan := e.account(t, "fan", model.RoleUser)
	notifications := NewNotificationService(e.store)

	post, err := e.posts.CreatePost(ctx, author.ID, validPost())
	require.NoError(t, err)

	_, err = e.comments.CreateComment(ctx, author.ID, post.ID, "self reply")
	require.NoError(t, err)
	_, err = e.comments.CreateComment(ctx, fan.ID, post.ID, "count me in")
	require.NoError(t, err)

	unread, err := notifications.ListUnread(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, model.NotificationCommentOnPost, unread[0].Type)
	assert.Contains(t, unread[0].Message, "fan")

	require.ErrorIs(t, notifications.MarkRead(ctx, fan.ID, unread[0].ID), model.ErrNotFound)
	require.NoError(t, notifications.MarkRead(ctx, author.ID, unread[0].ID))
	n, err := notifications.DeleteRead(ctx, author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, total, err := e.comments.ListComments(ctx, post.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestCommentQuotaAndValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)
	post, err := e.posts.CreatePost(ctx, user.ID, validPost())
	require.NoError(t, err)

	_, err = e.comments.CreateComment(ctx, user.ID, post.ID, strings.Repeat("y", MaxCommentLength+1))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.comments.CreateComment(ctx, user.ID, 9999, "hi")
	require.ErrorIs(t, err, model.ErrNotFound)

	for i := 0; i < 5; i++ {
		_, err = e.comments.CreateComment(ctx, user.ID, post.ID, "hi")
		require.NoError(t, err)
	}
	_, err = e.comments.CreateComment(ctx, user.ID, post.ID, "hi")
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestEditAndDeleteComment(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := e.account(t, "admin", model.RoleAdmin)
	owner := e.account(t, "owner", model.RoleUser)
	writer := e.account(t, "writer", model.RoleUser)
	stranger := e.account(t, "stranger", model.RoleUser)

	post, err := e.posts.CreatePost(ctx, owner.ID, validPost())
	require.NoError(t, err)
	c, err := e.comments.CreateComment(ctx, writer.ID, post.ID, "first")
	require.NoError(t, err)

	_, err = e.comments.EditComment(ctx, adminActor(stranger), c.ID, "hijack")
	require.ErrorIs(t, err, ErrUnauthorized)
	edited, err := e.comments.EditComment(ctx, adminActor(writer), c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	// 编辑不受配额限制，但受封禁限制
	_, err = e.ledger.RecordBan(ctx, writer.ID, "spam", "1h", admin.ID)
	require.NoError(t, err)
	_, err = e.comments.EditComment(ctx, adminActor(writer), c.ID, "again")
	require.ErrorIs(t, err, ErrBanned)

	require.ErrorIs(t, e.comments.DeleteComment(ctx, adminActor(stranger), c.ID), ErrUnauthorized)
	require.NoError(t, e.comments.DeleteComment(ctx, adminActor(owner), c.ID), "post owner may delete")
	require.ErrorIs(t, e.comments.DeleteComment(ctx, adminActor(admin), c.ID), model.ErrNotFound)
}

func TestCreatePostWithoutPositions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)

	post, err := e.posts.CreatePost(ctx, user.ID, CreatePostInput{MinRank: "Herald", MaxRank: "Crusader"})
	require.NoError(t, err)
	assert.Equal(t, 1, post.PartySize)
	assert.Empty(t, post.PositionsNeeded)

	got, err := e.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PositionsNeeded)
	assert.Equal(t, 1, e.reload(t, user.ID).PostsToday)
}

// failingPosts 插入总是失败，其余操作走真实存储
type failingPosts struct {
	PostStore
	err   error
	calls int
}

func (f *failingPosts) CreatePost(context.Context, *model.Post, *model.QuotaCharge) error {
	f.calls++
	return f.err
}

func TestFailedPostInsertDoesNotConsumeQuota(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.account(t, "user", model.RoleUser)

	insertErr := errors.New("insert timeout")
	broken := &failingPosts{PostStore: e.store, err: insertErr}
	svc := NewPostService(broken, e.store, e.store, e.evaluator, e.clock)
	for i := 0; i < 3; i++ {
		_, err := svc.CreatePost(ctx, user.ID, validPost())
		require.ErrorIs(t, err, insertErr)
	}
	assert.Equal(t, 3, broken.calls)
	assert.Zero(t, e.reload(t, user.ID).PostsToday)

	for i := 0; i < 3; i++ {
		_, err := e.posts.CreatePost(ctx, user.ID, validPost())
		require.NoError(t, err, "post %d", i+1)
	}
	_, err := e.posts.CreatePost(ctx, user.ID, validPost())
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

// vanishingPosts 读到帖子后立刻将其删除，模拟读写之间的并发删除
type vanishingPosts struct {
	PostStore
}

func (v *vanishingPosts) FindPost(ctx context.Context, id uint64) (*model.Post, error) {
	p, err := v.PostStore.FindPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, v.PostStore.DeletePost(ctx, id)
}

func TestCommentOnPostDeletedMeanwhile(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	author := e.account(t, "author", model.RoleUser)
	fan := e.account(t, "fan", model.RoleUser)
	post, err := e.posts.CreatePost(ctx, author.ID, validPost())
	require.NoError(t, err)

	svc := NewCommentService(e.store, &vanishingPosts{PostStore: e.store}, e.evaluator, e.clock)
	_, err = svc.CreateComment(ctx, fan.ID, post.ID, "count me in")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, e.reload(t, fan.ID).CommentsToday)

	unread, err := NewNotificationService(e.store).ListUnread(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestUpdatePost(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := e.account(t, "admin", model.RoleAdmin)
	owner := e.account(t, "owner", model.RoleUser)
	other := e.account(t, "other", model.RoleUser)
	post, err := e.posts.CreatePost(ctx, owner.ID, validPost())
	require.NoError(t, err)

	edit := CreatePostInput{PartySize: 2, PositionsNeeded: []string{"hard support"}, MinRank: "Herald", MaxRank: "Archon", Description: "duo"}
	_, err = e.posts.UpdatePost(ctx, adminActor(other), post.ID, edit)
	require.ErrorIs(t, err, ErrUnauthorized)

	noPositions := edit
	noPositions.PositionsNeeded = nil
	_, err = e.posts.UpdatePost(ctx, adminActor(owner), post.ID, noPositions)
	require.ErrorIs(t, err, ErrInvalidInput)
	noSize := edit
	noSize.PartySize = 0
	_, err = e.posts.UpdatePost(ctx, adminActor(owner), post.ID, noSize)
	require.ErrorIs(t, err, ErrInvalidInput)

	e.clock.Advance(time.Minute)
	updated, err := e.posts.UpdatePost(ctx, adminActor(owner), post.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, []string{model.PositionHardSupport}, []string(updated.PositionsNeeded))

	got, err := e.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PartySize)
	assert.Equal(t, model.Rank("Archon"), got.MaxRank)
	assert.Equal(t, "duo", got.Description)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, 1, e.reload(t, owner.ID).PostsToday, "editing does not consume quota")

	edit.Description = "admin fix"
	_, err = e.posts.UpdatePost(ctx, adminActor(admin), post.ID, edit)
	require.NoError(t, err)

	_, err = e.ledger.RecordBan(ctx, owner.ID, "spam", "1h", admin.ID)
	require.NoError(t, err)
	_, err = e.posts.UpdatePost(ctx, adminActor(owner), post.ID, edit)
	require.ErrorIs(t, err, ErrBanned)

	require.NoError(t, e.posts.DeletePost(ctx, adminActor(admin), post.ID))
	_, err = e.posts.UpdatePost(ctx, adminActor(admin), post.ID, edit)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestListFeedMergesPremiumFirst(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminActor(e.account(t, "admin", model.RoleAdmin))
	vip := e.account(t, "vip", model.RoleUser)
	free := e.account(t, "free", model.RoleUser)
	require.NoError(t, e.machine.GrantPremium(ctx, admin, vip.ID, ptr(t0.Add(time.Hour))))

	create := func(author uint64) uint64 {
		e.clock.Advance(time.Second)
		p, err := e.posts.CreatePost(ctx, author, validPost())
		require.NoError(t, err)
		return p.ID
	}
	f1, f2, f3 := create(free.ID), create(free.ID), create(free.ID)
	v1, v2 := create(vip.ID), create(vip.ID)
	_, err := e.comments.CreateComment(ctx, vip.ID, f3, "gg")
	require.NoError(t, err)
	_, err = e.comments.CreateComment(ctx, free.ID, f3, "wp")
	require.NoError(t, err)

	ids := func(items []FeedItem) []uint64 {
		var out []uint64
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}
	items, total, err := e.posts.ListFeed(ctx, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, []uint64{v2, v1, f3, f2, f1}, ids(items))
	assert.EqualValues(t, 2, items[2].CommentCount)
	assert.Zero(t, items[0].CommentCount)
	require.NotNil(t, items[0].Author)
	assert.Equal(t, "vip", items[0].Author.Username)
	assert.True(t, items[0].Author.IsPremium)
	assert.False(t, items[2].Author.IsPremium)

	page2, _, err := e.posts.ListFeed(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{f3, f2}, ids(page2))

	// 会员过期后按普通帖排序
	e.clock.Advance(2 * time.Hour)
	items, _, err = e.posts.ListFeed(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []uint64{v2, v1, f3, f2, f1}, ids(items))
	assert.False(t, items[0].Author.IsPremium)

	v3 := create(vip.ID)
	items, _, err = e.posts.ListFeed(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []uint64{v3, v2, v1, f3, f2, f1}, ids(items))
}

func TestMergeFeedRatio(t *testing.T) {
	posts := func(ids ...uint64) []model.Post {
		var out []model.Post
		for _, id := range ids {
			out = append(out, model.Post{ID: id})
		}
		return out
	}
	got := func(list []model.Post) []uint64 {
		var out []uint64
		for _, p := range list {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []uint64{1, 2, 10, 3, 4, 11, 12, 13}, got(mergeFeed(posts(1, 2, 3, 4), posts(10, 11, 12, 13))))
	assert.Equal(t, []uint64{1, 2, 10, 3, 4, 5}, got(mergeFeed(posts(1, 2, 3, 4, 5), posts(10))))
	assert.Equal(t, []uint64{10, 11}, got(mergeFeed(nil, posts(10, 11))))
	assert.Empty(t, mergeFeed(nil, nil))
}
