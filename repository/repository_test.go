package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/testutil"
)

func uintPtr(v uint) *uint { return &v }
func strPtr(v string) *string { return &v }

func TestUserUpsertOverwritesProfile(t *testing.T) {
	db := testutil.OpenTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Upsert(ctx, models.Principal{ID: "u1", Username: "ann", Email: "a@x", Role: models.RoleUser}))
	require.NoError(t, users.Upsert(ctx, models.Principal{ID: "u1", Username: "ann2", Email: "b@x", Role: models.RoleAdmin, AvatarURL: "pic"}))

	var u models.User
	require.NoError(t, db.Where("id = ?", "u1").First(&u).Error)
	assert.Equal(t, "ann2", u.Username)
	assert.Equal(t, "b@x", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "pic", u.AvatarURL)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestPostPublishKeepsFirstTimestamp(t *testing.T) {
	db := testutil.OpenTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	p := &models.Post{Title: "Hello", Slug: "hello", Content: "body", AuthorID: "u1"}
	require.NoError(t, posts.Create(ctx, p))
	assert.Equal(t, models.PostStatusDraft, p.Status)
	assert.Nil(t, p.PublishedAt)

	n, err := posts.Publish(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	first, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PublishedAt)

	time.Sleep(10 * time.Millisecond)
	_, err = posts.Publish(ctx, p.ID, "")
	require.NoError(t, err)
	second, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, second.Status)
	assert.True(t, first.PublishedAt.Equal(*second.PublishedAt))
}

func TestPostUpdateIsAuthorScoped(t *testing.T) {
	db := testutil.OpenTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	p := &models.Post{Title: "Orig", Slug: "orig", Content: "body", AuthorID: "u1"}
	require.NoError(t, posts.Create(ctx, p))

	n, err := posts.Update(ctx, p.ID, map[string]interface{}{"title": "Hijack"}, "u2")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = posts.Update(ctx, p.ID, map[string]interface{}{"title": "Edited"}, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, "body", got.Content)
}

func TestPostListPublishedWithAuthor(t *testing.T) {
	db := testutil.OpenTestDB(t)
	posts := NewPostRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Upsert(ctx, models.Principal{ID: "u1", Username: "ann", AvatarURL: "a.png", Role: models.RoleAdmin}))
	for _, slug := range []string{"a", "b", "c"} {
		p := &models.Post{Title: slug, Slug: slug, Content: slug, AuthorID: "u1"}
		require.NoError(t, posts.Create(ctx, p))
		if slug != "b" {
			_, err := posts.Publish(ctx, p.ID, "")
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
		}
	}
	orphan := &models.Post{Title: "o", Slug: "o", Content: "o", AuthorID: "ghost"}
	require.NoError(t, posts.Create(ctx, orphan))
	_, err := posts.Publish(ctx, orphan.ID, "")
	require.NoError(t, err)

	items, total, err := posts.ListPublished(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, "o", items[0].Slug)
	assert.Equal(t, "", items[0].AuthorName)
	assert.Equal(t, "c", items[1].Slug)
	assert.Equal(t, "ann", items[1].AuthorName)
	assert.Equal(t, "a.png", items[1].AuthorAvatar)

	all, total, err := posts.ListAll(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	got, err := posts.GetBySlug(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	_, err = posts.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentCascadeAndReplyCount(t *testing.T) {
	db := testutil.OpenTestDB(t)
	walls := NewWallRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	wall := &models.Wall{Title: "guestbook", IsActive: true}
	require.NoError(t, walls.Create(ctx, wall))

	top := &models.Comment{Content: "hi", AuthorName: "a", WallID: uintPtr(wall.ID), Status: models.CommentStatusApproved}
	require.NoError(t, comments.Create(ctx, top))
	for _, st := range []models.CommentStatus{models.CommentStatusApproved, models.CommentStatusApproved, models.CommentStatusPending} {
		reply := &models.Comment{Content: "re", AuthorName: "b", AuthorID: strPtr("u2"), WallID: uintPtr(wall.ID), ParentCommentID: uintPtr(top.ID), Status: st}
		require.NoError(t, comments.Create(ctx, reply))
	}

	threads, total, err := comments.ListWallThreads(ctx, wall.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, threads, 1)
	assert.EqualValues(t, 2, threads[0].ReplyCount)

	replies, err := comments.ListReplies(ctx, top.ID)
	require.NoError(t, err)
	assert.Len(t, replies, 2)

	grandchild := &models.Comment{Content: "re re", AuthorName: "c", WallID: uintPtr(wall.ID), ParentCommentID: uintPtr(replies[0].ID), Status: models.CommentStatusApproved}
	require.NoError(t, comments.Create(ctx, grandchild))

	n, err := comments.Delete(ctx, top.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = comments.FindByID(ctx, grandchild.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var remaining int64
	db.Model(&models.Comment{}).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestDeletingWallCascadesToComments(t *testing.T) {
	db := testutil.OpenTestDB(t)
	walls := NewWallRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	wall := &models.Wall{Title: "w", IsActive: true}
	require.NoError(t, walls.Create(ctx, wall))
	require.NoError(t, comments.Create(ctx, &models.Comment{Content: "x", AuthorName: "a", WallID: uintPtr(wall.ID)}))

	_, err := walls.Delete(ctx, wall.ID)
	require.NoError(t, err)
	var remaining int64
	db.Model(&models.Comment{}).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestCommentModerationIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	comments := NewCommentRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	p := &models.Post{Title: "t", Slug: "t", Content: "c", AuthorID: "u1"}
	require.NoError(t, posts.Create(ctx, p))
	c1 := &models.Comment{Content: "first", AuthorName: "a", PostID: uintPtr(p.ID)}
	require.NoError(t, comments.Create(ctx, c1))
	c2 := &models.Comment{Content: "second", AuthorName: "b", PostID: uintPtr(p.ID)}
	require.NoError(t, comments.Create(ctx, c2))

	pending, total, err := comments.ListPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, pending, 2)
	assert.Equal(t, c1.ID, pending[0].ID)

	n, err := comments.SetStatus(ctx, c1.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = comments.SetStatus(ctx, c1.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = comments.SetStatus(ctx, 9999, models.CommentStatusApproved)
	require.NoError(t, err)
	assert.Zero(t, n)

	approved, total, err := comments.ListApprovedByPost(ctx, p.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, approved, 1)
	assert.Equal(t, "first", approved[0].Content)
}

func TestRecordUploadIncrementsQuota(t *testing.T) {
	db := testutil.OpenTestDB(t)
	media := NewMediaRepository(db)
	ctx := context.Background()

	q, err := media.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, q.TotalBytesUsed)

	require.NoError(t, media.RecordUpload(ctx, &models.Media{FileName: "a.png", FileSize: 100, FileType: models.MediaTypeImage, StorageKey: "u1/a", UploadedBy: "u1"}))
	require.NoError(t, media.RecordUpload(ctx, &models.Media{FileName: "b.mp3", FileSize: 50, FileType: models.MediaTypeAudio, StorageKey: "u1/b", UploadedBy: "u1"}))

	q, err = media.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 150, q.TotalBytesUsed)
	assert.EqualValues(t, 2, q.TotalFiles)

	err = media.RecordUpload(ctx, &models.Media{FileName: "dup", FileSize: 10, FileType: models.MediaTypeImage, StorageKey: "u1/a", UploadedBy: "u1"})
	assert.Error(t, err)
	q, err = media.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 150, q.TotalBytesUsed)

	n, err := media.DeleteByKey(ctx, "u1/a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	q, err = media.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 150, q.TotalBytesUsed)
	_, err = media.FindByKey(ctx, "u1/a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostCreateReportsTakenSlug(t *testing.T) {
	db := testutil.OpenTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, &models.Post{Title: "a", Slug: "same", Content: "c", AuthorID: "u1"}))
	err := posts.Create(ctx, &models.Post{Title: "b", Slug: "same", Content: "c", AuthorID: "u2"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
