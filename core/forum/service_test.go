package forum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo/core"
)

type repoMock struct {
	forums     map[string]Forum
	userForums map[string][]string // userID -> forum IDs
	posts      map[string]*Post
}

var _ Repository = (*repoMock)(nil)

func (m *repoMock) GetForum(ctx context.Context, id string, exec ...core.DBExecutor) (Forum, error) {
	f, ok := m.forums[id]
	if !ok {
		return Forum{}, ErrNotFound
	}
	return f, nil
}

func (m *repoMock) QueryForumsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Forum, error) {
	var forums []Forum
	for _, id := range m.userForums[userID] {
		forums = append(forums, m.forums[id])
	}
	return forums, nil
}

func (m *repoMock) VotePost(ctx context.Context, postID, userID string, dir VoteDirection, exec ...core.DBExecutor) (Post, error) {
	post, ok := m.posts[postID]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	post.ApplyVote(userID, dir)
	return *post, nil
}

func TestService_OpenQuestions(t *testing.T) {
	origNow := nowFunc
	nowFunc = func() time.Time { return rankNow }
	defer func() { nowFunc = origNow }()

	answered := question("answered", daysAgo(7), 5)
	answered.SelectedAnswer = &Post{ID: "sel", Author: "helper"}
	repo := &repoMock{forums: map[string]Forum{
		"f1": {ID: "f1", CourseID: "c1", Threads: []Thread{
			question("open1", daysAgo(7), 2),
			question("open2", daysAgo(30), 0),
			answered,
		}},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.OpenQuestions(ctx, "f1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "open1", got[0].ID)
	assert.Equal(t, "open2", got[1].ID)

	_, err = svc.OpenQuestions(ctx, "nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_ForumActivity(t *testing.T) {
	th1 := question("q1", daysAgo(6), 0)
	th1.Posts = []Post{
		{ID: "p1", ThreadID: "q1", Author: "alice", CreatedAt: daysAgo(5)},
		{ID: "p2", ThreadID: "q1", Author: "bob", CreatedAt: daysAgo(1)},
	}
	th1.PostCount = 2
	th2 := question("q2", daysAgo(4), 0)
	th2.Posts = []Post{{ID: "p3", ThreadID: "q2", Author: "alice", CreatedAt: daysAgo(2)}}
	th2.PostCount = 1

	repo := &repoMock{forums: map[string]Forum{
		"f1": {ID: "f1", CourseID: "c1", Threads: []Thread{th1, th2}},
	}}
	svc := NewService(repo)

	got, err := svc.ForumActivity(context.Background(), "f1")
	assert.NoError(t, err)
	assert.Len(t, got, 4) // 5 creations, newest 4 kept

	// newest first: p2 (1d), p3 (2d), q2 (4d), p1 (5d); q1 (6d) dropped
	assert.Equal(t, "p2", got[0].Post.ID)
	assert.Equal(t, "p3", got[1].Post.ID)
	assert.Nil(t, got[2].Post)
	assert.Equal(t, "q2", got[2].Thread.ID)
	assert.Equal(t, "p1", got[3].Post.ID)

	_, err = svc.ForumActivity(context.Background(), "nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_ForumActivityByUser(t *testing.T) {
	th1 := Thread{ID: "t1", ForumID: "f1", CreatedBy: "alice", CreatedAt: daysAgo(9), Kind: ThreadKindInfo}
	th1.Posts = []Post{
		{ID: "p1", ThreadID: "t1", Author: "bob", CreatedAt: daysAgo(8)},
		{ID: "p2", ThreadID: "t1", Author: "alice", CreatedAt: daysAgo(7)},
	}
	th1.PostCount = 2
	th2 := Thread{ID: "t2", ForumID: "f2", CreatedBy: "bob", CreatedAt: daysAgo(6), Kind: ThreadKindQuestion}
	th2.Posts = []Post{
		{ID: "p3", ThreadID: "t2", Author: "alice", CreatedAt: daysAgo(5)},
		{ID: "p4", ThreadID: "t2", Author: "alice", CreatedAt: daysAgo(4)},
		{ID: "p5", ThreadID: "t2", Author: "alice", CreatedAt: daysAgo(3)},
		{ID: "p6", ThreadID: "t2", Author: "alice", CreatedAt: daysAgo(2)},
	}
	th2.PostCount = 4

	repo := &repoMock{
		forums: map[string]Forum{
			"f1": {ID: "f1", CourseID: "c1", Threads: []Thread{th1}},
			"f2": {ID: "f2", CourseID: "c2", Threads: []Thread{th2}},
		},
		userForums: map[string][]string{"alice": {"f1", "f2"}},
	}
	svc := NewService(repo)

	got, err := svc.ForumActivityByUser(context.Background(), "alice")
	assert.NoError(t, err)

	// alice's own creations only, and no cap: the thread plus 5 posts
	assert.Len(t, got, 6)
	assert.Equal(t, "p6", got[0].Post.ID)
	assert.Equal(t, "c2", got[0].CourseID)
	assert.Equal(t, "p2", got[4].Post.ID)
	assert.Nil(t, got[5].Post)
	assert.Equal(t, "t1", got[5].Thread.ID)
	assert.Equal(t, "c1", got[5].CourseID)

	got, err = svc.ForumActivityByUser(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_votes(t *testing.T) {
	repo := &repoMock{posts: map[string]*Post{
		"p1": {ID: "p1", ThreadID: "t1", Author: "alice"},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	post, err := svc.UpvotePost(ctx, "p1", "bob")
	assert.NoError(t, err)
	assert.Equal(t, []string{"bob"}, post.UpvotedBy)
	assert.Empty(t, post.DownvotedBy)

	// switching sides displaces the upvote; a user is never in both sets
	post, err = svc.DownvotePost(ctx, "p1", "bob")
	assert.NoError(t, err)
	assert.Empty(t, post.UpvotedBy)
	assert.Equal(t, []string{"bob"}, post.DownvotedBy)
	assert.Equal(t, -1, post.NetVotes())

	// repeating the same vote toggles it off
	post, err = svc.DownvotePost(ctx, "p1", "bob")
	assert.NoError(t, err)
	assert.Empty(t, post.UpvotedBy)
	assert.Empty(t, post.DownvotedBy)
	assert.Equal(t, 0, post.NetVotes())

	_, err = svc.UpvotePost(ctx, "nope", "bob")
	assert.Equal(t, ErrPostNotFound, err)
}
