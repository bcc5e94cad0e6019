package inmemdb

import (
	"context"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/forum"
)

type forumRepository struct {
	db *DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo *forumRepository) GetForum(ctx context.Context, id string, exec ...core.DBExecutor) (forum.Forum, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fe, ok := repo.db.forums[id]
	if !ok {
		return forum.Forum{}, forum.ErrNotFound
	}
	return repo.assemble(fe), nil
}

func (repo *forumRepository) QueryForumsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]forum.Forum, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var forums []forum.Forum
	for _, fe := range repo.db.forums {
		if repo.db.enrollments[fe.CourseID][userID] {
			forums = append(forums, repo.assemble(fe))
		}
	}
	return forums, nil
}

func (repo *forumRepository) VotePost(ctx context.Context, postID, userID string, dir forum.VoteDirection, exec ...core.DBExecutor) (forum.Post, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	post, ok := repo.db.posts[postID]
	if !ok {
		return forum.Post{}, forum.ErrPostNotFound
	}
	post.ApplyVote(userID, dir)
	return clonePost(post), nil
}

// assemble rebuilds a fully populated forum from the normalized tables.
// Caller holds the read lock.
func (repo *forumRepository) assemble(fe *forumEntry) forum.Forum {
	f := fe.Forum
	f.Threads = make([]forum.Thread, 0, len(fe.threadIDs))
	for _, threadID := range fe.threadIDs {
		te := repo.db.threads[threadID]
		th := te.Thread
		th.Posts = make([]forum.Post, 0, len(te.postIDs))
		for _, postID := range te.postIDs {
			th.Posts = append(th.Posts, clonePost(repo.db.posts[postID]))
		}
		th.PostCount = len(th.Posts)
		th.Question = repo.postCopy(te.questionPostID)
		th.SelectedAnswer = repo.postCopy(te.selectedAnswerID)
		th.Info = repo.postCopy(te.infoPostID)
		f.Threads = append(f.Threads, th)
	}
	return f
}

func (repo *forumRepository) postCopy(id string) *forum.Post {
	if id == "" {
		return nil
	}
	if p, ok := repo.db.posts[id]; ok {
		cp := clonePost(p)
		return &cp
	}
	return nil
}

// clonePost copies a stored post including its vote slices, so a returned
// snapshot stays untouched by later votes on the live post.
func clonePost(p *forum.Post) forum.Post {
	cp := *p
	cp.UpvotedBy = append([]string(nil), p.UpvotedBy...)
	cp.DownvotedBy = append([]string(nil), p.DownvotedBy...)
	return cp
}
