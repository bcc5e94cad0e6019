package forum

import (
	"time"
)

// Thread kinds
const (
	ThreadKindQuestion = "question"
	ThreadKindInfo     = "info"
)

// Vote directions
type VoteDirection int

const (
	VoteUp VoteDirection = iota + 1
	VoteDown
)

type (
	// Forum is a per-course discussion board, loaded fully populated with
	// its threads and posts (no pagination; known scalability caveat).
	Forum struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"` // UTC
		Threads   []Thread  `json:"threads,omitempty"`
	}

	// Thread is a tagged variant: Kind discriminates between a Question
	// thread (Question post + optional SelectedAnswer) and an Info thread
	// (Info post). Dispatch on Kind, not on runtime types.
	Thread struct {
		ID        string    `json:"id"`
		ForumID   string    `json:"forum_id"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"` // UTC
		Kind      string    `json:"kind"`
		Posts     []Post    `json:"posts,omitempty"`      // ordered by CreatedAt
		PostCount int       `json:"post_count"`           // always len(Posts)

		// question kind
		Question       *Post `json:"question,omitempty"`
		SelectedAnswer *Post `json:"selected_answer,omitempty"`

		// info kind
		Info *Post `json:"info,omitempty"`
	}

	Post struct {
		ID          string    `json:"id"`
		ThreadID    string    `json:"thread_id"`
		Author      string    `json:"author"`
		Content     string    `json:"content"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		Edited      bool      `json:"edited"`
		UpvotedBy   []string  `json:"upvoted_by,omitempty"`
		DownvotedBy []string  `json:"downvoted_by,omitempty"`
	}

	// ActivityEntry is one item of a recency-merged activity feed: either a
	// thread creation (Post is nil) or a post creation.
	ActivityEntry struct {
		Timestamp time.Time `json:"timestamp"` // UTC
		CourseID  string    `json:"course_id,omitempty"`
		Thread    Thread    `json:"thread"`
		Post      *Post     `json:"post,omitempty"`
	}
)

// IsQuestion reports whether the thread is of the question kind.
func (t Thread) IsQuestion() bool { return t.Kind == ThreadKindQuestion }

// IsOpenQuestion reports whether the thread is a question without a
// selected answer.
func (t Thread) IsOpenQuestion() bool { return t.IsQuestion() && t.SelectedAnswer == nil }

// NetVotes is the upvote count minus the downvote count.
func (p Post) NetVotes() int { return len(p.UpvotedBy) - len(p.DownvotedBy) }

func (p Post) HasUpvoted(userID string) bool   { return contains(p.UpvotedBy, userID) }
func (p Post) HasDownvoted(userID string) bool { return contains(p.DownvotedBy, userID) }

// ApplyVote computes the post's new vote sets for a vote by userID:
// the opposite vote is displaced, a repeated vote toggles itself off.
// A userID never ends up in both sets. Callers must persist the result as
// one atomic write.
func (p *Post) ApplyVote(userID string, dir VoteDirection) {
	switch dir {
	case VoteUp:
		if p.HasUpvoted(userID) {
			p.UpvotedBy = remove(p.UpvotedBy, userID)
			return
		}
		p.DownvotedBy = remove(p.DownvotedBy, userID)
		p.UpvotedBy = append(p.UpvotedBy, userID)
	case VoteDown:
		if p.HasDownvoted(userID) {
			p.DownvotedBy = remove(p.DownvotedBy, userID)
			return
		}
		p.UpvotedBy = remove(p.UpvotedBy, userID)
		p.DownvotedBy = append(p.DownvotedBy, userID)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
