package forum

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var rankNow = time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return rankNow.Add(-time.Duration(n) * 24 * time.Hour) }

func question(id string, createdAt time.Time, netVotes int) Thread {
	q := Post{ID: id + "-q", Author: "author", CreatedAt: createdAt}
	for i := 0; i < netVotes; i++ {
		q.UpvotedBy = append(q.UpvotedBy, fmt.Sprintf("up%d", i))
	}
	for i := 0; i > netVotes; i-- {
		q.DownvotedBy = append(q.DownvotedBy, fmt.Sprintf("down%d", -i))
	}
	return Thread{
		ID:        id,
		CreatedBy: "author",
		CreatedAt: createdAt,
		Kind:      ThreadKindQuestion,
		Question:  &q,
	}
}

func Test_ageScore(t *testing.T) {
	tests := []struct {
		ageDays int
		want    float64
	}{
		{0, 0.80432},
		{7, 1.0},
		{14, 0.80432}, // symmetric around the peak
		{22, 0.36788},
		{37, 0.01832},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.ageDays), func(t *testing.T) {
			assert.InDelta(t, tt.want, ageScore(tt.ageDays), 0.001)
		})
	}
}

func Test_upvoteScore(t *testing.T) {
	tests := []struct {
		name     string
		netVotes int
		maxNet   int
		want     float64
	}{
		{"zero votes", 0, 5, 0.1},
		{"best candidate", 5, 5, 1.0},
		{"half of best", 1, 2, 0.55},
		{"tenth of best", 1, 10, 0.19},
		{"one downvote", -1, 5, 0.09091},
		{"heavily downvoted floors out", -10, 5, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, upvoteScore(tt.netVotes, tt.maxNet), 0.001)
		})
	}
}

func Test_priorityScore_bounded(t *testing.T) {
	for age := 0; age <= 400; age += 13 {
		for nv := -20; nv <= 20; nv += 3 {
			got := priorityScore(age, nv, 20)
			assert.Greater(t, got, 0.0, "age=%d nv=%d", age, nv)
			assert.LessOrEqual(t, got, 1.0, "age=%d nv=%d", age, nv)
		}
	}
}

func Test_rankOpenQuestions(t *testing.T) {
	answered := question("answered", daysAgo(7), 9)
	answered.SelectedAnswer = &Post{ID: "answered-a", Author: "helper", CreatedAt: daysAgo(6)}
	info := Thread{
		ID:        "info",
		CreatedBy: "staff",
		CreatedAt: daysAgo(7),
		Kind:      ThreadKindInfo,
		Info:      &Post{ID: "info-p", Author: "staff", CreatedAt: daysAgo(7)},
	}

	threads := []Thread{
		question("stale", daysAgo(60), 0),  // old, no votes: lowest of the open ones
		question("peak", daysAgo(7), 3),    // best age and best votes
		question("fresh", daysAgo(0), 1),   // young, middling votes
		question("downvoted", daysAgo(7), -2),
		question("mid", daysAgo(14), 2),
		answered,
		info,
	}

	got := rankOpenQuestions(threads, rankNow)

	assert.Len(t, got, openQuestionsLimit) // 5 open questions, capped at 4
	ids := make([]string, len(got))
	for i, th := range got {
		ids[i] = th.ID
	}
	assert.Equal(t, []string{"peak", "mid", "fresh", "downvoted"}, ids)
}

func Test_rankOpenQuestions_worstFirst(t *testing.T) {
	// enumeration order is the exact inverse of score order; the ranking
	// must still come back strictly by score
	threads := []Thread{
		question("q60", daysAgo(60), 0),
		question("q45", daysAgo(45), 0),
		question("q30", daysAgo(30), 0),
		question("q21", daysAgo(21), 0),
		question("q14", daysAgo(14), 0),
		question("q7", daysAgo(7), 0),
	}
	got := rankOpenQuestions(threads, rankNow)
	ids := make([]string, len(got))
	for i, th := range got {
		ids[i] = th.ID
	}
	assert.Equal(t, []string{"q7", "q14", "q21", "q30"}, ids)
}

func Test_rankOpenQuestions_stableTies(t *testing.T) {
	// identical age and votes: enumeration order must survive the sort
	threads := []Thread{
		question("first", daysAgo(3), 1),
		question("second", daysAgo(3), 1),
		question("third", daysAgo(3), 1),
	}
	got := rankOpenQuestions(threads, rankNow)
	assert.Len(t, got, 3)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, "third", got[2].ID)
}

func Test_rankOpenQuestions_defaultDenominator(t *testing.T) {
	// no candidate has a positive net count; the denominator falls back
	// to 1 instead of dividing by zero
	threads := []Thread{
		question("a", daysAgo(7), 0),
		question("b", daysAgo(7), -1),
	}
	got := rankOpenQuestions(threads, rankNow)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func Test_rankOpenQuestions_empty(t *testing.T) {
	assert.Empty(t, rankOpenQuestions(nil, rankNow))
	assert.Empty(t, rankOpenQuestions([]Thread{}, rankNow))
}

func Test_ageInDays(t *testing.T) {
	assert.Equal(t, 0, ageInDays(rankNow, rankNow))
	assert.Equal(t, 0, ageInDays(rankNow, rankNow.Add(-23*time.Hour)))
	assert.Equal(t, 1, ageInDays(rankNow, rankNow.Add(-25*time.Hour)))
	assert.Equal(t, 0, ageInDays(rankNow, rankNow.Add(time.Hour))) // clock skew clamps at 0
}

func Test_buildActivity(t *testing.T) {
	th := question("q1", daysAgo(3), 0)
	th.Posts = []Post{
		{ID: "p1", ThreadID: "q1", Author: "alice", CreatedAt: daysAgo(2)},
		{ID: "p2", ThreadID: "q1", Author: "bob", CreatedAt: daysAgo(1)},
	}
	th.PostCount = len(th.Posts)
	f := Forum{ID: "f1", CourseID: "c1", Threads: []Thread{th}}

	entries := buildActivity(f)

	assert.Len(t, entries, 3) // one for the thread, one per post
	for _, e := range entries {
		assert.Equal(t, "c1", e.CourseID)
		assert.Nil(t, e.Thread.Posts, "activity threads are trimmed")
		assert.Equal(t, 2, e.Thread.PostCount)
	}
	assert.Nil(t, entries[0].Post)
	assert.Equal(t, "p1", entries[1].Post.ID)
	assert.Equal(t, "p2", entries[2].Post.ID)
}

func Test_sortActivity(t *testing.T) {
	entries := []ActivityEntry{
		{Timestamp: daysAgo(5), Thread: Thread{ID: "a"}},
		{Timestamp: daysAgo(1), Thread: Thread{ID: "b"}},
		{Timestamp: daysAgo(3), Thread: Thread{ID: "c"}},
		{Timestamp: daysAgo(2), Thread: Thread{ID: "d"}},
		{Timestamp: daysAgo(4), Thread: Thread{ID: "e"}},
	}

	got := sortActivity(append([]ActivityEntry(nil), entries...), 4)
	assert.Len(t, got, 4)
	assert.Equal(t, "b", got[0].Thread.ID)
	assert.Equal(t, "d", got[1].Thread.ID)
	assert.Equal(t, "c", got[2].Thread.ID)
	assert.Equal(t, "e", got[3].Thread.ID)

	got = sortActivity(append([]ActivityEntry(nil), entries...), 0)
	assert.Len(t, got, 5)
	assert.Equal(t, "a", got[4].Thread.ID)
}
