package forum

import (
	"math"
	"sort"
	"time"
)

const (
	openQuestionsLimit = 4
	activityLimit      = 4

	// priority score parameters
	agePeakDays   = 7.0
	ageSpreadDays = 15.0
	ageWeight     = 0.6
	voteWeight    = 0.4
)

// rankOpenQuestions selects the question threads without a selected answer
// and orders them by priority score (descending, stable on ties), bounded
// to openQuestionsLimit.
func rankOpenQuestions(threads []Thread, now time.Time) []Thread {
	candidates := make([]Thread, 0, len(threads))
	for _, th := range threads {
		if th.IsOpenQuestion() {
			candidates = append(candidates, th)
		}
	}

	maxNet := maxNetVotes(candidates)
	scored := make([]scoredThread, len(candidates))
	for i, th := range candidates {
		scored[i] = scoredThread{th, priorityScore(ageInDays(now, th.CreatedAt), questionNetVotes(th), maxNet)}
	}

	// stable: ties retain enumeration order
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	if len(scored) > openQuestionsLimit {
		scored = scored[:openQuestionsLimit]
	}
	ranked := make([]Thread, len(scored))
	for i, st := range scored {
		ranked[i] = st.thread
	}
	return ranked
}

// scoredThread pairs a candidate with its score so the sort permutes both
// together.
type scoredThread struct {
	thread Thread
	score  float64
}

// priorityScore combines an age-decay score and a vote score;
// both components are bounded so the result lies in (0, 1].
func priorityScore(ageDays, netVotes, maxNet int) float64 {
	return ageWeight*ageScore(ageDays) + voteWeight*upvoteScore(netVotes, maxNet)
}

// ageScore is a Gaussian centered at agePeakDays: a question is hottest
// around one week old and decays on both sides, bounded in (0, 1].
func ageScore(ageDays int) float64 {
	d := (float64(ageDays) - agePeakDays) / ageSpreadDays
	return math.Exp(-(d * d))
}

// upvoteScore maps net votes into (0.1, 1] for non-negative counts, scaled
// against the best candidate, and into (0.01, 0.1] for negative counts.
func upvoteScore(netVotes, maxNet int) float64 {
	if netVotes >= 0 {
		return 0.1 + 0.9*(float64(netVotes)/float64(maxNet))
	}
	nv := float64(netVotes)
	return math.Max(0.01, 1/(1+10*nv*nv))
}

// maxNetVotes is the highest question net-vote count among the candidates,
// defaulting to 1 when there are no candidates or the maximum is not a
// usable denominator (avoids division by zero).
func maxNetVotes(candidates []Thread) int {
	max := 0
	for _, th := range candidates {
		if nv := questionNetVotes(th); nv > max {
			max = nv
		}
	}
	if max < 1 {
		return 1
	}
	return max
}

func questionNetVotes(th Thread) int {
	if th.Question == nil {
		return 0
	}
	return th.Question.NetVotes()
}

// ageInDays is the floor of the thread age in whole days, clamped at 0.
func ageInDays(now, createdAt time.Time) int {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		return 0
	}
	return int(hours / 24)
}

// buildActivity merges a forum's thread creations and post creations into
// one feed: one entry per thread (no post) and one per post. Nil thread or
// post collections are simply empty.
func buildActivity(f Forum) []ActivityEntry {
	entries := make([]ActivityEntry, 0, len(f.Threads))
	for _, th := range f.Threads {
		posts := th.Posts
		slim := trimThread(th)
		entries = append(entries, ActivityEntry{
			Timestamp: th.CreatedAt,
			CourseID:  f.CourseID,
			Thread:    slim,
		})
		for i := range posts {
			post := posts[i]
			entries = append(entries, ActivityEntry{
				Timestamp: post.CreatedAt,
				CourseID:  f.CourseID,
				Thread:    slim,
				Post:      &post,
			})
		}
	}
	return entries
}

// sortActivity orders entries by timestamp descending (stable on ties) and
// optionally bounds the result; limit <= 0 means unbounded.
func sortActivity(entries []ActivityEntry, limit int) []ActivityEntry {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// trimThread drops the post collection from a thread copy destined for an
// activity entry; PostCount keeps the original size.
func trimThread(th Thread) Thread {
	th.Posts = nil
	return th
}
