package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo/core/forum"
	"github.com/trezcool/masomo/core/user"
	testutil "github.com/trezcool/masomo/tests"
)

func Test_forumApi_openQuestions(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	now := time.Now().UTC()
	hotQuestion := forum.Post{
		ID: "post-hot", ThreadID: "th-hot", Author: "user2", Content: "How do I factor this?",
		CreatedAt: now.AddDate(0, 0, -7), UpvotedBy: []string{"user3", "user4"},
	}
	staleQuestion := forum.Post{
		ID: "post-stale", ThreadID: "th-stale", Author: "user3", Content: "What is a matrix?",
		CreatedAt: now.AddDate(0, 0, -60),
	}
	answeredQuestion := forum.Post{
		ID: "post-answered", ThreadID: "th-answered", Author: "user2", Content: "Solved already",
		CreatedAt: now.AddDate(0, 0, -7),
	}
	answer := forum.Post{
		ID: "post-answer", ThreadID: "th-answered", Author: "user4", Content: "Like this",
		CreatedAt: now.AddDate(0, 0, -6),
	}
	announcement := forum.Post{
		ID: "post-info", ThreadID: "th-info", Author: "user5", Content: "Exam moved to Friday",
		CreatedAt: now.AddDate(0, 0, -1),
	}
	db.SeedForum(forum.Forum{
		ID: "forum1", CourseID: "crs1", Name: "Algebra I", CreatedAt: now.AddDate(0, 0, -90),
		Threads: []forum.Thread{
			// a week old with votes: peak priority
			{
				ID: "th-hot", ForumID: "forum1", CreatedBy: "user2", CreatedAt: now.AddDate(0, 0, -7),
				Kind: forum.ThreadKindQuestion, Question: &hotQuestion,
			},
			// two months old, no votes: decayed
			{
				ID: "th-stale", ForumID: "forum1", CreatedBy: "user3", CreatedAt: now.AddDate(0, 0, -60),
				Kind: forum.ThreadKindQuestion, Question: &staleQuestion,
			},
			// answered: not open anymore
			{
				ID: "th-answered", ForumID: "forum1", CreatedBy: "user2", CreatedAt: now.AddDate(0, 0, -7),
				Kind: forum.ThreadKindQuestion, Question: &answeredQuestion, SelectedAnswer: &answer,
			},
			// announcements never rank
			{
				ID: "th-info", ForumID: "forum1", CreatedBy: "user5", CreatedAt: now.AddDate(0, 0, -1),
				Kind: forum.ThreadKindInfo, Info: &announcement,
			},
		},
	})

	t.Run("unknown forum", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forums/lol/open-questions", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "forum not found"}),
		}, rec)
	})

	t.Run("ranked open questions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forums/forum1/open-questions", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var threads []forum.Thread
		if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if assert.Len(t, threads, 2) {
			assert.Equal(t, "th-hot", threads[0].ID)
			assert.Equal(t, "th-stale", threads[1].ID)
		}
	})
}

func Test_forumApi_openQuestionsCapped(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	now := time.Now().UTC()
	f := forum.Forum{ID: "forum1", CourseID: "crs1", Name: "Algebra I", CreatedAt: now.AddDate(0, 0, -90)}
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("th%d", i)
		q := forum.Post{
			ID: "post-" + id, ThreadID: id, Author: "user2", Content: "Question?",
			CreatedAt: now.AddDate(0, 0, -7),
		}
		f.Threads = append(f.Threads, forum.Thread{
			ID: id, ForumID: "forum1", CreatedBy: "user2", CreatedAt: now.AddDate(0, 0, -7),
			Kind: forum.ThreadKindQuestion, Question: &q,
		})
	}
	db.SeedForum(f)

	req, rec := newAuthRequest(http.MethodGet, "/v1/forums/forum1/open-questions", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var threads []forum.Thread
	if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	// equal scores keep seeding order, bounded to 4
	if assert.Len(t, threads, 4) {
		for i, th := range threads {
			assert.Equal(t, fmt.Sprintf("th%d", i), th.ID)
		}
	}
}

func Test_forumApi_activity(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	now := time.Now().UTC()
	question := forum.Post{
		ID: "post1", ThreadID: "th1", Author: "user2", Content: "Why?",
		CreatedAt: now.Add(-5 * time.Hour),
	}
	replies := []forum.Post{
		{ID: "post2", ThreadID: "th1", Author: "user3", Content: "Because", CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "post3", ThreadID: "th1", Author: "user4", Content: "Are you sure?", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "post4", ThreadID: "th1", Author: "user3", Content: "Positive", CreatedAt: now.Add(-1 * time.Hour)},
	}
	announcement := forum.Post{
		ID: "post5", ThreadID: "th2", Author: "user5", Content: "Welcome!",
		CreatedAt: now.Add(-4 * time.Hour),
	}
	db.SeedForum(forum.Forum{
		ID: "forum1", CourseID: "crs1", Name: "Algebra I", CreatedAt: now.AddDate(0, 0, -90),
		Threads: []forum.Thread{
			{
				ID: "th1", ForumID: "forum1", CreatedBy: "user2", CreatedAt: now.Add(-5 * time.Hour),
				Kind: forum.ThreadKindQuestion, Question: &question, Posts: replies,
			},
			{
				ID: "th2", ForumID: "forum1", CreatedBy: "user5", CreatedAt: now.Add(-4 * time.Hour),
				Kind: forum.ThreadKindInfo, Info: &announcement,
			},
		},
	})

	t.Run("unknown forum", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forums/lol/activity", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "forum not found"}),
		}, rec)
	})

	t.Run("latest activity", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/forums/forum1/activity", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var entries []forum.ActivityEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}

		// 5 creations happened (2 threads + 3 replies); only the newest 4 make it
		if !assert.Len(t, entries, 4) {
			return
		}
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp), "entries not newest-first")
		}
		wantPostIDs := []string{"post4", "post3", "post2", ""} // last entry is th2's creation
		for i, want := range wantPostIDs {
			if want == "" {
				assert.Nil(t, entries[i].Post)
				assert.Equal(t, "th2", entries[i].Thread.ID)
			} else if assert.NotNil(t, entries[i].Post) {
				assert.Equal(t, want, entries[i].Post.ID)
			}
		}
	})
}

func Test_forumApi_userActivity(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	now := time.Now().UTC()
	ownQuestion := forum.Post{
		ID: "post1", ThreadID: "th1", Author: student.ID, Content: "Why?",
		CreatedAt: now.Add(-5 * time.Hour),
	}
	otherReply := forum.Post{
		ID: "post2", ThreadID: "th1", Author: "user3", Content: "Because",
		CreatedAt: now.Add(-4 * time.Hour),
	}
	ownReplies := make([]forum.Post, 0, 6)
	for i := 0; i < 6; i++ {
		ownReplies = append(ownReplies, forum.Post{
			ID: fmt.Sprintf("own%d", i), ThreadID: "th1", Author: student.ID, Content: "Hmm",
			CreatedAt: now.Add(time.Duration(i-10) * time.Minute),
		})
	}
	db.SeedForum(forum.Forum{
		ID: "forum1", CourseID: "crs1", Name: "Algebra I", CreatedAt: now.AddDate(0, 0, -90),
		Threads: []forum.Thread{
			{
				ID: "th1", ForumID: "forum1", CreatedBy: student.ID, CreatedAt: now.Add(-5 * time.Hour),
				Kind: forum.ThreadKindQuestion, Question: &ownQuestion,
				Posts: append([]forum.Post{otherReply}, ownReplies...),
			},
		},
	})
	// same author, but the user is not enrolled in this course
	strayPost := forum.Post{
		ID: "stray1", ThreadID: "th2", Author: student.ID, Content: "Hello?",
		CreatedAt: now.Add(-1 * time.Hour),
	}
	db.SeedForum(forum.Forum{
		ID: "forum2", CourseID: "crs2", Name: "Chemistry", CreatedAt: now.AddDate(0, 0, -90),
		Threads: []forum.Thread{
			{
				ID: "th2", ForumID: "forum2", CreatedBy: student.ID, CreatedAt: now.Add(-1 * time.Hour),
				Kind: forum.ThreadKindQuestion, Question: &strayPost,
			},
		},
	})
	db.EnrollUser("crs1", student.ID)

	req, rec := newAuthRequest(http.MethodGet, "/v1/forums/activity", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var entries []forum.ActivityEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	// the user's thread creation + their 6 replies, newest first, no cap;
	// user3's reply and the un-enrolled forum never show
	if !assert.Len(t, entries, 7) {
		return
	}
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp), "entries not newest-first")
	}
	for _, e := range entries {
		assert.Equal(t, "crs1", e.CourseID)
		if e.Post != nil {
			assert.Equal(t, student.ID, e.Post.Author)
			assert.NotEqual(t, "post2", e.Post.ID)
		} else {
			assert.Equal(t, student.ID, e.Thread.CreatedBy)
		}
	}
	assert.Nil(t, entries[len(entries)-1].Post, "oldest entry should be the thread creation")
}

func Test_forumApi_votePost(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	now := time.Now().UTC()
	question := forum.Post{
		ID: "post1", ThreadID: "th1", Author: "user2", Content: "Why?",
		CreatedAt: now.Add(-5 * time.Hour), UpvotedBy: []string{"user3"},
	}
	db.SeedForum(forum.Forum{
		ID: "forum1", CourseID: "crs1", Name: "Algebra I", CreatedAt: now.AddDate(0, 0, -90),
		Threads: []forum.Thread{
			{
				ID: "th1", ForumID: "forum1", CreatedBy: "user2", CreatedAt: now.Add(-5 * time.Hour),
				Kind: forum.ThreadKindQuestion, Question: &question,
			},
		},
	})

	vote := func(postID, dir string) forum.Post {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/forums/posts/"+postID+"/"+dir, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s on %s failed! code = %v; body %s", dir, postID, rec.Code, rec.Body.String())
		}
		var post forum.Post
		if err := json.Unmarshal(rec.Body.Bytes(), &post); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return post
	}

	t.Run("unknown post", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/forums/posts/lol/upvote", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "post not found"}),
		}, rec)
	})

	t.Run("upvote then switch then toggle off", func(t *testing.T) {
		post := vote("post1", "upvote")
		assert.ElementsMatch(t, []string{"user3", student.ID}, post.UpvotedBy)
		assert.Empty(t, post.DownvotedBy)

		// switching sides displaces the upvote
		post = vote("post1", "downvote")
		assert.ElementsMatch(t, []string{"user3"}, post.UpvotedBy)
		assert.ElementsMatch(t, []string{student.ID}, post.DownvotedBy)

		// voting the same way again toggles it off
		post = vote("post1", "downvote")
		assert.ElementsMatch(t, []string{"user3"}, post.UpvotedBy)
		assert.Empty(t, post.DownvotedBy)
		assert.Equal(t, 1, post.NetVotes())
	})
}
