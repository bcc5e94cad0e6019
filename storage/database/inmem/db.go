package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo/core/completion"
	"github.com/trezcool/masomo/core/course"
	"github.com/trezcool/masomo/core/forum"
	"github.com/trezcool/masomo/core/user"
)

// DB is a mutex-guarded in-memory store backing the repositories of this
// package. Used in DEV mode and in tests.
type DB struct {
	mu sync.RWMutex

	users map[string]*user.User

	courses       map[string]*course.Course
	units         map[string]*course.ContentUnit
	resources     map[string]*course.Resource
	unitResources map[string]map[string]bool // unitID -> resource IDs
	enrollments   map[string]map[string]bool // courseID -> user IDs

	records map[string]*completion.Record // resourceID + "|" + userID

	forums  map[string]*forumEntry
	threads map[string]*threadEntry
	posts   map[string]*forum.Post
}

type forumEntry struct {
	forum.Forum            // Threads unset; assembled on read
	threadIDs   []string   // insertion order
}

type threadEntry struct {
	forum.Thread          // Posts and post pointers unset; assembled on read
	postIDs          []string
	questionPostID   string
	selectedAnswerID string
	infoPostID       string
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		courses:       make(map[string]*course.Course),
		units:         make(map[string]*course.ContentUnit),
		resources:     make(map[string]*course.Resource),
		unitResources: make(map[string]map[string]bool),
		enrollments:   make(map[string]map[string]bool),
		records:       make(map[string]*completion.Record),
		forums:        make(map[string]*forumEntry),
		threads:       make(map[string]*threadEntry),
		posts:         make(map[string]*forum.Post),
	}
}

// EnrollUser adds the user to the course roster. Enrollment has no write
// API of its own; fixtures and the admin CLI seed it directly.
func (db *DB) EnrollUser(courseID, userID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.enrollments[courseID] == nil {
		db.enrollments[courseID] = make(map[string]bool)
	}
	db.enrollments[courseID][userID] = true
}

// SeedForum stores a fully populated forum, decomposing its threads and
// posts into the normalized tables.
func (db *DB) SeedForum(f forum.Forum) {
	db.mu.Lock()
	defer db.mu.Unlock()

	fe := &forumEntry{Forum: f}
	fe.Threads = nil
	for _, th := range f.Threads {
		te := &threadEntry{Thread: th}
		te.Posts = nil
		te.PostCount = 0
		for i := range th.Posts {
			p := th.Posts[i]
			db.posts[p.ID] = &p
			te.postIDs = append(te.postIDs, p.ID)
		}
		// pointer posts may or may not be part of the Posts collection
		if th.Question != nil {
			te.questionPostID = th.Question.ID
			db.storePost(*th.Question)
		}
		if th.SelectedAnswer != nil {
			te.selectedAnswerID = th.SelectedAnswer.ID
			db.storePost(*th.SelectedAnswer)
		}
		if th.Info != nil {
			te.infoPostID = th.Info.ID
			db.storePost(*th.Info)
		}
		te.Question, te.SelectedAnswer, te.Info = nil, nil, nil
		db.threads[th.ID] = te
		fe.threadIDs = append(fe.threadIDs, th.ID)
	}
	db.forums[f.ID] = fe
}

func (db *DB) storePost(p forum.Post) {
	if _, ok := db.posts[p.ID]; !ok {
		db.posts[p.ID] = &p
	}
}
