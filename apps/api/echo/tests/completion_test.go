package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/completion"
	"github.com/trezcool/masomo/core/course"
	"github.com/trezcool/masomo/core/user"
	testutil "github.com/trezcool/masomo/tests"
)

func Test_completionApi_authRequired(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "retrieve", method: http.MethodGet, path: "/v1/completions/resources/lol"},
		{name: "mark worked-on", method: http.MethodPost, path: "/v1/completions/resources/lol"},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusUnauthorized
		tt.wantData = marchallObj(t, errMissingToken)

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_completionApi_unitCompletion(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra I", "alg1")
	unit := testutil.CreateContentUnit(t, courseRepo, crs.ID, "Linear equations")
	vid := testutil.CreateResource(t, courseRepo, "Lecture video", course.ResourceKindVideo)
	doc := testutil.CreateResource(t, courseRepo, "Lecture notes", course.ResourceKindDocument)
	testutil.AttachResource(t, courseRepo, unit.ID, vid.ID)
	testutil.AttachResource(t, courseRepo, unit.ID, doc.ID)

	do := func(method, resourceID string) completion.Record {
		t.Helper()
		req, rec := newAuthRequest(method, "/v1/completions/resources/"+resourceID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s failed! code = %v; body %s", method, resourceID, rec.Code, rec.Body.String())
		}
		var record completion.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return record
	}

	// retrieval lazily creates an un-worked-on record
	record := do(http.MethodGet, vid.ID)
	assert.Equal(t, vid.ID, record.ResourceID)
	assert.Equal(t, student.ID, record.UserID)
	assert.False(t, record.WorkedOn)
	assert.False(t, record.CompletedAt.Valid)

	// first resource marked: unit not yet complete, nothing published
	record = do(http.MethodPost, vid.ID)
	assert.True(t, record.WorkedOn)
	assert.True(t, record.CompletedAt.Valid)
	assert.Empty(t, bus.Events())

	// last resource marked: unit completion published exactly once
	record = do(http.MethodPost, doc.ID)
	assert.True(t, record.WorkedOn)
	events := bus.Events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, core.EventTopicUnitCompleted, events[0].Topic)
		payload, ok := events[0].Payload.(completion.Event)
		if assert.True(t, ok, "payload is not a completion.Event") {
			assert.Equal(t, student.ID, payload.UserID)
			assert.Equal(t, unit.ID, payload.ContentUnitID)
			assert.True(t, record.CompletedAt.Time.Equal(payload.CompletedAt))
		}
	}

	// re-marking is a no-op: record untouched, nothing new published
	again := do(http.MethodPost, doc.ID)
	assert.True(t, record.CompletedAt.Time.Equal(again.CompletedAt.Time))
	assert.Len(t, bus.Events(), 1)
}

func Test_completionApi_sharedResource(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	crs := testutil.CreateCourse(t, courseRepo, "Algebra I", "alg1")
	unit1 := testutil.CreateContentUnit(t, courseRepo, crs.ID, "Linear equations")
	unit2 := testutil.CreateContentUnit(t, courseRepo, crs.ID, "Recap week")
	shared := testutil.CreateResource(t, courseRepo, "Formula sheet", course.ResourceKindDocument)
	extra := testutil.CreateResource(t, courseRepo, "Recap video", course.ResourceKindVideo)
	testutil.AttachResource(t, courseRepo, unit1.ID, shared.ID)
	testutil.AttachResource(t, courseRepo, unit2.ID, shared.ID)
	testutil.AttachResource(t, courseRepo, unit2.ID, extra.ID)

	mark := func(resourceID string) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/completions/resources/"+resourceID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("marking %s failed! code = %v; body %s", resourceID, rec.Code, rec.Body.String())
		}
	}

	// one mark completes unit1 only; unit2 still awaits its second resource
	mark(shared.ID)
	events := bus.Events()
	if assert.Len(t, events, 1) {
		payload, _ := events[0].Payload.(completion.Event)
		assert.Equal(t, unit1.ID, payload.ContentUnitID)
	}

	mark(extra.ID)
	events = bus.Events()
	if assert.Len(t, events, 2) {
		payload, _ := events[1].Payload.(completion.Event)
		assert.Equal(t, unit2.ID, payload.ContentUnitID)
	}
}
