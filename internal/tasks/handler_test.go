package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/auth"
	"github.com/ayush/taskboard/backend/internal/models"
	"github.com/ayush/taskboard/backend/internal/web"
)

// memTaskStore is an in-memory TaskStore with the same owner-scoping,
// identifier and ordering semantics as the MongoDB store. Insertion order is
// preserved so stable-sort tie-breaking can be asserted.
type memTaskStore struct {
	tasks []*models.Task
}

func (m *memTaskStore) find(id, ownerID string) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidIdentifier, "malformed task id", err)
	}
	for _, task := range m.tasks {
		if task.ID == oid && task.OwnerID == ownerID {
			return task, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "task not found")
}

func (m *memTaskStore) Insert(_ context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	m.tasks = append(m.tasks, task)
	return task, nil
}

func (m *memTaskStore) GetByID(ctx context.Context, id, ownerID string) (*models.Task, error) {
	task, err := m.find(id, ownerID)
	if err != nil {
		return nil, err
	}
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) Update(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	task, err := m.find(id, ownerID)
	if err != nil {
		return nil, err
	}
	task.Title = patch.Title
	task.Description = patch.Description
	task.DueDate = patch.DueDate.UTC()
	if patch.Status != "" {
		task.Status = patch.Status
	}
	task.UpdatedAt = time.Now().UTC()
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Task, error) {
	task, err := m.find(id, ownerID)
	if err != nil {
		return nil, err
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) Delete(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidIdentifier, "malformed task id", err)
	}
	for i, task := range m.tasks {
		if task.ID == oid && task.OwnerID == ownerID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.CodeNotFound, "task not found")
}

func (m *memTaskStore) List(_ context.Context, ownerID string, opts models.ListOptions) ([]models.Task, error) {
	matched := []models.Task{}
	for _, task := range m.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if opts.Status != nil && task.Status != *opts.Status {
			continue
		}
		matched = append(matched, *task)
	}

	less := func(a, b models.Task) bool {
		switch opts.SortField {
		case models.SortByDueDate:
			return a.DueDate.Before(b.DueDate)
		case models.SortByTitle:
			return a.Title < b.Title
		case models.SortByStatus:
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if opts.SortOrder == models.SortAsc {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})
	return matched, nil
}

type memOwnerStore struct {
	users map[string]*models.User
}

func (m *memOwnerStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}

var (
	userA = &models.User{ID: "user-a", Username: "alice", Email: "alice@example.com"}
	userB = &models.User{ID: "user-b", Username: "bob", Email: "bob@example.com"}
)

func newTestHandler() (*Handler, *memTaskStore) {
	store := &memTaskStore{}
	owners := &memOwnerStore{users: map[string]*models.User{
		userA.ID: userA,
		userB.ID: userB,
	}}
	return NewHandler(store, owners), store
}

// do routes the request through a chi router so URL params resolve, with the
// given user pre-authenticated.
func do(t *testing.T, h *Handler, user *models.User, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/tasks", h.Create)
	r.Get("/tasks", h.List)
	r.Get("/tasks/{id}", h.Get)
	r.Put("/tasks/{id}", h.Update)
	r.Patch("/tasks/{id}/status", h.UpdateStatus)
	r.Delete("/tasks/{id}", h.Delete)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) *models.Task {
	t.Helper()
	var resp struct {
		Task *models.Task `json:"task"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return resp.Task
}

func decodeTasks(t *testing.T, rec *httptest.ResponseRecorder) []models.Task {
	t.Helper()
	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	return resp.Tasks
}

func decodeErrCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body web.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Code
}

func futureDate(t *testing.T) string {
	t.Helper()
	return time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339)
}

func mustCreate(t *testing.T, h *Handler, user *models.User, title string, status models.Status) *models.Task {
	t.Helper()
	body := `{"title":"` + title + `","dueDate":"` + futureDate(t) + `"`
	if status != "" {
		body += `,"status":"` + string(status) + `"`
	}
	body += `}`
	rec := do(t, h, user, http.MethodPost, "/tasks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %q: expected 201, got %d: %s", title, rec.Code, rec.Body.String())
	}
	return decodeTask(t, rec)
}

func TestCreateDefaultsToPending(t *testing.T) {
	h, _ := newTestHandler()
	task := mustCreate(t, h, userA, "write report", "")
	if task.Status != models.StatusPending {
		t.Fatalf("expected default Pending, got %q", task.Status)
	}
	if task.OwnerID != userA.ID {
		t.Fatalf("expected owner %s, got %s", userA.ID, task.OwnerID)
	}
}

func TestCreateRejectsPastDueDate(t *testing.T) {
	h, _ := newTestHandler()
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	rec := do(t, h, userA, http.MethodPost, "/tasks",
		`{"title":"too late","dueDate":"`+past+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	h, _ := newTestHandler()
	rec := do(t, h, userA, http.MethodPost, "/tasks",
		`{"title":"t","dueDate":"`+futureDate(t)+`","status":"Done"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetIncludesOwnerSummary(t *testing.T) {
	h, _ := newTestHandler()
	created := mustCreate(t, h, userA, "with owner", "")

	rec := do(t, h, userA, http.MethodGet, "/tasks/"+created.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	task := decodeTask(t, rec)
	if task.Owner == nil || task.Owner.Username != "alice" {
		t.Fatalf("expected owner summary for alice, got %+v", task.Owner)
	}
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	h, _ := newTestHandler()
	secret := mustCreate(t, h, userA, "alice's task", "")
	id := secret.ID.Hex()

	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"get", http.MethodGet, "/tasks/" + id, ""},
		{"update", http.MethodPut, "/tasks/" + id, `{"title":"stolen","dueDate":"` + futureDate(t) + `"}`},
		{"patch status", http.MethodPatch, "/tasks/" + id + "/status", `{"status":"Completed"}`},
		{"delete", http.MethodDelete, "/tasks/" + id, ""},
	}
	for _, tc := range cases {
		rec := do(t, h, userB, tc.method, tc.target, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", tc.name, rec.Code)
			continue
		}
		// Must be indistinguishable from a genuinely missing task.
		if code := decodeErrCode(t, rec); code != "NOT_FOUND" {
			t.Errorf("%s: expected NOT_FOUND, got %s", tc.name, code)
		}
	}

	// The task must have survived userB's delete attempt.
	rec := do(t, h, userA, http.MethodGet, "/tasks/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner lost access after cross-owner attempts: %d", rec.Code)
	}
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	h, _ := newTestHandler()
	rec := do(t, h, userA, http.MethodGet, "/tasks/not-a-hex-id", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "INVALID_IDENTIFIER" {
		t.Fatalf("expected INVALID_IDENTIFIER, got %s", code)
	}
}

func TestListFiltersByStatusAndOwner(t *testing.T) {
	h, _ := newTestHandler()
	mustCreate(t, h, userA, "a pending", models.StatusPending)
	wanted := mustCreate(t, h, userA, "a in progress", models.StatusInProgress)
	mustCreate(t, h, userA, "a completed", models.StatusCompleted)
	mustCreate(t, h, userB, "b in progress", models.StatusInProgress)

	rec := do(t, h, userA, http.MethodGet, "/tasks?status=In+Progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	tasks := decodeTasks(t, rec)
	if len(tasks) != 1 {
		t.Fatalf("expected exactly 1 task, got %d", len(tasks))
	}
	if tasks[0].ID != wanted.ID {
		t.Fatalf("expected task %s, got %s", wanted.ID.Hex(), tasks[0].ID.Hex())
	}
}

func TestListInvalidFilterFailsBeforeStorage(t *testing.T) {
	h, _ := newTestHandler()
	rec := do(t, h, userA, http.MethodGet, "/tasks?status=Archived", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestListSortByTitleRoundTrip(t *testing.T) {
	h, _ := newTestHandler()
	for _, title := range []string{"banana", "apple", "cherry"} {
		mustCreate(t, h, userA, title, "")
	}

	asc := decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks?sortBy=title&sortOrder=asc", ""))
	titles := func(tasks []models.Task) []string {
		out := make([]string, len(tasks))
		for i, task := range tasks {
			out[i] = task.Title
		}
		return out
	}
	if got := titles(asc); got[0] != "apple" || got[1] != "banana" || got[2] != "cherry" {
		t.Fatalf("expected lexicographic order, got %v", got)
	}

	desc := decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks?sortBy=title&sortOrder=desc", ""))
	for i := range asc {
		if asc[i].ID != desc[len(desc)-1-i].ID {
			t.Fatalf("asc is not the exact reverse of desc: %v vs %v", titles(asc), titles(desc))
		}
	}
}

func TestListStableSortTiesBreakByInsertionOrder(t *testing.T) {
	h, _ := newTestHandler()
	first := mustCreate(t, h, userA, "same title", "")
	second := mustCreate(t, h, userA, "same title", "")
	third := mustCreate(t, h, userA, "same title", "")

	tasks := decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks?sortBy=title&sortOrder=asc", ""))
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	want := []primitive.ObjectID{first.ID, second.ID, third.ID}
	for i, task := range tasks {
		if task.ID != want[i] {
			t.Fatalf("tie at position %d broken out of insertion order", i)
		}
	}
}

func TestListDefaultsToNewestFirst(t *testing.T) {
	h, store := newTestHandler()
	old := mustCreate(t, h, userA, "old", "")
	recent := mustCreate(t, h, userA, "recent", "")
	// Force distinct creation times; Insert stamps wall-clock time which can
	// collide within a single test run.
	store.tasks[0].CreatedAt = time.Now().Add(-time.Hour).UTC()

	tasks := decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks", ""))
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != recent.ID || tasks[1].ID != old.ID {
		t.Fatal("expected createdAt descending by default")
	}
}

func TestUpdateReplacesMutableFields(t *testing.T) {
	h, _ := newTestHandler()
	created := mustCreate(t, h, userA, "draft", "")
	due := futureDate(t)

	rec := do(t, h, userA, http.MethodPut, "/tasks/"+created.ID.Hex(),
		`{"title":"final","description":"ready for review","dueDate":"`+due+`","status":"Completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	task := decodeTask(t, rec)
	if task.Title != "final" || task.Description != "ready for review" || task.Status != models.StatusCompleted {
		t.Fatalf("update not applied: %+v", task)
	}
	if task.OwnerID != userA.ID {
		t.Fatal("owner must be immutable")
	}
}

func TestPatchStatusAllTransitions(t *testing.T) {
	h, _ := newTestHandler()
	created := mustCreate(t, h, userA, "shifty", models.StatusCompleted)

	// All transitions are allowed, including moving backwards.
	for _, status := range []models.Status{models.StatusInProgress, models.StatusPending, models.StatusCompleted} {
		rec := do(t, h, userA, http.MethodPatch, "/tasks/"+created.ID.Hex()+"/status",
			`{"status":"`+string(status)+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("transition to %q: expected 200, got %d", status, rec.Code)
		}
		if task := decodeTask(t, rec); task.Status != status {
			t.Fatalf("expected status %q, got %q", status, task.Status)
		}
	}
}

func TestPatchStatusRejectsUnknown(t *testing.T) {
	h, _ := newTestHandler()
	created := mustCreate(t, h, userA, "t", "")
	rec := do(t, h, userA, http.MethodPatch, "/tasks/"+created.ID.Hex()+"/status",
		`{"status":"Cancelled"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	h, _ := newTestHandler()
	created := mustCreate(t, h, userA, "doomed", "")

	rec := do(t, h, userA, http.MethodDelete, "/tasks/"+created.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, h, userA, http.MethodGet, "/tasks/"+created.ID.Hex(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestListIsOverdueComputedPerTask(t *testing.T) {
	h, store := newTestHandler()
	mustCreate(t, h, userA, "future", "")
	overdue := mustCreate(t, h, userA, "late", "")
	done := mustCreate(t, h, userA, "late but done", models.StatusCompleted)

	// Backdate the due dates directly; creation forbids past due dates.
	past := time.Now().Add(-time.Hour).UTC()
	for _, task := range store.tasks {
		if task.ID == overdue.ID || task.ID == done.ID {
			task.DueDate = past
		}
	}

	byTitle := map[string]bool{}
	for _, task := range decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks", "")) {
		byTitle[task.Title] = task.IsOverdue
	}
	if byTitle["future"] {
		t.Fatal("future task must not be overdue")
	}
	if !byTitle["late"] {
		t.Fatal("past-due pending task must be overdue")
	}
	if byTitle["late but done"] {
		t.Fatal("completed task must not be overdue")
	}
}

// TestTaskLifecycleEndToEnd walks the documented flow: create a task, default
// status Pending, move it to In Progress, then find exactly it via the
// status filter.
func TestTaskLifecycleEndToEnd(t *testing.T) {
	h, _ := newTestHandler()

	created := mustCreate(t, h, userA, "T", "")
	if created.Status != models.StatusPending {
		t.Fatalf("expected Pending default, got %q", created.Status)
	}

	rec := do(t, h, userA, http.MethodPatch, "/tasks/"+created.ID.Hex()+"/status",
		`{"status":"In Progress"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", rec.Code)
	}

	tasks := decodeTasks(t, do(t, h, userA, http.MethodGet, "/tasks?status=In+Progress", ""))
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("expected exactly the patched task, got %d tasks", len(tasks))
	}
	if tasks[0].Status != models.StatusInProgress {
		t.Fatalf("expected In Progress, got %q", tasks[0].Status)
	}
}
