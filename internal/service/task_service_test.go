package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type mockTaskRepo struct {
	tasks      map[string]models.Task
	statsCalls int
	stats      models.TaskStats
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "task-new"
	}
	task.Status = models.TaskStatusPending
	if m.tasks == nil {
		m.tasks = make(map[string]models.Task)
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if t, ok := m.tasks[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTaskRepo) ListByThesis(ctx context.Context, thesisID string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.tasks {
		if t.ThesisID == thesisID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) Stats(ctx context.Context, thesisID string) (*models.TaskStats, error) {
	m.statsCalls++
	stats := m.stats
	return &stats, nil
}

type mockSubmissionRepo struct {
	submissions map[string]models.Submission
	created     *models.Submission
	feedback    map[string]string
}

func (m *mockSubmissionRepo) CreateAndCompleteTask(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = "sub-new"
	}
	if m.submissions == nil {
		m.submissions = make(map[string]models.Submission)
	}
	m.submissions[submission.ID] = *submission
	m.created = submission
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByTask(ctx context.Context, taskID string) ([]models.Submission, error) {
	return nil, nil
}

func (m *mockSubmissionRepo) UpdateFeedback(ctx context.Context, id string, feedback string, grade *int) error {
	if _, ok := m.submissions[id]; !ok {
		return sql.ErrNoRows
	}
	if m.feedback == nil {
		m.feedback = make(map[string]string)
	}
	m.feedback[id] = feedback
	return nil
}

type mockTaskStudents struct {
	byUser map[string]models.Student
	byID   map[string]models.Student
}

func (m *mockTaskStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTaskStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCache struct {
	values map[string][]byte
	sets   int
	hits   int
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	if stats, ok := dest.(*models.TaskStats); ok {
		*stats = models.TaskStats{TotalTasks: 9, CompletedTasks: 9}
	}
	return nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = []byte("cached")
	m.sets++
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = nil
	return nil
}

func newTaskFixture() (*mockTaskRepo, *mockSubmissionRepo, *mockThesisRepo, *mockTaskStudents, *mockFacultyDir, *mockNotifier) {
	supervisor := "fac-1"
	theses := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"7c9e6679-7425-40de-944b-e07fc1f90ae7": {ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Title: "Edge Caching", Status: models.ThesisStatusActive, SupervisorID: &supervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("7c9e6679-7425-40de-944b-e07fc1f90ae7", "student-1"): {ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", StudentID: "student-1", Creator: true},
		},
		members: []models.ThesisMemberDetail{{UserID: "user-1"}},
	}
	students := &mockTaskStudents{
		byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}},
		byID:   map[string]models.Student{"student-1": {ID: "student-1", UserID: "user-1"}},
	}
	faculties := &mockFacultyDir{
		byUser: map[string]models.Faculty{"fac-user": {ID: "fac-1", UserID: "fac-user"}},
		byID:   map[string]models.Faculty{"fac-1": {ID: "fac-1", UserID: "fac-user"}},
	}
	return &mockTaskRepo{}, &mockSubmissionRepo{}, theses, students, faculties, &mockNotifier{}
}

func TestTaskCreateNotifiesMembers(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	task, err := svc.Create(context.Background(), facultyActor("fac-user"), models.CreateTaskRequest{
		ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Title:    "Literature review",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "fac-1", task.FacultyID)
	require.Len(t, n.fanout, 1)
	assert.Equal(t, []string{"user-1"}, n.fanout[0])
}

func TestTaskCreateBlockedOnCompletedThesis(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	thesis := theses.theses["7c9e6679-7425-40de-944b-e07fc1f90ae7"]
	thesis.Status = models.ThesisStatusInactive
	theses.theses["7c9e6679-7425-40de-944b-e07fc1f90ae7"] = thesis
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	_, err := svc.Create(context.Background(), facultyActor("fac-user"), models.CreateTaskRequest{
		ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Title:    "Late task",
	})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrThesisClosed.Code, typed.Code)
}

func TestSubmitRequiresContentOrFile(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Status: models.TaskStatusPending},
	}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	_, err := svc.Submit(context.Background(), studentActor("user-1"), "task-1", models.CreateSubmissionRequest{}, nil)
	require.Error(t, err)
	assert.Nil(t, subs.created)
}

func TestSubmitByMemberCompletesTask(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Status: models.TaskStatusPending},
	}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	content := "draft attached"
	submission, err := svc.Submit(context.Background(), studentActor("user-1"), "task-1", models.CreateSubmissionRequest{Content: &content}, nil)
	require.NoError(t, err)
	assert.Equal(t, "student-1", submission.StudentID)
	require.NotNil(t, subs.created)
}

func TestSubmitNotifiesAssigningFaculty(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Title: "Review", Status: models.TaskStatusPending},
	}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	content := "draft attached"
	submission, err := svc.Submit(context.Background(), studentActor("user-1"), "task-1", models.CreateSubmissionRequest{Content: &content}, nil)
	require.NoError(t, err)
	require.Len(t, n.single, 1)
	assert.Equal(t, "fac-user", n.single[0].UserID)
	assert.Equal(t, models.NotificationSubmissionFeedback, n.single[0].Type)
	require.NotNil(t, n.single[0].RelatedID)
	assert.Equal(t, submission.ID, *n.single[0].RelatedID)
}

func TestSubmitByNonMemberForbidden(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Status: models.TaskStatusPending},
	}
	students.byUser["user-9"] = models.Student{ID: "student-9", UserID: "user-9"}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	content := "outsider"
	_, err := svc.Submit(context.Background(), studentActor("user-9"), "task-1", models.CreateSubmissionRequest{Content: &content}, nil)
	require.Error(t, err)
	assert.Nil(t, subs.created)
}

func TestFeedbackOnlyByAssigner(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Title: "Review", Status: models.TaskStatusCompleted},
	}
	subs.submissions = map[string]models.Submission{
		"sub-1": {ID: "sub-1", TaskID: "task-1", StudentID: "student-1"},
	}
	faculties.byUser["other-user"] = models.Faculty{ID: "fac-2", UserID: "other-user"}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	_, err := svc.Feedback(context.Background(), facultyActor("other-user"), "sub-1", models.FeedbackRequest{Feedback: "solid work"})
	require.Error(t, err)

	reviewed, err := svc.Feedback(context.Background(), facultyActor("fac-user"), "sub-1", models.FeedbackRequest{Feedback: "solid work"})
	require.NoError(t, err)
	require.NotNil(t, reviewed.Feedback)
	assert.Equal(t, "solid work", *reviewed.Feedback)
	require.Len(t, n.single, 1)
	assert.Equal(t, "user-1", n.single[0].UserID)
	assert.Equal(t, models.NotificationSubmissionFeedback, n.single[0].Type)
}

func TestFeedbackRequiresTextOrGrade(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Status: models.TaskStatusCompleted},
	}
	subs.submissions = map[string]models.Submission{
		"sub-1": {ID: "sub-1", TaskID: "task-1", StudentID: "student-1"},
	}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	_, err := svc.Feedback(context.Background(), facultyActor("fac-user"), "sub-1", models.FeedbackRequest{})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestFeedbackGradeOnlyKeepsEarlierText(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Title: "Review", Status: models.TaskStatusCompleted},
	}
	earlier := "needs a stronger evaluation section"
	subs.submissions = map[string]models.Submission{
		"sub-1": {ID: "sub-1", TaskID: "task-1", StudentID: "student-1", Feedback: &earlier},
	}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, nil, 0, n, nil, nil)

	grade := 88
	reviewed, err := svc.Feedback(context.Background(), facultyActor("fac-user"), "sub-1", models.FeedbackRequest{Grade: &grade})
	require.NoError(t, err)
	require.NotNil(t, reviewed.Grade)
	assert.Equal(t, 88, *reviewed.Grade)
	require.NotNil(t, reviewed.Feedback)
	assert.Equal(t, earlier, *reviewed.Feedback)
}

func TestTaskUpdateStatusByAssigner(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.tasks = map[string]models.Task{
		"task-1": {ID: "task-1", ThesisID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", FacultyID: "fac-1", Title: "Review", Status: models.TaskStatusCompleted},
	}
	cache := &mockCache{values: map[string][]byte{"thesis:stats:7c9e6679-7425-40de-944b-e07fc1f90ae7": []byte("cached")}}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, cache, time.Minute, n, nil, nil)

	reopened := models.TaskStatusPending
	task, err := svc.Update(context.Background(), facultyActor("fac-user"), "task-1", models.UpdateTaskRequest{Status: &reopened})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.TaskStatusPending, tasks.tasks["task-1"].Status)
	// The cached stats are stale once the status flips by hand.
	assert.Empty(t, cache.values)
}

func TestStatsServedFromCacheSecondTime(t *testing.T) {
	tasks, subs, theses, students, faculties, n := newTaskFixture()
	tasks.stats = models.TaskStats{TotalTasks: 4, CompletedTasks: 1, PendingTasks: 3}
	cache := &mockCache{}
	svc := NewTaskService(tasks, subs, theses, students, faculties, nil, cache, time.Minute, n, nil, nil)

	first, err := svc.Stats(context.Background(), studentActor("user-1"), "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	require.NoError(t, err)
	assert.Equal(t, 4, first.TotalTasks)
	assert.Equal(t, 1, tasks.statsCalls)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.Stats(context.Background(), studentActor("user-1"), "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	require.NoError(t, err)
	assert.Equal(t, 1, tasks.statsCalls)
	assert.Equal(t, 1, cache.hits)
}
