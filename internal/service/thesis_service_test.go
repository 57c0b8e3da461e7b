package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type mockThesisRepo struct {
	theses      map[string]models.Thesis
	memberships map[string]models.ThesisMember
	members     []models.ThesisMemberDetail
	created     *models.Thesis
	createdFor  string
	deleted     []string
	newStatus   map[string]models.ThesisStatus
	newPassword map[string]string
	codes       map[string]bool
	added       []string
}

func membershipKey(thesisID, studentID string) string { return thesisID + "|" + studentID }

func (m *mockThesisRepo) CreateWithCreator(ctx context.Context, thesis *models.Thesis, studentID string) error {
	if thesis.ID == "" {
		thesis.ID = "thesis-new"
	}
	if m.theses == nil {
		m.theses = make(map[string]models.Thesis)
	}
	m.theses[thesis.ID] = *thesis
	m.created = thesis
	m.createdFor = studentID
	return nil
}

func (m *mockThesisRepo) FindByID(ctx context.Context, id string) (*models.Thesis, error) {
	if t, ok := m.theses[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockThesisRepo) FindByCode(ctx context.Context, code string) (*models.Thesis, error) {
	for _, t := range m.theses {
		if t.Code == code {
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockThesisRepo) FindDetailByID(ctx context.Context, id string) (*models.ThesisDetail, error) {
	if t, ok := m.theses[id]; ok {
		return &models.ThesisDetail{Thesis: t}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockThesisRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ThesisDetail, error) {
	return nil, nil
}

func (m *mockThesisRepo) ListBySupervisor(ctx context.Context, facultyID string) ([]models.ThesisDetail, error) {
	return nil, nil
}

func (m *mockThesisRepo) Update(ctx context.Context, thesis *models.Thesis) error {
	m.theses[thesis.ID] = *thesis
	return nil
}

func (m *mockThesisRepo) UpdateStatus(ctx context.Context, id string, status models.ThesisStatus) error {
	if m.newStatus == nil {
		m.newStatus = make(map[string]models.ThesisStatus)
	}
	m.newStatus[id] = status
	return nil
}

func (m *mockThesisRepo) UpdateJoinPassword(ctx context.Context, id, joinPassword string) error {
	if m.newPassword == nil {
		m.newPassword = make(map[string]string)
	}
	m.newPassword[id] = joinPassword
	return nil
}

func (m *mockThesisRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := m.theses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.theses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockThesisRepo) AddMember(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error) {
	m.added = append(m.added, membershipKey(thesisID, studentID))
	return &models.ThesisMember{ID: "member-new", ThesisID: thesisID, StudentID: studentID}, nil
}

func (m *mockThesisRepo) RemoveMember(ctx context.Context, thesisID, studentID string) error {
	return nil
}

func (m *mockThesisRepo) ListMembers(ctx context.Context, thesisID string) ([]models.ThesisMemberDetail, error) {
	return m.members, nil
}

func (m *mockThesisRepo) FindMembership(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error) {
	if mem, ok := m.memberships[membershipKey(thesisID, studentID)]; ok {
		return &mem, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockThesisRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

type mockStudentDir struct {
	byUser  map[string]models.Student
	byEmail map[string]models.Student
}

func (m *mockStudentDir) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentDir) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	if s, ok := m.byEmail[email]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockFacultyDir struct {
	byUser map[string]models.Faculty
	byID   map[string]models.Faculty
}

func (m *mockFacultyDir) FindByUserID(ctx context.Context, userID string) (*models.Faculty, error) {
	if f, ok := m.byUser[userID]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFacultyDir) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	if f, ok := m.byID[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	single []models.Notification
	fanout [][]string
}

func (m *mockNotifier) Notify(n models.Notification) { m.single = append(m.single, n) }
func (m *mockNotifier) NotifyAll(userIDs []string, template models.Notification) {
	m.fanout = append(m.fanout, userIDs)
}

func studentActor(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func facultyActor(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleFaculty}
}

func TestThesisCreateGeneratesCodeAndPassword(t *testing.T) {
	repo := &mockThesisRepo{}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	thesis, err := svc.Create(context.Background(), studentActor("user-1"), models.CreateThesisRequest{
		Title:        "Graph Neural Networks",
		ResearchTags: []string{"ml"},
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^GNN-\d{4}$`), thesis.Code)
	assert.Len(t, thesis.JoinPassword, 8)
	assert.Equal(t, models.ThesisStatusPendingSupervisor, thesis.Status)
	assert.Equal(t, "student-1", repo.createdFor)
}

func TestThesisCreateRejectsNonStudents(t *testing.T) {
	svc := NewThesisService(&mockThesisRepo{}, &mockStudentDir{}, &mockFacultyDir{}, nil, nil, nil)
	_, err := svc.Create(context.Background(), facultyActor("user-9"), models.CreateThesisRequest{Title: "X"})
	require.Error(t, err)
}

func TestThesisJoinWrongPassword(t *testing.T) {
	repo := &mockThesisRepo{theses: map[string]models.Thesis{
		"thesis-1": {ID: "thesis-1", Code: "GNN-1234", JoinPassword: "correct1", Status: models.ThesisStatusPendingSupervisor},
	}}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-2": {ID: "student-2", UserID: "user-2"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	_, err := svc.Join(context.Background(), studentActor("user-2"), models.JoinThesisRequest{Code: "GNN-1234", JoinPassword: "wrong000"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrInvalidJoinCode.Code, typed.Code)
	assert.Empty(t, repo.added)
}

func TestThesisJoinAlreadyMember(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Code: "GNN-1234", JoinPassword: "correct1", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-2"): {ThesisID: "thesis-1", StudentID: "student-2"},
		},
	}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-2": {ID: "student-2", UserID: "user-2"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	_, err := svc.Join(context.Background(), studentActor("user-2"), models.JoinThesisRequest{Code: "GNN-1234", JoinPassword: "correct1"})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrAlreadyMember.Code, typed.Code)
}

func TestThesisDeleteBlockedOnceSupervised(t *testing.T) {
	supervisor := "fac-1"
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Status: models.ThesisStatusActive, SupervisorID: &supervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-1"): {ThesisID: "thesis-1", StudentID: "student-1", Creator: true},
		},
	}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	err := svc.Delete(context.Background(), studentActor("user-1"), "thesis-1")
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrSupervisorAssigned.Code, typed.Code)
	assert.Empty(t, repo.deleted)
}

func TestThesisDeleteCascadesWhilePending(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-1"): {ThesisID: "thesis-1", StudentID: "student-1", Creator: true},
		},
	}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), studentActor("user-1"), "thesis-1"))
	assert.Equal(t, []string{"thesis-1"}, repo.deleted)
}

func TestThesisCloseOnlyFromActive(t *testing.T) {
	supervisor := "fac-1"
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"active":   {ID: "active", Title: "A", Status: models.ThesisStatusActive, SupervisorID: &supervisor},
			"inactive": {ID: "inactive", Title: "B", Status: models.ThesisStatusInactive, SupervisorID: &supervisor},
		},
		members: []models.ThesisMemberDetail{{UserID: "user-1"}, {UserID: "user-2"}},
	}
	faculties := &mockFacultyDir{byUser: map[string]models.Faculty{"fac-user": {ID: "fac-1", UserID: "fac-user"}}}
	n := &mockNotifier{}
	svc := NewThesisService(repo, &mockStudentDir{}, faculties, n, nil, nil)

	req := models.UpdateThesisStatusRequest{Status: models.ThesisStatusInactive}
	require.NoError(t, svc.Close(context.Background(), facultyActor("fac-user"), "active", req))
	assert.Equal(t, models.ThesisStatusInactive, repo.newStatus["active"])
	require.Len(t, n.fanout, 1)
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, n.fanout[0])

	err := svc.Close(context.Background(), facultyActor("fac-user"), "inactive", req)
	require.Error(t, err)
}

func TestThesisRotateReturnsFreshSecret(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", JoinPassword: "oldpass1", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-1"): {ThesisID: "thesis-1", StudentID: "student-1", Creator: true},
		},
	}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	password, err := svc.RotateJoinPassword(context.Background(), studentActor("user-1"), "thesis-1")
	require.NoError(t, err)
	assert.Len(t, password, 8)
	assert.NotEqual(t, "oldpass1", password)
	assert.Equal(t, password, repo.newPassword["thesis-1"])
}

func TestThesisAddMemberByEmail(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Title: "GNN", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-1"): {ThesisID: "thesis-1", StudentID: "student-1", Creator: true},
		},
	}
	students := &mockStudentDir{
		byUser:  map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}},
		byEmail: map[string]models.Student{"bela@example.edu": {ID: "student-2", UserID: "user-2"}},
	}
	n := &mockNotifier{}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, n, nil, nil)

	member, err := svc.AddMember(context.Background(), studentActor("user-1"), "thesis-1", models.AddThesisMemberRequest{Email: "bela@example.edu"})
	require.NoError(t, err)
	assert.Equal(t, "student-2", member.StudentID)
	assert.Equal(t, []string{membershipKey("thesis-1", "student-2")}, repo.added)
	require.Len(t, n.single, 1)
	assert.Equal(t, "user-2", n.single[0].UserID)
}

func TestThesisAddMemberOnlyByCreator(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-2"): {ThesisID: "thesis-1", StudentID: "student-2"},
		},
	}
	students := &mockStudentDir{
		byUser:  map[string]models.Student{"user-2": {ID: "student-2", UserID: "user-2"}},
		byEmail: map[string]models.Student{"cara@example.edu": {ID: "student-3", UserID: "user-3"}},
	}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	_, err := svc.AddMember(context.Background(), studentActor("user-2"), "thesis-1", models.AddThesisMemberRequest{Email: "cara@example.edu"})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
	assert.Empty(t, repo.added)
}

func TestThesisAddMemberUnknownEmail(t *testing.T) {
	repo := &mockThesisRepo{
		theses: map[string]models.Thesis{
			"thesis-1": {ID: "thesis-1", Status: models.ThesisStatusPendingSupervisor},
		},
		memberships: map[string]models.ThesisMember{
			membershipKey("thesis-1", "student-1"): {ThesisID: "thesis-1", StudentID: "student-1", Creator: true},
		},
	}
	students := &mockStudentDir{byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1"}}}
	svc := NewThesisService(repo, students, &mockFacultyDir{}, nil, nil, nil)

	_, err := svc.AddMember(context.Background(), studentActor("user-1"), "thesis-1", models.AddThesisMemberRequest{Email: "nobody@example.edu"})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestGenerateThesisCodeShape(t *testing.T) {
	code, err := generateThesisCode("Deep Learning on Graphs")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^DLO-\d{4}$`), code)

	code, err = generateThesisCode("   ")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^THS-\d{4}$`), code)
}
