package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/api/apifake"
	"github.com/jrsteele09/course-storefront/cart"
	"github.com/jrsteele09/course-storefront/internal/config"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/server"
	"github.com/jrsteele09/course-storefront/server/wizardrepo"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/jrsteele09/course-storefront/wizard"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	fake       *apifake.Fake
	store      *sessions.Store
	counter    *cart.Counter
	server     *server.Server
	category   int
	level      int
	instructor int
	now        time.Time
}

func setupTestFixture(t *testing.T, loadSession bool) *testFixture {
	t.Helper()
	return setupTestFixtureWithWizards(t, loadSession, wizardrepo.NewInMemoryRepo())
}

func setupTestFixtureWithWizards(t *testing.T, loadSession bool, wizards wizardrepo.Repo) *testFixture {
	t.Helper()
	fake, srv := apifake.NewServer(t)
	fake.AddUser("admin@example.com", "pw", "Ada", true)
	fake.AddUser("student@example.com", "pw", "Sam", false)

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	store, err := sessions.NewStore(sessions.NewInMemoryRepo(), client)
	require.NoError(t, err)
	if loadSession {
		require.NoError(t, store.Load(context.Background()))
	}
	authed := client.WithTokenSource(store)
	counter, err := cart.NewCounter(authed, store)
	require.NoError(t, err)

	t.Cleanup(wizards.CloseAll)
	f := &testFixture{fake: fake, store: store, counter: counter, now: time.Now()}
	s, err := server.New(config.New(), authed, store, counter, wizards, server.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.server = s

	f.category = fake.AddCategory("Programming")
	f.level = fake.AddLevel("Beginner")
	f.instructor = fake.AddInstructor(api.Instructor{Name: "Grace", CategoryID: f.category, Rate: 5})
	return f
}

func (f *testFixture) addCourse(name string, cost float64) int {
	return f.fake.AddCourse(api.Course{
		Name:         name,
		CategoryID:   f.category,
		LevelID:      f.level,
		InstructorID: f.instructor,
		Cost:         cost,
		TotalHours:   3,
		Rate:         4,
		Description:  name,
	})
}

func (f *testFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T, email string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteLogin, api.Credentials{Email: email, Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type sessionBody struct {
	Status    string `json:"status"`
	FirstName string `json:"firstName"`
	IsAdmin   bool   `json:"isAdmin"`
	CartCount int    `json:"cartCount"`
}

type errorBody struct {
	Error    string            `json:"error"`
	Kind     string            `json:"kind"`
	Fields   map[string]string `json:"fields"`
	Redirect string            `json:"redirect"`
}

func TestSessionLifecycle(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, http.MethodGet, server.RouteSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "anonymous", decode[sessionBody](t, rec).Status)

	rec = f.do(t, http.MethodPost, server.RouteLogin, api.Credentials{Email: "admin@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[struct {
		Redirect string      `json:"redirect"`
		Data     sessionBody `json:"data"`
	}](t, rec)
	require.Equal(t, server.PathHome, login.Redirect)
	require.Equal(t, "authenticated", login.Data.Status)
	require.Equal(t, "Ada", login.Data.FirstName)
	require.True(t, login.Data.IsAdmin)

	rec = f.do(t, http.MethodPost, server.RouteLogout, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, f.store.HasSession())
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, http.MethodPost, server.RouteLogin, api.Credentials{Email: "admin@example.com", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errorBody](t, rec)
	require.Equal(t, "Invalid email or password", body.Error)
	require.Empty(t, body.Redirect)
}

func TestDashboardGate(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		wantCode int
	}{
		{"anonymous", "", http.StatusSeeOther},
		{"not admin", "student@example.com", http.StatusSeeOther},
		{"admin", "admin@example.com", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, true)
			if tt.email != "" {
				f.login(t, tt.email)
			}
			rec := f.do(t, http.MethodGet, server.RouteDashboardSummary, nil)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusSeeOther {
				require.Equal(t, "/?from="+url.QueryEscape(server.RouteDashboardSummary), rec.Header().Get("Location"))
			}
		})
	}
}

func TestDashboardWaitsForSession(t *testing.T) {
	f := setupTestFixture(t, false)

	rec := f.do(t, http.MethodGet, server.RouteDashboardCourses, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Empty(t, rec.Header().Get("Location"))
}

func TestDashboardSummaryGreetsAdmin(t *testing.T) {
	f := setupTestFixture(t, true)
	f.addCourse("Go", 10)
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodGet, server.RouteDashboardSummary, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		FirstName string `json:"firstName"`
		Counts    struct {
			Courses int `json:"courses"`
		} `json:"counts"`
	}](t, rec)
	require.Equal(t, "Ada", body.FirstName)
	require.Equal(t, 1, body.Counts.Courses)
}

func TestGoogleCallbackHandledOnce(t *testing.T) {
	f := setupTestFixture(t, true)
	expiry := time.Now().Add(time.Hour)
	q := url.Values{
		"token":   {apifake.IssueToken("Hedy", false, expiry)},
		"expiry":  {expiry.UTC().Format(time.RFC3339)},
		"isAdmin": {"True"},
	}
	var events int
	f.store.Subscribe(func(sessions.Snapshot) { events++ })

	for range 2 {
		rec := f.do(t, http.MethodGet, server.RouteGoogleCallback+"?"+q.Encode(), nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, sessions.CallbackSuccessPath, rec.Header().Get("Location"))
	}
	require.Equal(t, 1, events)
	require.True(t, f.store.Snapshot().IsAdmin())
}

func TestGoogleCallbackMissingToken(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, http.MethodGet, server.RouteGoogleCallback+"?expiry=2030-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, sessions.CallbackFailurePath, rec.Header().Get("Location"))
	require.False(t, f.store.HasSession())
}

type coursesBody struct {
	Page struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Page       int `json:"page"`
		TotalItems int `json:"totalItems"`
	} `json:"page"`
}

func TestCoursesFilterAndPaging(t *testing.T) {
	f := setupTestFixture(t, true)
	for i := range 8 {
		f.addCourse("Course "+strconv.Itoa(i), float64(10+i))
	}
	f.addCourse("Rust", 5)

	rec := f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[coursesBody](t, rec)
	require.Equal(t, 9, body.Page.TotalItems)
	require.Len(t, body.Page.Items, 6)

	rec = f.do(t, http.MethodGet, server.RouteCourses+"?page=2", nil)
	body = decode[coursesBody](t, rec)
	require.Equal(t, 2, body.Page.Page)
	require.Len(t, body.Page.Items, 3)

	// A changed filter goes back to page one whatever page is asked for.
	rec = f.do(t, http.MethodGet, server.RouteCourses+"?search=rust&page=2", nil)
	body = decode[coursesBody](t, rec)
	require.Equal(t, 1, body.Page.Page)
	require.Len(t, body.Page.Items, 1)
	require.Equal(t, "Rust", body.Page.Items[0].Name)
}

func TestCoursesCacheExpires(t *testing.T) {
	f := setupTestFixture(t, true)
	f.addCourse("Go", 10)

	rec := f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, 1, decode[coursesBody](t, rec).Page.TotalItems)

	f.addCourse("Rust", 20)
	rec = f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, 1, decode[coursesBody](t, rec).Page.TotalItems)

	f.now = f.now.Add(time.Minute)
	rec = f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, 2, decode[coursesBody](t, rec).Page.TotalItems)
}

func TestAdminDeleteRefreshesStorefront(t *testing.T) {
	f := setupTestFixture(t, true)
	f.addCourse("Go", 10)
	doomed := f.addCourse("Rust", 20)
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, 2, decode[coursesBody](t, rec).Page.TotalItems)

	rec = f.do(t, http.MethodDelete, routeWith(server.RouteDashboardCourse, "{id}", strconv.Itoa(doomed)), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, server.RouteCourses, nil)
	require.Equal(t, 1, decode[coursesBody](t, rec).Page.TotalItems)
}

func TestCartRequiresSession(t *testing.T) {
	f := setupTestFixture(t, true)

	rec := f.do(t, http.MethodGet, server.RouteCart, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.PathLogin, decode[errorBody](t, rec).Redirect)
}

func TestAddToCartUpdatesCount(t *testing.T) {
	f := setupTestFixture(t, true)
	course := f.addCourse("Go", 100)
	f.login(t, "student@example.com")

	rec := f.do(t, http.MethodPost, server.RouteCart, map[string]any{"courseId": course})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, rec).Count)
	require.Len(t, f.fake.CartItems(), 1)
}

func TestRemoteRejectionEndsSession(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "student@example.com")
	f.fake.Fail(http.MethodGet, "/api/Cart", http.StatusUnauthorized, `{"message":"Unauthorized"}`)

	rec := f.do(t, http.MethodGet, server.RouteCart, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, server.PathLogin, decode[errorBody](t, rec).Redirect)
	require.False(t, f.store.HasSession())
	require.Zero(t, f.counter.Count())
}

func TestRemoteForbiddenKeepsSession(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "student@example.com")
	f.fake.Fail(http.MethodGet, "/api/Cart", http.StatusForbidden, `{"message":"Forbidden"}`)

	rec := f.do(t, http.MethodGet, server.RouteCart, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[errorBody](t, rec)
	require.Equal(t, "forbidden", body.Kind)
	require.Empty(t, body.Redirect)
	require.True(t, f.store.Snapshot().IsAuthenticated())
}

func TestCheckoutRejectsInvalidForm(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "student@example.com")

	rec := f.do(t, http.MethodPost, server.RouteCheckout, map[string]string{"paymentMethod": "credit"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	require.NotEmpty(t, body.Fields)
	require.Zero(t, f.fake.CallCount(http.MethodPost, "/api/Payment"))
}

// brokenWizardRepo refuses to store wizards.
type brokenWizardRepo struct {
	wizardrepo.Repo
}

func (brokenWizardRepo) Put(*wizard.Wizard) error {
	return errors.New("wizard store unavailable")
}

func TestUnexpectedFailureHidesDetail(t *testing.T) {
	f := setupTestFixtureWithWizards(t, true, brokenWizardRepo{Repo: wizardrepo.NewInMemoryRepo()})
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodPost, server.RouteWizards, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	require.Equal(t, apperrors.ErrInternal.Error(), body.Error)
	require.NotContains(t, rec.Body.String(), "unavailable")
}

type wizardBody struct {
	ID       string `json:"id"`
	Stage    string `json:"stage"`
	CourseID int    `json:"courseId"`
	Contents []struct {
		ID string `json:"id"`
	} `json:"contents"`
}

func wizardPath(route, id string) string {
	return routeWith(route, "{id}", id)
}

func routeWith(route, param, value string) string {
	return strings.Replace(route, param, value, 1)
}

func TestWizardAddFlow(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodPost, server.RouteWizards, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wz := decode[wizardBody](t, rec)
	require.Equal(t, string(wizard.StageMetadata), wz.Stage)

	rec = f.do(t, http.MethodPatch, wizardPath(server.RouteWizardFields, wz.ID), map[string]string{
		wizard.FieldName:          "Rust",
		wizard.FieldInstructorID:  strconv.Itoa(f.instructor),
		wizard.FieldCategoryID:    strconv.Itoa(f.category),
		wizard.FieldLevelID:       strconv.Itoa(f.level),
		wizard.FieldCost:          "99.99",
		wizard.FieldTotalHours:    "10",
		wizard.FieldDescription:   "Systems",
		wizard.FieldCertification: "Yes",
		wizard.FieldRating:        "5",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var img bytes.Buffer
	mw := multipart.NewWriter(&img)
	part, err := mw.CreateFormFile(wizard.FieldImage, "c.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPut, wizardPath(server.RouteWizardImage, wz.ID), &img)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	imgRec := httptest.NewRecorder()
	f.server.ServeHTTP(imgRec, req)
	require.Equal(t, http.StatusOK, imgRec.Code, imgRec.Body.String())

	rec = f.do(t, http.MethodPost, wizardPath(server.RouteWizardMetadata, wz.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	wz = decode[wizardBody](t, rec)
	require.Equal(t, string(wizard.StageContents), wz.Stage)
	require.NotZero(t, wz.CourseID)
	require.Len(t, wz.Contents, 1)

	row := routeWith(wizardPath(server.RouteWizardRow, wz.ID), "{row}", wz.Contents[0].ID)
	rec = f.do(t, http.MethodPatch, row, map[string]string{
		wizard.FieldName:          "Intro",
		wizard.FieldLectureNumber: "1",
		wizard.FieldTime:          "8",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, wizardPath(server.RouteWizardSave, wz.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, server.PathAdminCourses, decode[struct {
		Redirect string `json:"redirect"`
	}](t, rec).Redirect)
	require.Len(t, f.fake.Contents(wz.CourseID), 1)

	rec = f.do(t, http.MethodGet, wizardPath(server.RouteWizard, wz.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWizardSubmitMissingFields(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "admin@example.com")
	wz := decode[wizardBody](t, f.do(t, http.MethodPost, server.RouteWizards, nil))

	rec := f.do(t, http.MethodPost, wizardPath(server.RouteWizardMetadata, wz.ID), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Zero(t, f.fake.CallCount(http.MethodPost, "/api/Courses"))
}

func TestEditPurchasedCourseRefused(t *testing.T) {
	f := setupTestFixture(t, true)
	course := f.addCourse("Go", 10)
	f.fake.AddPayment(api.Payment{CourseID: course, Total: 11.5})
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodPost, routeWith(server.RouteDashboardEdit, "{id}", strconv.Itoa(course)), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, decode[errorBody](t, rec).Error, "cannot be updated")
}

func TestLogoutClosesWizards(t *testing.T) {
	f := setupTestFixture(t, true)
	f.login(t, "admin@example.com")
	wz := decode[wizardBody](t, f.do(t, http.MethodPost, server.RouteWizards, nil))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, server.RouteLogout, nil).Code)
	f.login(t, "admin@example.com")

	rec := f.do(t, http.MethodGet, wizardPath(server.RouteWizard, wz.ID), nil)
	require.Contains(t, []int{http.StatusNotFound, http.StatusGone}, rec.Code)
}
