package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/api/apifake"
	"github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

type testFixture struct {
	fake   *apifake.Fake
	client *api.Client
	authed *api.Client
	token  string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fake, srv := apifake.NewServer(t)
	client, err := api.New(srv.URL)
	require.NoError(t, err)
	token := apifake.IssueToken("Ada", true, time.Now().Add(time.Hour))
	authed := client.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	return &testFixture{fake: fake, client: client, authed: authed, token: token}
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := api.New("")
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.AddUser("ada@example.com", "pw", "Ada", true)

	resp, err := f.client.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.True(t, resp.IsAdmin)
	require.Equal(t, "Ada", resp.FirstName)

	_, err = f.client.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	require.Equal(t, api.KindUnauthorized, api.KindOf(err))
	require.Equal(t, "Invalid email or password", api.MessageOf(err))
}

func TestErrorPayloadShapes(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("plain string", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusBadRequest, `"Course name taken"`)
		_, err := f.client.ListCourses(ctx)
		require.Equal(t, api.KindValidation, api.KindOf(err))
		require.Equal(t, "Course name taken", api.MessageOf(err))
	})

	t.Run("problem details object", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusBadRequest, `{"title":"One or more validation errors occurred.","errors":{"Cost":["bad"]}}`)
		_, err := f.client.ListCourses(ctx)
		var apiErr *api.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "One or more validation errors occurred.", apiErr.Message)
		details, ok := apiErr.Details.(map[string]any)
		require.True(t, ok)
		require.Contains(t, details, "errors")
	})

	t.Run("array of identity errors", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusBadRequest, `[{"code":"A","description":"first"},"second"]`)
		_, err := f.client.ListCourses(ctx)
		require.Equal(t, "first; second", api.MessageOf(err))
	})

	t.Run("empty body", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusInternalServerError, "")
		_, err := f.client.ListCourses(ctx)
		require.Equal(t, api.KindServer, api.KindOf(err))
		require.Equal(t, "Internal Server Error", api.MessageOf(err))
	})

	t.Run("unauthorized and forbidden", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusUnauthorized, "")
		_, err := f.client.ListCourses(ctx)
		require.True(t, api.IsUnauthorized(err))

		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusForbidden, `{"message":"Admins only"}`)
		_, err = f.client.ListCourses(ctx)
		require.Equal(t, api.KindForbidden, api.KindOf(err))
		require.False(t, api.IsUnauthorized(err))
		require.Equal(t, "Admins only", api.MessageOf(err))
	})

	t.Run("conflict and not found", func(t *testing.T) {
		f.fake.FailOnce(http.MethodGet, "/api/Courses", http.StatusConflict, `{"message":"busy"}`)
		_, err := f.client.ListCourses(ctx)
		require.Equal(t, api.KindConflict, api.KindOf(err))

		_, err = f.client.GetCourse(ctx, 999)
		require.Equal(t, api.KindNotFound, api.KindOf(err))
	})
}

func TestAuthenticatedCallsCarryBearer(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.authed.ListCart(context.Background())
	require.NoError(t, err)

	calls := f.fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer "+f.token, calls[0].Authorization)
}

func TestAuthenticatedCallWithoutTokenIsNotSent(t *testing.T) {
	f := setupTestFixture(t)
	noSession := f.client.WithTokenSource(tokenSourceFunc(func() (*oauth2.Token, error) {
		return nil, errors.ErrNoToken
	}))

	_, err := noSession.ListCart(context.Background())
	require.Error(t, err)
	require.True(t, api.IsUnauthorized(err))
	require.Empty(t, f.fake.Calls())
}

func TestPublicCallsSkipBearer(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.AddCategory("Design")
	categories, err := f.authed.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Empty(t, f.fake.Calls()[0].Authorization)
}

func TestListContentsFiltersByCourse(t *testing.T) {
	f := setupTestFixture(t)
	a := f.fake.AddCourse(api.Course{Name: "A"})
	b := f.fake.AddCourse(api.Course{Name: "B"})
	f.fake.AddContent(api.Content{Name: "intro", LectureNumber: 1, Time: 5, CourseID: a})
	f.fake.AddContent(api.Content{Name: "other", LectureNumber: 1, Time: 5, CourseID: b})

	contents, err := f.client.ListContents(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.Equal(t, "intro", contents[0].Name)
	require.Equal(t, "courseId="+itoa(a), f.fake.Calls()[0].Query)
}

func TestCreateCourseSendsMultipartFields(t *testing.T) {
	f := setupTestFixture(t)
	form := api.CourseForm{
		Name: "Go", CategoryID: "1", LevelID: "2", InstructorID: "3", Cost: "99.99",
		TotalHours: "12", Rate: "4", Description: "d", Certification: "c",
		Image: &api.Upload{Filename: "go.png", ContentType: "image/png", Data: []byte("png")},
	}
	id, err := f.authed.CreateCourse(context.Background(), form)
	require.NoError(t, err)
	require.NotZero(t, id)

	fields := f.fake.LastForm("Courses")
	require.Equal(t, "Go", fields["Name"])
	require.Equal(t, "1", fields["CategoryId"])
	require.Equal(t, "2", fields["LevelId"])
	require.Equal(t, "3", fields["InstructorId"])
	require.Equal(t, "99.99", fields["Cost"])
	require.Equal(t, "12", fields["TotalHours"])
	require.Equal(t, "4", fields["Rate"])
	require.Equal(t, []byte("png"), f.fake.Image("course/"+itoa(id)))

	img, err := f.client.CourseImage(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), img.Data)
}

func TestCanceledContext(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.Delay(http.MethodGet, "/api/Courses", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.client.ListCourses(ctx)
	require.Equal(t, api.KindCanceled, api.KindOf(err))
	require.True(t, api.IsCanceled(err))
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{"2025-03-01T10:00:00Z", "2025-03-01T10:00:00", "2025-03-01T10:00:00.1234567"} {
		got, err := api.ParseTime(in)
		require.NoError(t, err, in)
		require.Equal(t, 2025, got.Year())
		require.Equal(t, time.March, got.Month())
		require.Equal(t, time.UTC, got.Location())
	}
	_, err := api.ParseTime("yesterday")
	require.Error(t, err)
}
