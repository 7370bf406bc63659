package catalog_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/api/apifake"
	"github.com/jrsteele09/course-storefront/catalog"
	"github.com/stretchr/testify/require"
)

type loaderFixture struct {
	fake       *apifake.Fake
	loader     *catalog.Loader
	category   int
	level      int
	instructor int
	courses    []int
}

func setupLoaderFixture(t *testing.T) *loaderFixture {
	t.Helper()
	fake, srv := apifake.NewServer(t)
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	f := &loaderFixture{fake: fake, loader: catalog.NewLoader(client, catalog.WithFanOut(2))}
	f.category = fake.AddCategory("Programming")
	f.level = fake.AddLevel("Beginner")
	f.instructor = fake.AddInstructor(api.Instructor{Name: "Ada", CategoryID: f.category})
	for _, name := range []string{"Go", "Rust", "Zig"} {
		id := fake.AddCourse(api.Course{Name: name, CategoryID: f.category, LevelID: f.level, InstructorID: f.instructor, Cost: 10, Rate: 4})
		f.courses = append(f.courses, id)
	}
	fake.AddContent(api.Content{Name: "intro", LectureNumber: 1, Time: 10, CourseID: f.courses[0]})
	fake.AddContent(api.Content{Name: "deep", LectureNumber: 20, Time: 10, CourseID: f.courses[0]})
	return f
}

func TestLoadJoinsDetails(t *testing.T) {
	f := setupLoaderFixture(t)
	snap, err := f.loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Courses, 3)
	require.Len(t, snap.Categories, 1)

	first := snap.Courses[0]
	require.Equal(t, "Programming", first.CategoryTitle)
	require.Equal(t, "Beginner", first.LevelTitle)
	require.Equal(t, "Ada", first.InstructorName)
	require.ElementsMatch(t, []int{1, 20}, first.LectureNumbers)
	require.Empty(t, snap.Courses[1].LectureNumbers)
}

func TestLoadLooksUpEachDistinctReferenceOnce(t *testing.T) {
	f := setupLoaderFixture(t)
	_, err := f.loader.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, f.fake.CallCount(http.MethodGet, "/api/Instructors/"))
	require.Equal(t, 1, f.fake.CallCount(http.MethodGet, "/api/Levels/"))
	require.Equal(t, 3, f.fake.CallCount(http.MethodGet, "/api/CourseContents"))
}

func TestLoadToleratesDetailFailures(t *testing.T) {
	f := setupLoaderFixture(t)
	f.fake.Fail(http.MethodGet, "/api/CourseContents", http.StatusInternalServerError, "")
	f.fake.Fail(http.MethodGet, "/api/Instructors/"+itoa(f.instructor), http.StatusNotFound, "")

	snap, err := f.loader.Load(context.Background())
	require.NoError(t, err)
	for _, c := range snap.Courses {
		require.Empty(t, c.LectureNumbers)
		require.Empty(t, c.InstructorName)
		require.Equal(t, "Beginner", c.LevelTitle)
	}
}

func TestLoadFailsWhenCoursesFail(t *testing.T) {
	f := setupLoaderFixture(t)
	f.fake.Fail(http.MethodGet, "/api/Courses", http.StatusInternalServerError, `"boom"`)
	_, err := f.loader.Load(context.Background())
	require.Error(t, err)
	require.Equal(t, api.KindServer, api.KindOf(err))
}

func TestLoadSummarySkipsFanOut(t *testing.T) {
	f := setupLoaderFixture(t)
	snap, err := f.loader.LoadSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Courses, 3)
	require.Equal(t, "Programming", snap.Courses[2].CategoryTitle)
	require.Zero(t, f.fake.CallCount(http.MethodGet, "/api/CourseContents"))
}

func TestLoadCourseDetails(t *testing.T) {
	f := setupLoaderFixture(t)
	d, err := f.loader.LoadCourse(context.Background(), f.courses[0])
	require.NoError(t, err)
	require.Equal(t, "Go", d.Course.Name)
	require.Equal(t, "Ada", d.Course.InstructorName)
	require.Len(t, d.Contents, 2)
	require.Equal(t, 1, d.Contents[0].LectureNumber)

	_, err = f.loader.LoadCourse(context.Background(), 424242)
	require.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestLoadCanceled(t *testing.T) {
	f := setupLoaderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.loader.Load(ctx)
	require.True(t, api.IsCanceled(err))
}
