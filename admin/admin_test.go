package admin_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/course-storefront/admin"
	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/api/apifake"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
	"github.com/jrsteele09/course-storefront/sessions"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	fake       *apifake.Fake
	client     *api.Client
	category   int
	instructor int
	course     int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	fake, srv := apifake.NewServer(t)
	fake.AddUser("admin@example.com", "pw", "Ada", true)
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	store, err := sessions.NewStore(sessions.NewInMemoryRepo(), client)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	require.NoError(t, store.Login(context.Background(), "admin@example.com", "pw"))

	f := &testFixture{fake: fake, client: client.WithTokenSource(store)}
	f.category = fake.AddCategory("Programming")
	f.instructor = fake.AddInstructor(api.Instructor{Name: "Ada", CategoryID: f.category, Rate: 5, Description: "x"})
	f.course = fake.AddCourse(api.Course{Name: "Go", CategoryID: f.category, InstructorID: f.instructor, Cost: 20})
	return f
}

func TestEnsureEditable(t *testing.T) {
	f := setupTestFixture(t)
	courses, err := admin.NewCourses(f.client)
	require.NoError(t, err)

	course, err := courses.EnsureEditable(context.Background(), f.course)
	require.NoError(t, err)
	require.Equal(t, "Go", course.Name)

	f.fake.AddPayment(api.Payment{CourseID: f.course, Total: 23})
	_, err = courses.EnsureEditable(context.Background(), f.course)
	require.Equal(t, api.KindConflict, api.KindOf(err))
	require.Equal(t, admin.MsgCoursePurchased, api.MessageOf(err))
}

func TestDeletePurchasedCourseRefused(t *testing.T) {
	f := setupTestFixture(t)
	courses, err := admin.NewCourses(f.client)
	require.NoError(t, err)
	f.fake.AddPayment(api.Payment{CourseID: f.course, Total: 23})

	err = courses.Delete(context.Background(), f.course)
	require.ErrorIs(t, err, apperrors.ErrCoursePurchased)
	require.Equal(t, admin.MsgCoursePurchasedDelete, api.MessageOf(err))
	require.Zero(t, f.fake.CallCount(http.MethodDelete, "/api/Courses"))
	_, ok := f.fake.Course(f.course)
	require.True(t, ok)
}

func TestDeleteCourse(t *testing.T) {
	f := setupTestFixture(t)
	courses, err := admin.NewCourses(f.client)
	require.NoError(t, err)

	require.NoError(t, courses.Delete(context.Background(), f.course))
	_, ok := f.fake.Course(f.course)
	require.False(t, ok)
}

func TestGuardFailsWhenPaymentsUnavailable(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.Fail(http.MethodGet, "/api/Payment", http.StatusInternalServerError, "")
	courses, err := admin.NewCourses(f.client)
	require.NoError(t, err)

	err = courses.Delete(context.Background(), f.course)
	require.Equal(t, api.KindServer, api.KindOf(err))
	require.Zero(t, f.fake.CallCount(http.MethodDelete, "/api/Courses"))
}

func TestInstructorListJoinsCategory(t *testing.T) {
	f := setupTestFixture(t)
	instructors, err := admin.NewInstructors(f.client)
	require.NoError(t, err)

	rows, err := instructors.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Programming", rows[0].CategoryTitle)
}

func TestInstructorValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  admin.InstructorInput
		create bool
		fields map[string]string
	}{
		{
			name:   "empty create",
			input:  admin.InstructorInput{},
			create: true,
			fields: map[string]string{
				"name":        "Instructor name is required",
				"categoryId":  "Category is required",
				"description": "Description is required",
				"rating":      "Rating is required",
				"image":       "Image is required",
			},
		},
		{
			name:   "update needs no image",
			input:  admin.InstructorInput{Name: "Bo", CategoryID: "1", Rating: 3, Description: "d"},
			create: false,
		},
		{
			name:   "create needs image",
			input:  admin.InstructorInput{Name: "Bo", CategoryID: "1", Rating: 3, Description: "d"},
			create: true,
			fields: map[string]string{"image": "Image is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate(tt.create)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var formErr *validation.Error
			require.ErrorAs(t, err, &formErr)
			require.Equal(t, validation.FieldErrors(tt.fields), formErr.Fields)
		})
	}
}

func TestCreateAndUpdateInstructor(t *testing.T) {
	f := setupTestFixture(t)
	instructors, err := admin.NewInstructors(f.client)
	require.NoError(t, err)

	input := admin.InstructorInput{
		Name:        "Bo",
		CategoryID:  itoa(f.category),
		Rating:      4,
		Description: "Designer",
		Image:       &api.Upload{Filename: "bo.png", ContentType: "image/png", Data: []byte("img")},
	}
	created, err := instructors.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "Bo", created.Name)
	require.Equal(t, "4", f.fake.LastForm("Instructors")["Rate"])

	input.Image = nil
	input.Name = "Bob"
	require.NoError(t, instructors.Update(context.Background(), created.ID, input))
	stored, ok := f.fake.Instructor(created.ID)
	require.True(t, ok)
	require.Equal(t, "Bob", stored.Name)
}

func TestInvalidInstructorMakesNoCall(t *testing.T) {
	f := setupTestFixture(t)
	instructors, err := admin.NewInstructors(f.client)
	require.NoError(t, err)
	f.fake.ResetCalls()

	_, err = instructors.Create(context.Background(), admin.InstructorInput{Name: "Bo"})
	require.Error(t, err)
	require.Empty(t, f.fake.Calls())
}

func TestDeleteInstructorWithCoursesRefused(t *testing.T) {
	f := setupTestFixture(t)
	instructors, err := admin.NewInstructors(f.client)
	require.NoError(t, err)

	err = instructors.Delete(context.Background(), f.instructor)
	require.ErrorIs(t, err, apperrors.ErrInstructorHasCourses)
	require.Equal(t, admin.MsgInstructorHasCourses, api.MessageOf(err))
	_, ok := f.fake.Instructor(f.instructor)
	require.True(t, ok)

	spare := f.fake.AddInstructor(api.Instructor{Name: "Spare", CategoryID: f.category})
	require.NoError(t, instructors.Delete(context.Background(), spare))
	_, ok = f.fake.Instructor(spare)
	require.False(t, ok)
}

func TestRevenue(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	at := func(month time.Month, day int) api.Time {
		return api.Time{Time: time.Date(2025, month, day, 10, 0, 0, 0, time.UTC)}
	}
	prices := []api.PriceRecord{
		{Amount: 100, CreatedAt: at(time.March, 1)},
		{Amount: 40, CreatedAt: at(time.January, 3)},
		{Amount: 60, CreatedAt: at(time.January, 20)},
		{Amount: 150, CreatedAt: at(time.March, 2)},
		{Amount: 0, CreatedAt: at(time.February, 1)},
		{Amount: 80},
	}

	s := admin.Revenue(prices, now)
	require.Equal(t, []admin.MonthRevenue{
		{Month: "JAN", Year: 2025, Deposits: 100, HighestPrice: 60},
		{Month: "MAR", Year: 2025, Deposits: 250, HighestPrice: 150},
	}, s.MonthlyRevenue)
	require.Equal(t, 250.0, s.CurrentMonthRevenue)
	require.Equal(t, 150.0, s.CurrentMonthHighest)
	require.True(t, s.IsHighest)

	prices = append(prices, api.PriceRecord{Amount: 500, CreatedAt: at(time.January, 5)})
	require.False(t, admin.Revenue(prices, now).IsHighest)
}

func TestRevenueEmpty(t *testing.T) {
	s := admin.Revenue(nil, time.Now())
	require.Empty(t, s.MonthlyRevenue)
	require.False(t, s.IsHighest)
	require.Zero(t, s.CurrentMonthHighest)
}

func TestDashboardSummary(t *testing.T) {
	f := setupTestFixture(t)
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	f.fake.AddPrice(30, now.Add(-time.Hour))
	f.fake.AddPrice(70, now.AddDate(0, -1, 0))

	dashboard, err := admin.NewDashboard(f.client, admin.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)
	s, err := dashboard.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, admin.Counts{Categories: 1, Courses: 1, Instructors: 1}, s.Counts)
	require.Len(t, s.MonthlyRevenue, 2)
	require.Equal(t, "MAY", s.MonthlyRevenue[0].Month)
	require.Equal(t, 30.0, s.CurrentMonthRevenue)
	require.False(t, s.IsHighest)
}

func TestDashboardFailsWhenAnyListFails(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.Fail(http.MethodGet, "/api/Price", http.StatusInternalServerError, "")
	dashboard, err := admin.NewDashboard(f.client)
	require.NoError(t, err)

	_, err = dashboard.Summary(context.Background())
	require.Error(t, err)
}
