package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultFanOut = 8

// Source is the read-only slice of the remote API the loader needs.
type Source interface {
	ListCourses(ctx context.Context) ([]api.Course, error)
	GetCourse(ctx context.Context, id int) (*api.Course, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
	GetCategory(ctx context.Context, id int) (*api.Category, error)
	GetInstructor(ctx context.Context, id int) (*api.Instructor, error)
	GetLevel(ctx context.Context, id int) (*api.Level, error)
	ListContents(ctx context.Context, courseID int) ([]api.Content, error)
}

// Snapshot is everything a list view needs, fetched once up front.
type Snapshot struct {
	Courses    []Course       `json:"courses"`
	Categories []api.Category `json:"categories"`
}

// Loader fetches the catalog and joins it client side: one lookup per distinct
// instructor and level, one content fetch per course.
type Loader struct {
	src    Source
	fanOut int
}

type LoaderOption func(*Loader)

// WithFanOut bounds the number of concurrent lookups.
func WithFanOut(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.fanOut = n
		}
	}
}

func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{src: src, fanOut: defaultFanOut}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadSummary fetches courses and categories only, for the admin list.
func (l *Loader) LoadSummary(ctx context.Context) (*Snapshot, error) {
	courses, categories, err := l.coursesAndCategories(ctx)
	if err != nil {
		return nil, err
	}
	titles := categoryTitles(categories)
	out := make([]Course, len(courses))
	for i, c := range courses {
		out[i] = Course{Course: c, CategoryTitle: titles[c.CategoryID]}
	}
	return &Snapshot{Courses: out, Categories: categories}, nil
}

// Load fetches the full storefront catalog. A failed instructor, level or
// content lookup leaves that detail blank rather than failing the load.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	courses, categories, err := l.coursesAndCategories(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu          sync.Mutex
		instructors = make(map[int]string)
		levels      = make(map[int]string)
		lectures    = make(map[int][]int, len(courses))
	)
	instructorIDs := make([]int, 0, len(courses))
	levelIDs := make([]int, 0, len(courses))
	for _, c := range courses {
		instructorIDs = append(instructorIDs, c.InstructorID)
		levelIDs = append(levelIDs, c.LevelID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.fanOut)
	for _, id := range utils.Unique(instructorIDs) {
		g.Go(func() error {
			in, err := l.src.GetInstructor(gctx, id)
			if err != nil {
				return tolerate(err, "instructor", id)
			}
			mu.Lock()
			instructors[id] = in.Name
			mu.Unlock()
			return nil
		})
	}
	for _, id := range utils.Unique(levelIDs) {
		g.Go(func() error {
			lvl, err := l.src.GetLevel(gctx, id)
			if err != nil {
				return tolerate(err, "level", id)
			}
			mu.Lock()
			levels[id] = lvl.Title
			mu.Unlock()
			return nil
		})
	}
	for _, c := range courses {
		g.Go(func() error {
			contents, err := l.src.ListContents(gctx, c.ID)
			if err != nil {
				return tolerate(err, "course contents", c.ID)
			}
			mu.Lock()
			lectures[c.ID] = lectureNumbers(contents)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	titles := categoryTitles(categories)
	out := make([]Course, len(courses))
	for i, c := range courses {
		out[i] = Course{
			Course:         c,
			CategoryTitle:  titles[c.CategoryID],
			LevelTitle:     levels[c.LevelID],
			InstructorName: instructors[c.InstructorID],
			LectureNumbers: lectures[c.ID],
		}
	}
	return &Snapshot{Courses: out, Categories: categories}, nil
}

// Details is the course details page: the joined course plus its content rows.
type Details struct {
	Course   Course        `json:"course"`
	Contents []api.Content `json:"contents"`
}

func (l *Loader) LoadCourse(ctx context.Context, id int) (*Details, error) {
	course, err := l.src.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Details{Course: Course{Course: *course}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat, err := l.src.GetCategory(gctx, course.CategoryID)
		if err != nil {
			return tolerate(err, "category", course.CategoryID)
		}
		mu.Lock()
		d.Course.CategoryTitle = cat.Title
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		in, err := l.src.GetInstructor(gctx, course.InstructorID)
		if err != nil {
			return tolerate(err, "instructor", course.InstructorID)
		}
		mu.Lock()
		d.Course.InstructorName = in.Name
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		lvl, err := l.src.GetLevel(gctx, course.LevelID)
		if err != nil {
			return tolerate(err, "level", course.LevelID)
		}
		mu.Lock()
		d.Course.LevelTitle = lvl.Title
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		contents, err := l.src.ListContents(gctx, course.ID)
		if err != nil {
			return tolerate(err, "course contents", course.ID)
		}
		sort.Slice(contents, func(i, j int) bool { return contents[i].LectureNumber < contents[j].LectureNumber })
		mu.Lock()
		d.Contents = contents
		d.Course.LectureNumbers = lectureNumbers(contents)
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (l *Loader) coursesAndCategories(ctx context.Context) ([]api.Course, []api.Category, error) {
	var (
		courses    []api.Course
		categories []api.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = l.src.ListCourses(gctx)
		return errors.Wrap(err, "[Loader] courses")
	})
	g.Go(func() error {
		var err error
		categories, err = l.src.ListCategories(gctx)
		return errors.Wrap(err, "[Loader] categories")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return courses, categories, nil
}

// tolerate swallows a failed detail lookup unless the load itself was canceled.
func tolerate(err error, what string, id int) error {
	if api.IsCanceled(err) {
		return err
	}
	log.Warn().Err(err).Int("id", id).Msgf("%s lookup failed, leaving blank", what)
	return nil
}

func categoryTitles(categories []api.Category) map[int]string {
	titles := make(map[int]string, len(categories))
	for _, c := range categories {
		titles[c.ID] = c.Title
	}
	return titles
}

func lectureNumbers(contents []api.Content) []int {
	out := make([]int, 0, len(contents))
	for _, c := range contents {
		out = append(out, c.LectureNumber)
	}
	return out
}
