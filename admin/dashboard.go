package admin

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const MsgDashboardFailed = "Failed to load data. Please try again later."

type DashboardAPI interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
	ListCourses(ctx context.Context) ([]api.Course, error)
	ListInstructors(ctx context.Context) ([]api.Instructor, error)
	ListPrices(ctx context.Context) ([]api.PriceRecord, error)
}

type Counts struct {
	Categories  int `json:"categories"`
	Courses     int `json:"courses"`
	Instructors int `json:"instructors"`
}

// MonthRevenue is the takings of one calendar month.
type MonthRevenue struct {
	Month        string  `json:"month"`
	Year         int     `json:"year"`
	Deposits     float64 `json:"deposits"`
	HighestPrice float64 `json:"highestPrice"`
}

type Summary struct {
	Counts              Counts         `json:"counts"`
	MonthlyRevenue      []MonthRevenue `json:"monthlyRevenue"`
	CurrentMonthRevenue float64        `json:"currentMonthRevenue"`
	CurrentMonthHighest float64        `json:"currentMonthHighest"`
	IsHighest           bool           `json:"isHighest"`
}

type Dashboard struct {
	api     DashboardAPI
	nowTime func() time.Time
}

type DashboardOption func(*Dashboard)

func WithNowTime(now func() time.Time) DashboardOption {
	return func(d *Dashboard) {
		d.nowTime = now
	}
}

func NewDashboard(client DashboardAPI, opts ...DashboardOption) (*Dashboard, error) {
	if client == nil {
		return nil, errors.New("[NewDashboard] api is required")
	}
	d := &Dashboard{api: client, nowTime: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Summary fetches the four lists together; any failure fails the summary.
func (d *Dashboard) Summary(ctx context.Context) (*Summary, error) {
	var (
		categories  []api.Category
		courses     []api.Course
		instructors []api.Instructor
		prices      []api.PriceRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = d.api.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		courses, err = d.api.ListCourses(gctx)
		return err
	})
	g.Go(func() (err error) {
		instructors, err = d.api.ListInstructors(gctx)
		return err
	})
	g.Go(func() (err error) {
		prices, err = d.api.ListPrices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Err(err).Msg("loading dashboard")
		return nil, err
	}

	summary := Revenue(prices, d.nowTime())
	summary.Counts = Counts{Categories: len(categories), Courses: len(courses), Instructors: len(instructors)}
	return &summary, nil
}

// Revenue buckets price records by calendar month in chronological order.
// Records without an amount or a timestamp are skipped.
func Revenue(prices []api.PriceRecord, now time.Time) Summary {
	type key struct {
		year  int
		month time.Month
	}
	buckets := map[key]*MonthRevenue{}
	var currentHighest, overallHighest float64
	for _, p := range prices {
		if p.Amount == 0 || p.CreatedAt.IsZero() {
			continue
		}
		at := p.CreatedAt.Time
		k := key{at.Year(), at.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &MonthRevenue{Month: monthName(at.Month()), Year: at.Year()}
			buckets[k] = b
		}
		b.Deposits += p.Amount
		b.HighestPrice = max(b.HighestPrice, p.Amount)
		if k.year == now.Year() && k.month == now.Month() {
			currentHighest = max(currentHighest, p.Amount)
		}
		overallHighest = max(overallHighest, p.Amount)
	}

	keys := make([]key, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	s := Summary{MonthlyRevenue: make([]MonthRevenue, 0, len(keys))}
	for _, k := range keys {
		s.MonthlyRevenue = append(s.MonthlyRevenue, *buckets[k])
	}
	if b, ok := buckets[key{now.Year(), now.Month()}]; ok {
		s.CurrentMonthRevenue = b.Deposits
	}
	s.CurrentMonthHighest = currentHighest
	s.IsHighest = currentHighest > 0 && currentHighest >= overallHighest
	return s
}

func monthName(m time.Month) string {
	return strings.ToUpper(m.String()[:3])
}
