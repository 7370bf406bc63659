// Package catalog filters, sorts and pages the course lists shown on the
// storefront and in the admin console.
package catalog

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jrsteele09/course-storefront/api"
)

const DefaultPageSize = 6

// Course is a remote course joined with the titles and lecture numbers the views display.
type Course struct {
	api.Course
	CategoryTitle  string `json:"categoryTitle"`
	LevelTitle     string `json:"levelTitle"`
	InstructorName string `json:"instructorName"`
	LectureNumbers []int  `json:"lectureNumbers"`
}

type SortKey string

const (
	SortRating       SortKey = ""
	SortHighestPrice SortKey = "Highest price"
	SortLowestPrice  SortKey = "Lowest price"
	SortLatest       SortKey = "The latest"
	SortOldest       SortKey = "The oldest"
)

func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortHighestPrice, SortLowestPrice, SortLatest, SortOldest:
		return k
	default:
		return SortRating
	}
}

type LectureBucket string

const (
	LecturesAll    LectureBucket = "All"
	Lectures1To15  LectureBucket = "1-15"
	Lectures16To30 LectureBucket = "16-30"
	Lectures31To45 LectureBucket = "31-45"
	LecturesOver45 LectureBucket = "More than 45"
)

// Contains reports whether lecture number n falls in the bucket.
func (b LectureBucket) Contains(n int) bool {
	switch b {
	case Lectures1To15:
		return n >= 1 && n <= 15
	case Lectures16To30:
		return n >= 16 && n <= 30
	case Lectures31To45:
		return n >= 31 && n <= 45
	case LecturesOver45:
		return n > 45
	default:
		return true
	}
}

func ParseLectureBucket(s string) LectureBucket {
	switch b := LectureBucket(s); b {
	case Lectures1To15, Lectures16To30, Lectures31To45, LecturesOver45:
		return b
	default:
		return LecturesAll
	}
}

// PriceRange is inclusive at both ends.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (p PriceRange) Contains(v float64) bool {
	return v >= p.Min && v <= p.Max
}

// Filter is the whole filter and sort selection of a list view. Zero values mean "any".
type Filter struct {
	SearchTerm string        `json:"searchTerm"`
	CategoryID int           `json:"categoryId"`
	Categories []string      `json:"categories"`
	Rating     int           `json:"rating"`
	Price      *PriceRange   `json:"price"`
	Lectures   LectureBucket `json:"lectures"`
	Sort       SortKey       `json:"sort"`
}

// StorefrontFilter is the initial selection of the public course list.
func StorefrontFilter() Filter {
	return Filter{Price: &PriceRange{Min: 0, Max: 1000}, Lectures: LecturesAll}
}

func (f Filter) Equal(o Filter) bool {
	samePrice := (f.Price == nil && o.Price == nil) ||
		(f.Price != nil && o.Price != nil && *f.Price == *o.Price)
	return f.SearchTerm == o.SearchTerm &&
		f.CategoryID == o.CategoryID &&
		slices.Equal(f.Categories, o.Categories) &&
		f.Rating == o.Rating &&
		samePrice &&
		f.Lectures == o.Lectures &&
		f.Sort == o.Sort
}

// Match applies every active criterion to c.
func (f Filter) Match(c Course) bool {
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" && !matchesSearch(c, term) {
		return false
	}
	if f.CategoryID != 0 && c.CategoryID != f.CategoryID {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, c.CategoryTitle) {
		return false
	}
	if f.Rating != 0 && c.Rate != f.Rating {
		return false
	}
	if f.Price != nil && !f.Price.Contains(c.Cost) {
		return false
	}
	if f.Lectures != "" && f.Lectures != LecturesAll && !slices.ContainsFunc(c.LectureNumbers, f.Lectures.Contains) {
		return false
	}
	return true
}

func matchesSearch(c Course, term string) bool {
	fields := []string{
		c.Name,
		c.CategoryTitle,
		strconv.Itoa(c.Rate),
		strconv.FormatFloat(c.Cost, 'f', -1, 64),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Sort orders courses in place. Ties keep their incoming order.
func Sort(courses []Course, key SortKey) {
	var less func(a, b Course) bool
	switch key {
	case SortHighestPrice:
		less = func(a, b Course) bool { return a.Cost > b.Cost }
	case SortLowestPrice:
		less = func(a, b Course) bool { return a.Cost < b.Cost }
	case SortLatest:
		less = func(a, b Course) bool { return a.ID > b.ID }
	case SortOldest:
		less = func(a, b Course) bool { return a.ID < b.ID }
	default:
		less = func(a, b Course) bool { return a.Rate > b.Rate }
	}
	sort.SliceStable(courses, func(i, j int) bool { return less(courses[i], courses[j]) })
}

// Apply filters, sorts and pages courses without modifying the input.
func Apply(courses []Course, f Filter, page, pageSize int) Page[Course] {
	matched := make([]Course, 0, len(courses))
	for _, c := range courses {
		if f.Match(c) {
			matched = append(matched, c)
		}
	}
	Sort(matched, f.Sort)
	return Paginate(matched, page, pageSize)
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
	PageSize   int `json:"pageSize"`
}

// Paginate returns one page of items. The page is clamped into [1, TotalPages],
// so removing the last item of the last page lands on the new last page.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := max(1, (len(items)+pageSize-1)/pageSize)
	page = min(max(page, 1), totalPages)
	start := min((page-1)*pageSize, len(items))
	end := min(start+pageSize, len(items))
	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(items),
		PageSize:   pageSize,
	}
}
