package catalog

import (
	"strings"

	"github.com/jrsteele09/course-storefront/api"
)

// InstructorRow is an instructor with its category title resolved.
type InstructorRow struct {
	api.Instructor
	CategoryTitle string `json:"categoryTitle"`
}

func JoinInstructors(instructors []api.Instructor, categories []api.Category) []InstructorRow {
	titles := categoryTitles(categories)
	rows := make([]InstructorRow, len(instructors))
	for i, in := range instructors {
		rows[i] = InstructorRow{Instructor: in, CategoryTitle: titles[in.CategoryID]}
	}
	return rows
}

// FilterInstructors matches search against name or category title and pages the result.
func FilterInstructors(rows []InstructorRow, search string, page, pageSize int) Page[InstructorRow] {
	term := strings.ToLower(strings.TrimSpace(search))
	matched := make([]InstructorRow, 0, len(rows))
	for _, r := range rows {
		if term == "" ||
			strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.CategoryTitle), term) {
			matched = append(matched, r)
		}
	}
	return Paginate(matched, page, pageSize)
}

// InstructorsInCategory is the instructor choice offered once a category is picked.
func InstructorsInCategory(instructors []api.Instructor, categoryID int) []api.Instructor {
	out := make([]api.Instructor, 0, len(instructors))
	for _, in := range instructors {
		if in.CategoryID == categoryID {
			out = append(out, in)
		}
	}
	return out
}
