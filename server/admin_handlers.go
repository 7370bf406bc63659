package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/course-storefront/admin"
	"github.com/jrsteele09/course-storefront/catalog"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/utils"
	"github.com/jrsteele09/course-storefront/wizard"
)

type dashboardView struct {
	FirstName string `json:"firstName"`
	*admin.Summary
}

func (s *Server) DashboardSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.dashboard.Summary(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		view := dashboardView{Summary: summary}
		if snap, ok := sessionFromContext(r.Context()); ok && snap.Claim != nil {
			view.FirstName = snap.Claim.FirstName
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type adminCoursesView struct {
	Filter     catalog.Filter               `json:"filter"`
	Page       catalog.Page[catalog.Course] `json:"page"`
	Categories any                          `json:"categories"`
}

// AdminCoursesHandler lists courses without per course content lookups.
func (s *Server) AdminCoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.loader.LoadSummary(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		applyQuery(s.adminView, r.URL.Query())
		writeJSON(w, http.StatusOK, adminCoursesView{
			Filter:     s.adminView.Filter(),
			Page:       s.adminView.Apply(snap.Courses, s.pageSize),
			Categories: snap.Categories,
		})
	}
}

func (s *Server) DeleteCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.courses.Delete(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		w.WriteHeader(http.StatusNoContent)
	}
}

// EditCourseHandler opens an edit wizard, refusing courses already purchased.
func (s *Server) EditCourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		course, err := s.courses.EnsureEditable(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.openWizard(w, r, wizard.NewEdit(s.client, *course))
	}
}

func (s *Server) InstructorsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.instructors.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, catalog.FilterInstructors(rows, q.Get("search"), queryInt(q, "page", 1), s.pageSize))
	}
}

// instructorInput reads the multipart instructor form.
func instructorInput(r *http.Request) (admin.InstructorInput, error) {
	if err := r.ParseMultipartForm(maxUploadBody); err != nil && !apperrors.Is(err, http.ErrNotMultipart) {
		return admin.InstructorInput{}, apperrors.Wrapf(apperrors.ErrInvalidInput, "instructor form: %v", err)
	}
	in := admin.InstructorInput{
		Name:        r.FormValue("name"),
		CategoryID:  r.FormValue("categoryId"),
		Description: r.FormValue("description"),
	}
	in.Rating = utils.Atoi(strings.TrimSpace(r.FormValue("rating")))
	upload, err := readUpload(r, "image")
	if err != nil {
		return admin.InstructorInput{}, err
	}
	in.Image = upload
	return in, nil
}

func (s *Server) CreateInstructorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		in, err := instructorInput(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		created, err := s.instructors.Create(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		writeJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) UpdateInstructorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		in, err := instructorInput(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.instructors.Update(r.Context(), id, in); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DeleteInstructorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.instructors.Delete(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		w.WriteHeader(http.StatusNoContent)
	}
}
