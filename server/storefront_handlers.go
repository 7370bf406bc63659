package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/catalog"
	"github.com/jrsteele09/course-storefront/checkout"
	"github.com/jrsteele09/course-storefront/internal/utils"
)

type courseListView struct {
	Filter     catalog.Filter               `json:"filter"`
	Page       catalog.Page[catalog.Course] `json:"page"`
	Categories []api.Category               `json:"categories"`
}

// fullCatalog returns the cached storefront catalog, fetching it when absent
// or when the caller asks for a refresh.
func (s *Server) fullCatalog(ctx context.Context, refresh bool) (*catalog.Snapshot, error) {
	if snap := s.catalogCache.get(); snap != nil && !refresh {
		return snap, nil
	}
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.catalogCache.put(snap)
	return snap, nil
}

// applyQuery folds the query parameters present into the view's filter. The
// page parameter only counts when the filter itself did not change.
func applyQuery(state *catalog.State, q url.Values) {
	changed := state.Update(func(f *catalog.Filter) {
		if q.Has("search") {
			f.SearchTerm = q.Get("search")
		}
		if q.Has("categoryId") {
			f.CategoryID = utils.Atoi(q.Get("categoryId"))
		}
		if q.Has("category") {
			f.Categories = nil
			for _, c := range q["category"] {
				if c = strings.TrimSpace(c); c != "" {
					f.Categories = append(f.Categories, c)
				}
			}
		}
		if q.Has("rating") {
			f.Rating = utils.Atoi(q.Get("rating"))
		}
		if q.Has("minPrice") || q.Has("maxPrice") {
			p := catalog.PriceRange{Min: 0, Max: 1000}
			if f.Price != nil {
				p = *f.Price
			}
			if v, err := strconv.ParseFloat(q.Get("minPrice"), 64); err == nil {
				p.Min = v
			}
			if v, err := strconv.ParseFloat(q.Get("maxPrice"), 64); err == nil {
				p.Max = v
			}
			f.Price = &p
		}
		if q.Has("lectures") {
			f.Lectures = catalog.ParseLectureBucket(q.Get("lectures"))
		}
		if q.Has("sort") {
			f.Sort = catalog.ParseSortKey(q.Get("sort"))
		}
	})
	if !changed && q.Has("page") {
		state.SetPage(queryInt(q, "page", 1))
	}
}

func (s *Server) CoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		snap, err := s.fullCatalog(r.Context(), q.Get("refresh") == "true")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		applyQuery(s.storefrontView, q)
		writeJSON(w, http.StatusOK, courseListView{
			Filter:     s.storefrontView.Filter(),
			Page:       s.storefrontView.Apply(snap.Courses, s.pageSize),
			Categories: snap.Categories,
		})
	}
}

func (s *Server) CourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		details, err := s.loader.LoadCourse(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func (s *Server) CategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := s.client.ListCategories(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

// CartHandler returns the cart with its totals, fetched fresh every time.
func (s *Server) CartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := s.checkout.Preview(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

type countView struct {
	Count int `json:"count"`
}

func (s *Server) CartCountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "true" {
			if err := s.counter.FetchCount(r.Context()); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, countView{Count: s.counter.Count()})
	}
}

type addToCartRequest struct {
	CourseID int  `json:"courseId"`
	Sync     bool `json:"sync"`
}

// AddToCartHandler adds a course. Sync is the course details path, which
// refetches the count instead of incrementing it.
func (s *Server) AddToCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addToCartRequest
		if err := readJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		add := s.counter.Add
		if req.Sync {
			add = s.counter.AddAndSync
		}
		if err := add(r.Context(), req.CourseID); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, countView{Count: s.counter.Count()})
	}
}

func (s *Server) RemoveFromCartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.counter.Remove(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, countView{Count: s.counter.Count()})
	}
}

func (s *Server) CheckoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form checkout.BillingForm
		if err := readJSON(r, &form); err != nil {
			s.writeError(w, r, err)
			return
		}
		form.Method = checkout.ParseMethod(string(form.Method))
		order, err := s.checkout.Submit(r.Context(), form)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		writeJSON(w, http.StatusOK, redirectBody{Redirect: PathThanks, Data: order})
	}
}
