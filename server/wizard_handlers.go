package server

import (
	"net/http"
	"sort"

	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/wizard"
	"github.com/rs/zerolog/log"
)

type wizardView struct {
	wizard.View
	Warning string `json:"warning,omitempty"`
}

// openWizard loads the wizard's choices and registers it. A reference list
// that fails to load is passed back as a warning; the form stays usable.
func (s *Server) openWizard(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	if swept := s.wizards.Sweep(wizardMaxIdle); swept > 0 {
		log.Debug().Int("count", swept).Msg("closed idle wizards")
	}
	view := wizardView{}
	if err := wz.Start(r.Context()); err != nil {
		if api.IsCanceled(err) || isUnauthorized(err) {
			wz.Close()
			s.writeError(w, r, err)
			return
		}
		view.Warning = err.Error()
	}
	if err := s.wizards.Put(wz); err != nil {
		wz.Close()
		s.writeError(w, r, err)
		return
	}
	view.View = wz.View()
	writeJSON(w, http.StatusCreated, view)
}

// wizardHandler resolves the {id} path value before calling fn.
func (s *Server) wizardHandler(fn func(http.ResponseWriter, *http.Request, *wizard.Wizard)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wz, err := s.wizards.Get(r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		fn(w, r, wz)
	}
}

// respond answers with the wizard's state, or the error of the step that failed.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizardView{View: wz.View()})
}

func (s *Server) CreateWizardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.openWizard(w, r, wizard.NewAdd(s.client))
	}
}

func (s *Server) WizardHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		s.respond(w, r, wz, nil)
	})
}

// fieldOrder applies the category before the instructor so that a patch
// setting both keeps an instructor from the new category.
func fieldOrder(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == wizard.FieldCategoryID) != (keys[j] == wizard.FieldCategoryID) {
			return keys[i] == wizard.FieldCategoryID
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (s *Server) WizardFieldsHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		var fields map[string]string
		if err := readJSON(r, &fields); err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, field := range fieldOrder(fields) {
			if err := wz.SetField(field, fields[field]); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		s.respond(w, r, wz, nil)
	})
}

func (s *Server) WizardImageHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		if err := r.ParseMultipartForm(maxUploadBody); err != nil {
			s.writeError(w, r, apperrors.Wrapf(apperrors.ErrInvalidInput, "image upload: %v", err))
			return
		}
		upload, err := readUpload(r, wizard.FieldImage)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.respond(w, r, wz, wz.SetImage(upload))
	})
}

func (s *Server) WizardMetadataHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		_, err := wz.SubmitMetadata(r.Context())
		if err == nil {
			s.catalogCache.invalidate()
		}
		s.respond(w, r, wz, err)
	})
}

func (s *Server) WizardContentsHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		s.respond(w, r, wz, wz.GoToContents(r.Context()))
	})
}

func (s *Server) WizardBackHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		s.respond(w, r, wz, wz.Back())
	})
}

func (s *Server) WizardAddRowHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		_, err := wz.AddRow()
		s.respond(w, r, wz, err)
	})
}

func (s *Server) WizardUpdateRowHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		var fields map[string]string
		if err := readJSON(r, &fields); err != nil {
			s.writeError(w, r, err)
			return
		}
		id := wizard.ItemID(r.PathValue("row"))
		for _, field := range fieldOrder(fields) {
			if err := wz.UpdateRow(id, field, fields[field]); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		s.respond(w, r, wz, nil)
	})
}

func (s *Server) WizardRemoveRowHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		err := wz.RemoveRow(r.Context(), wizard.ItemID(r.PathValue("row")))
		if err == nil {
			s.catalogCache.invalidate()
		}
		s.respond(w, r, wz, err)
	})
}

func (s *Server) WizardSaveRowHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		err := wz.SaveRow(r.Context(), wizard.ItemID(r.PathValue("row")))
		if err == nil {
			s.catalogCache.invalidate()
		}
		s.respond(w, r, wz, err)
	})
}

// WizardSaveHandler saves every row. On success the wizard is retired and the
// browser goes back to the course list.
func (s *Server) WizardSaveHandler() http.HandlerFunc {
	return s.wizardHandler(func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		if err := wz.SaveContents(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.catalogCache.invalidate()
		view := wz.View()
		if err := s.wizards.Delete(wz.ID); err != nil {
			log.Warn().Err(err).Str("wizard", wz.ID).Msg("removing finished wizard")
		}
		writeJSON(w, http.StatusOK, redirectBody{Redirect: PathAdminCourses, Data: view})
	})
}

func (s *Server) DeleteWizardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.wizards.Delete(r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
