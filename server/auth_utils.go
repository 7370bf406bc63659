package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
	"github.com/rs/zerolog/log"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 8 << 20
)

type errorBody struct {
	Error    string            `json:"error"`
	Kind     string            `json:"kind,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Details  any               `json:"details,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// redirectBody tells the browser shell where to navigate after a success.
type redirectBody struct {
	Redirect string `json:"redirect"`
	Data     any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("encoding response")
	}
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "request body: %v", err)
	}
	return nil
}

// readUpload returns the named file part of a multipart request, or nil when absent.
func readUpload(r *http.Request, field string) (*api.Upload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "upload %s: %v", field, err)
	}
	defer file.Close()
	return uploadFrom(file, header)
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) (*api.Upload, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "reading upload: %v", err)
	}
	return &api.Upload{Filename: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n <= 0 {
		return 0, apperrors.Wrapf(apperrors.ErrInvalidInput, "%s must be a positive integer", name)
	}
	return n, nil
}

func queryInt(q url.Values, name string, fallback int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return fallback
	}
	return n
}

// writeError maps a failure onto the console's HTTP answer. A rejected token
// also ends the session and points the browser at the login page.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var formErr *validation.Error
	var fieldErrs validation.FieldErrors
	var apiErr *api.Error

	switch {
	case apperrors.As(err, &formErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: formErr.Message, Kind: string(api.KindValidation), Fields: formErr.Fields})
		return
	case apperrors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: fieldErrs.Error(), Kind: string(api.KindValidation), Fields: fieldErrs})
		return
	case api.IsCanceled(err):
		log.Debug().Str("path", r.URL.Path).Msg("request canceled")
		return
	case isUnauthorized(err):
		s.store.HandleUnauthorized()
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: api.MessageOf(err), Kind: string(api.KindUnauthorized), Redirect: PathLogin})
		return
	case apperrors.As(err, &apiErr):
		status := statusForKind(apiErr.Kind)
		if status >= http.StatusInternalServerError {
			logError(r.Method, r.URL.Path, err.Error())
		}
		writeJSON(w, status, errorBody{Error: apiErr.Message, Kind: string(apiErr.Kind), Details: apiErr.Details})
		return
	}

	status, kind := statusForSentinel(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logError(r.Method, r.URL.Path, err.Error())
		message = apperrors.ErrInternal.Error()
	}
	writeJSON(w, status, errorBody{Error: message, Kind: kind})
}

func isUnauthorized(err error) bool {
	return api.IsUnauthorized(err) ||
		apperrors.Is(err, apperrors.ErrNoToken) ||
		apperrors.Is(err, apperrors.ErrNoSession) ||
		apperrors.Is(err, apperrors.ErrSessionExpired)
}

func statusForKind(kind api.Kind) int {
	switch kind {
	case api.KindValidation:
		return http.StatusUnprocessableEntity
	case api.KindConflict:
		return http.StatusConflict
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindUnauthorized:
		return http.StatusUnauthorized
	case api.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func statusForSentinel(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound), apperrors.Is(err, apperrors.ErrRowNotFound):
		return http.StatusNotFound, "not_found"
	case apperrors.Is(err, apperrors.ErrWizardClosed):
		return http.StatusGone, "closed"
	case apperrors.Is(err, apperrors.ErrWrongStage), apperrors.Is(err, apperrors.ErrEditOnly):
		return http.StatusConflict, "conflict"
	case apperrors.Is(err, apperrors.ErrInvalidInput),
		apperrors.Is(err, apperrors.ErrInvalidCallback),
		apperrors.Is(err, apperrors.ErrLastContentItem),
		apperrors.Is(err, apperrors.ErrRowNotPersisted),
		apperrors.Is(err, apperrors.ErrNoCourseID):
		return http.StatusBadRequest, string(api.KindValidation)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// callbackKey identifies one external login redirect by its query, so a
// repeated delivery of the same redirect is handled once.
func callbackKey(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		for _, v := range q[k] {
			_, _ = io.WriteString(h, k+"="+v+"&")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
