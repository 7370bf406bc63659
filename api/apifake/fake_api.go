// Package apifake is an in-memory stand-in for the remote storefront API, served
// over httptest so the real client is exercised end to end.
package apifake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/course-storefront/api"
)

const SigningKey = "apifake-signing-key"

type user struct {
	firstName string
	password  string
	isAdmin   bool
}

// Call is one request the fake received.
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

type failure struct {
	status int
	body   string
	once   bool
}

type Fake struct {
	mu sync.Mutex

	users       map[string]user
	courses     map[int]api.Course
	contents    map[int]api.Content
	categories  map[int]api.Category
	levels      map[int]api.Level
	instructors map[int]api.Instructor
	cart        map[int]api.CartItem
	payments    []api.Payment
	prices      []api.PriceRecord
	images      map[string][]byte
	forms       map[string]map[string]string

	nextID   int
	calls    []Call
	failures map[string]failure
	delay    map[string]time.Duration
	now      func() time.Time
	mux      *http.ServeMux
}

func New() *Fake {
	f := &Fake{
		users:       make(map[string]user),
		courses:     make(map[int]api.Course),
		contents:    make(map[int]api.Content),
		categories:  make(map[int]api.Category),
		levels:      make(map[int]api.Level),
		instructors: make(map[int]api.Instructor),
		cart:        make(map[int]api.CartItem),
		images:      make(map[string][]byte),
		forms:       make(map[string]map[string]string),
		failures:    make(map[string]failure),
		delay:       make(map[string]time.Duration),
		nextID:      100,
		now:         time.Now,
		mux:         http.NewServeMux(),
	}
	f.routes()
	return f
}

// NewServer starts the fake behind an httptest server closed at test cleanup.
func NewServer(t testing.TB) (*Fake, *httptest.Server) {
	t.Helper()
	f := New()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Authorization: r.Header.Get("Authorization")})
	fail, failing := f.failures[key]
	if failing && fail.once {
		delete(f.failures, key)
	}
	delay := f.delay[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failing {
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return
	}
	f.mux.ServeHTTP(w, r)
}

// Fail makes every "METHOD /path" request answer status and body.
func (f *Fake) Fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, body: body}
}

// FailOnce is Fail for the next matching request only.
func (f *Fake) FailOnce(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, body: body, once: true}
}

// Delay holds matching requests until d passes or the caller gives up.
func (f *Fake) Delay(method, path string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[method+" "+path] = d
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount counts requests with the method whose path starts with pathPrefix.
func (f *Fake) CallCount(method, pathPrefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// IssueToken signs a token carrying the claims the remote API puts in its JWTs.
func IssueToken(firstName string, isAdmin bool, expiry time.Time) string {
	admin := "False"
	if isAdmin {
		admin = "True"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"FirstName": firstName,
		"IsAdmin":   admin,
		"exp":       expiry.Unix(),
	})
	signed, err := token.SignedString([]byte(SigningKey))
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *Fake) AddUser(email, password, firstName string, isAdmin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[strings.ToLower(email)] = user{firstName: firstName, password: password, isAdmin: isAdmin}
}

func (f *Fake) AddCategory(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.categories[id] = api.Category{ID: id, Title: title}
	return id
}

func (f *Fake) AddLevel(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.levels[id] = api.Level{ID: id, Title: title}
	return id
}

func (f *Fake) AddInstructor(in api.Instructor) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.ID = f.id()
	f.instructors[in.ID] = in
	return in.ID
}

func (f *Fake) AddCourse(c api.Course) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		c.ID = f.id()
	}
	f.courses[c.ID] = c
	return c.ID
}

func (f *Fake) AddContent(c api.Content) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.contents[c.ID] = c
	return c.ID
}

func (f *Fake) AddCartItem(courseID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCartItem(courseID)
}

func (f *Fake) AddPayment(p api.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	f.payments = append(f.payments, p)
}

func (f *Fake) AddPrice(amount float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = append(f.prices, api.PriceRecord{Amount: amount, CreatedAt: api.Time{Time: at}})
}

func (f *Fake) Course(id int) (api.Course, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	return c, ok
}

func (f *Fake) Instructor(id int) (api.Instructor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.instructors[id]
	return in, ok
}

// Contents returns the rows of a course ordered by id.
func (f *Fake) Contents(courseID int) []api.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.Content
	for _, c := range f.contents {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) CartItems() []api.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartItems()
}

func (f *Fake) Payments() []api.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Payment(nil), f.payments...)
}

// LastForm returns the multipart fields of the last course or instructor write, keyed "Courses" or "Instructors".
func (f *Fake) LastForm(resource string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[resource]
}

// Image returns stored image bytes for "course/<id>" or "instructor/<id>".
func (f *Fake) Image(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[key]
}

func (f *Fake) id() int {
	f.nextID++
	return f.nextID
}

func (f *Fake) addCartItem(courseID int) int {
	course := f.courses[courseID]
	lectures := 0
	for _, c := range f.contents {
		if c.CourseID == courseID {
			lectures++
		}
	}
	id := f.id()
	f.cart[id] = api.CartItem{
		ID:         id,
		CourseID:   courseID,
		Title:      course.Name,
		Instructor: f.instructors[course.InstructorID].Name,
		Price:      course.Cost,
		Rating:     course.Rate,
		TotalHours: course.TotalHours,
		Lectures:   lectures,
	}
	return id
}

func (f *Fake) cartItems() []api.CartItem {
	out := make([]api.CartItem, 0, len(f.cart))
	for _, item := range f.cart {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil
}

func (f *Fake) authorized(r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return false
	}
	_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(SigningKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil
}

// requireAuth wraps handlers that need a valid bearer token.
func (f *Fake) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

func (f *Fake) authResponse(u user) api.AuthResponse {
	expiry := f.now().Add(time.Hour)
	return api.AuthResponse{
		Token:     IssueToken(u.firstName, u.isAdmin, expiry),
		Expiry:    formatExpiry(expiry),
		IsAdmin:   u.isAdmin,
		FirstName: u.firstName,
	}
}

func notFound(w http.ResponseWriter, what string, id int) {
	writeMessage(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", what, id))
}
