package apifake

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/course-storefront/api"
)

func (f *Fake) routes() {
	f.mux.HandleFunc("POST /api/Auth/login", f.login)
	f.mux.HandleFunc("POST /api/Auth/signup", f.signup)

	f.mux.HandleFunc("GET /api/Courses", f.listCourses)
	f.mux.HandleFunc("GET /api/Courses/{id}", f.getCourse)
	f.mux.HandleFunc("GET /api/Courses/{id}/image", f.getImage("course"))
	f.mux.HandleFunc("POST /api/Courses", f.requireAuth(f.createCourse))
	f.mux.HandleFunc("PUT /api/Courses/{id}", f.requireAuth(f.updateCourse))
	f.mux.HandleFunc("DELETE /api/Courses/{id}", f.requireAuth(f.deleteCourse))

	f.mux.HandleFunc("GET /api/CourseContents", f.listContents)
	f.mux.HandleFunc("POST /api/CourseContents", f.requireAuth(f.createContent))
	f.mux.HandleFunc("PUT /api/CourseContents/{id}", f.requireAuth(f.updateContent))
	f.mux.HandleFunc("DELETE /api/CourseContents/{id}", f.requireAuth(f.deleteContent))

	f.mux.HandleFunc("GET /api/Categories", f.listCategories)
	f.mux.HandleFunc("GET /api/Categories/{id}", f.getCategory)
	f.mux.HandleFunc("GET /api/Levels", f.listLevels)
	f.mux.HandleFunc("GET /api/Levels/{id}", f.getLevel)

	f.mux.HandleFunc("GET /api/Instructors", f.listInstructors)
	f.mux.HandleFunc("GET /api/Instructors/{id}", f.getInstructor)
	f.mux.HandleFunc("GET /api/Instructors/{id}/image", f.getImage("instructor"))
	f.mux.HandleFunc("POST /api/Instructors", f.requireAuth(f.createInstructor))
	f.mux.HandleFunc("PUT /api/Instructors/{id}", f.requireAuth(f.updateInstructor))
	f.mux.HandleFunc("DELETE /api/Instructors/{id}", f.requireAuth(f.deleteInstructor))

	f.mux.HandleFunc("GET /api/Cart", f.requireAuth(f.listCart))
	f.mux.HandleFunc("POST /api/Cart", f.requireAuth(f.addToCart))
	f.mux.HandleFunc("POST /api/Cart/add", f.requireAuth(f.addToCart))
	f.mux.HandleFunc("DELETE /api/Cart/{id}", f.requireAuth(f.removeFromCart))

	f.mux.HandleFunc("GET /api/Payment", f.requireAuth(f.listPayments))
	f.mux.HandleFunc("POST /api/Payment", f.requireAuth(f.createPayment))
	f.mux.HandleFunc("GET /api/Price", f.requireAuth(f.listPrices))
}

func (f *Fake) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	f.mu.Lock()
	u, ok := f.users[strings.ToLower(creds.Email)]
	f.mu.Unlock()
	if !ok || u.password != creds.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, f.authResponse(u))
}

func (f *Fake) signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, []map[string]string{{"code": "PasswordMismatch", "description": "Passwords do not match."}})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(req.Email)
	if _, exists := f.users[key]; exists {
		writeJSON(w, http.StatusBadRequest, "Email is already registered.")
		return
	}
	u := user{firstName: req.FirstName, password: req.Password, isAdmin: req.IsAdmin}
	f.users[key] = u
	writeJSON(w, http.StatusOK, f.authResponse(u))
}

func (f *Fake) listCourses(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) getCourse(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		notFound(w, "Course", id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (f *Fake) getImage(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r)
		f.mu.Lock()
		data, ok := f.images[prefix+"/"+strconv.Itoa(id)]
		f.mu.Unlock()
		if !ok {
			notFound(w, "Image", id)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		_, _ = w.Write(data)
	}
}

// readForm parses a multipart body into its fields and optional Image part.
func readForm(r *http.Request) (map[string]string, []byte, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, nil, err
	}
	fields := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	file, _, err := r.FormFile("Image")
	if err != nil {
		return fields, nil, nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	return fields, data, err
}

func validationProblem(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"title":  "One or more validation errors occurred.",
		"status": http.StatusBadRequest,
		"errors": errs,
	})
}

func courseFromForm(fields map[string]string) (api.Course, map[string][]string) {
	errs := map[string][]string{}
	num := func(name string) int {
		n, err := strconv.Atoi(fields[name])
		if err != nil {
			errs[name] = append(errs[name], "The value '"+fields[name]+"' is not valid.")
		}
		return n
	}
	c := api.Course{
		Name:          fields["Name"],
		CategoryID:    num("CategoryId"),
		LevelID:       num("LevelId"),
		InstructorID:  num("InstructorId"),
		TotalHours:    num("TotalHours"),
		Rate:          num("Rate"),
		Description:   fields["Description"],
		Certification: fields["Certification"],
	}
	cost, err := strconv.ParseFloat(fields["Cost"], 64)
	if err != nil {
		errs["Cost"] = append(errs["Cost"], "The value '"+fields["Cost"]+"' is not valid.")
	}
	c.Cost = cost
	if strings.TrimSpace(c.Name) == "" {
		errs["Name"] = append(errs["Name"], "The Name field is required.")
	}
	return c, errs
}

func (f *Fake) createCourse(w http.ResponseWriter, r *http.Request) {
	fields, image, err := readForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, errs := courseFromForm(fields)
	if len(errs) > 0 || image == nil {
		if image == nil {
			errs["Image"] = []string{"The Image field is required."}
		}
		validationProblem(w, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.courses[c.ID] = c
	f.images["course/"+strconv.Itoa(c.ID)] = image
	f.forms["Courses"] = fields
	writeJSON(w, http.StatusCreated, map[string]int{"id": c.ID})
}

func (f *Fake) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	fields, image, err := readForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	c, errs := courseFromForm(fields)
	if len(errs) > 0 {
		validationProblem(w, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[id]; !ok {
		notFound(w, "Course", id)
		return
	}
	c.ID = id
	f.courses[id] = c
	if image != nil {
		f.images["course/"+strconv.Itoa(id)] = image
	}
	f.forms["Courses"] = fields
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[id]; !ok {
		notFound(w, "Course", id)
		return
	}
	delete(f.courses, id)
	for cid, c := range f.contents {
		if c.CourseID == id {
			delete(f.contents, cid)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// listContents ignores the courseId query like the real API sometimes does.
func (f *Fake) listContents(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Content, 0, len(f.contents))
	for _, c := range f.contents {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func decodeContent(w http.ResponseWriter, r *http.Request) (api.Content, bool) {
	var c api.Content
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return c, false
	}
	if strings.TrimSpace(c.Name) == "" || c.LectureNumber <= 0 || c.Time <= 0 {
		validationProblem(w, map[string][]string{"Name": {"Name, LectureNumber and Time are required."}})
		return c, false
	}
	return c, true
}

func (f *Fake) createContent(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeContent(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[c.CourseID]; !ok {
		notFound(w, "Course", c.CourseID)
		return
	}
	c.ID = f.id()
	f.contents[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

func (f *Fake) updateContent(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	c, ok := decodeContent(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contents[id]; !ok {
		notFound(w, "Content", id)
		return
	}
	c.ID = id
	f.contents[id] = c
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) deleteContent(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contents[id]; !ok {
		notFound(w, "Content", id)
		return
	}
	delete(f.contents, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) listCategories(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) getCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		notFound(w, "Category", id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (f *Fake) listLevels(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Level, 0, len(f.levels))
	for _, l := range f.levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) getLevel(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.levels[id]
	if !ok {
		notFound(w, "Level", id)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (f *Fake) listInstructors(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Instructor, 0, len(f.instructors))
	for _, in := range f.instructors {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (f *Fake) getInstructor(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.instructors[id]
	if !ok {
		notFound(w, "Instructor", id)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func instructorFromForm(fields map[string]string) (api.Instructor, map[string][]string) {
	errs := map[string][]string{}
	categoryID, err := strconv.Atoi(fields["CategoryId"])
	if err != nil {
		errs["CategoryId"] = []string{"The value '" + fields["CategoryId"] + "' is not valid."}
	}
	rate, err := strconv.Atoi(fields["Rate"])
	if err != nil {
		errs["Rate"] = []string{"The value '" + fields["Rate"] + "' is not valid."}
	}
	return api.Instructor{Name: fields["Name"], CategoryID: categoryID, Rate: rate, Description: fields["Description"]}, errs
}

func (f *Fake) createInstructor(w http.ResponseWriter, r *http.Request) {
	fields, image, err := readForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	in, errs := instructorFromForm(fields)
	if len(errs) > 0 {
		validationProblem(w, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	in.ID = f.id()
	f.instructors[in.ID] = in
	if image != nil {
		f.images["instructor/"+strconv.Itoa(in.ID)] = image
	}
	f.forms["Instructors"] = fields
	writeJSON(w, http.StatusCreated, in)
}

func (f *Fake) updateInstructor(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	fields, image, err := readForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	in, errs := instructorFromForm(fields)
	if len(errs) > 0 {
		validationProblem(w, errs)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructors[id]; !ok {
		notFound(w, "Instructor", id)
		return
	}
	in.ID = id
	f.instructors[id] = in
	if image != nil {
		f.images["instructor/"+strconv.Itoa(id)] = image
	}
	f.forms["Instructors"] = fields
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) deleteInstructor(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructors[id]; !ok {
		notFound(w, "Instructor", id)
		return
	}
	delete(f.instructors, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) listCart(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.cartItems())
}

func (f *Fake) addToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourseID int `json:"courseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[body.CourseID]; !ok {
		notFound(w, "Course", body.CourseID)
		return
	}
	for _, item := range f.cart {
		if item.CourseID == body.CourseID {
			writeJSON(w, http.StatusBadRequest, "Course already in cart.")
			return
		}
	}
	id := f.addCartItem(body.CourseID)
	writeJSON(w, http.StatusOK, f.cart[id])
}

func (f *Fake) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cart[id]; !ok {
		notFound(w, "Cart item", id)
		return
	}
	delete(f.cart, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Fake) listPayments(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]api.Payment{}, f.payments...))
}

// createPayment records the payment, clears the course from the cart and books the revenue.
func (f *Fake) createPayment(w http.ResponseWriter, r *http.Request) {
	var p api.Payment
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	f.payments = append(f.payments, p)
	for id, item := range f.cart {
		if item.CourseID == p.CourseID {
			delete(f.cart, id)
		}
	}
	created := f.now()
	if t, err := time.Parse(time.RFC3339, p.PaymentDate); err == nil {
		created = t
	}
	f.prices = append(f.prices, api.PriceRecord{Amount: p.Total, CreatedAt: api.Time{Time: created}})
	writeJSON(w, http.StatusOK, p)
}

func (f *Fake) listPrices(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]api.PriceRecord{}, f.prices...))
}
