package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/course-storefront/internal/errors"
)

type Course struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	CategoryID    int     `json:"categoryId"`
	LevelID       int     `json:"levelId"`
	InstructorID  int     `json:"instructorId"`
	Cost          float64 `json:"cost"`
	TotalHours    int     `json:"totalHours"`
	Rate          int     `json:"rate"`
	Description   string  `json:"description"`
	Certification string  `json:"certification"`
}

// CourseForm is the multipart body of course create and update. Values are the
// form strings as typed; the remote API does the final conversion.
type CourseForm struct {
	Name          string
	CategoryID    string
	LevelID       string
	InstructorID  string
	Cost          string
	TotalHours    string
	Rate          string
	Description   string
	Certification string
	Image         *Upload
}

type Content struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LectureNumber int    `json:"lectureNumber"`
	Time          int    `json:"time"`
	CourseID      int    `json:"courseId"`
}

type Category struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type Level struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type Instructor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CategoryID  int    `json:"categoryId"`
	Rate        int    `json:"rate"`
	Description string `json:"description"`
}

type InstructorForm struct {
	Name        string
	CategoryID  string
	Rate        string
	Description string
	Image       *Upload
}

type CartItem struct {
	ID         int     `json:"id"`
	CourseID   int     `json:"courseId"`
	Title      string  `json:"title"`
	Instructor string  `json:"instructor"`
	Price      float64 `json:"price"`
	Rating     int     `json:"rating"`
	TotalHours int     `json:"totalHours"`
	Lectures   int     `json:"lectures"`
}

type Payment struct {
	ID            int     `json:"id,omitempty"`
	CourseID      int     `json:"courseId"`
	Country       string  `json:"country"`
	State         string  `json:"state"`
	CardName      string  `json:"cardName"`
	CardNumber    string  `json:"cardNumber"`
	ExpiryDate    string  `json:"expiryDate"`
	CVC           string  `json:"cvc"`
	PaymentMethod string  `json:"paymentMethod"`
	Total         float64 `json:"total"`
	PaymentDate   string  `json:"paymentDate"`
}

type PriceRecord struct {
	Amount    float64 `json:"amount"`
	CreatedAt Time    `json:"createdAt"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	UserName        string `json:"userName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	IsAdmin         bool   `json:"isAdmin"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Token     string `json:"token"`
	Expiry    string `json:"expiry"`
	IsAdmin   bool   `json:"isAdmin"`
	FirstName string `json:"firstName"`
}

// Upload is a file part of a multipart body, or an image fetched back.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Time accepts RFC 3339 and the remote's zone-less timestamps, which are UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a timestamp in any format the remote API emits.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "[ParseTime] unrecognised timestamp %q", s)
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}
