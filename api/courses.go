package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	pathCourses  = "/api/Courses"
	pathContents = "/api/CourseContents"
)

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.getJSON(ctx, false, pathCourses, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) GetCourse(ctx context.Context, id int) (*Course, error) {
	var course Course
	if err := c.getJSON(ctx, false, fmt.Sprintf("%s/%d", pathCourses, id), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse posts the multipart course form and returns the new course id.
func (c *Client) CreateCourse(ctx context.Context, form CourseForm) (int, error) {
	var created struct {
		ID int `json:"id"`
	}
	if err := c.sendMultipart(ctx, http.MethodPost, pathCourses, form.fields(), form.Image, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, &Error{Kind: KindServer, Message: "server did not return a course id"}
	}
	return created.ID, nil
}

// UpdateCourse replaces course id. A nil Image keeps the stored one.
func (c *Client) UpdateCourse(ctx context.Context, id int, form CourseForm) error {
	return c.sendMultipart(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathCourses, id), form.fields(), form.Image, nil)
}

func (c *Client) DeleteCourse(ctx context.Context, id int) error {
	return c.sendJSON(ctx, true, http.MethodDelete, fmt.Sprintf("%s/%d", pathCourses, id), nil, nil)
}

func (c *Client) CourseImage(ctx context.Context, id int) (*Upload, error) {
	return c.image(ctx, fmt.Sprintf("%s/%d/image", pathCourses, id))
}

func (f CourseForm) fields() []formField {
	return []formField{
		{"Name", f.Name},
		{"CategoryId", f.CategoryID},
		{"LevelId", f.LevelID},
		{"InstructorId", f.InstructorID},
		{"Cost", f.Cost},
		{"TotalHours", f.TotalHours},
		{"Rate", f.Rate},
		{"Description", f.Description},
		{"Certification", f.Certification},
	}
}

// ListContents fetches the content rows of a course. The remote filter is not
// trusted, so rows of other courses are dropped here.
func (c *Client) ListContents(ctx context.Context, courseID int) ([]Content, error) {
	var contents []Content
	q := url.Values{"courseId": []string{strconv.Itoa(courseID)}}
	if err := c.getJSON(ctx, false, pathContents, q, &contents); err != nil {
		return nil, err
	}
	out := contents[:0]
	for _, content := range contents {
		if content.CourseID == courseID {
			out = append(out, content)
		}
	}
	return out, nil
}

func (c *Client) CreateContent(ctx context.Context, content Content) (*Content, error) {
	var created Content
	if err := c.sendJSON(ctx, true, http.MethodPost, pathContents, contentBody(content), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateContent(ctx context.Context, content Content) error {
	return c.sendJSON(ctx, true, http.MethodPut, fmt.Sprintf("%s/%d", pathContents, content.ID), contentBody(content), nil)
}

func (c *Client) DeleteContent(ctx context.Context, id int) error {
	return c.sendJSON(ctx, true, http.MethodDelete, fmt.Sprintf("%s/%d", pathContents, id), nil, nil)
}

type contentWrite struct {
	Name          string `json:"name"`
	LectureNumber int    `json:"lectureNumber"`
	Time          int    `json:"time"`
	CourseID      int    `json:"courseId"`
}

func contentBody(c Content) contentWrite {
	return contentWrite{Name: c.Name, LectureNumber: c.LectureNumber, Time: c.Time, CourseID: c.CourseID}
}

func (c *Client) image(ctx context.Context, path string) (*Upload, error) {
	data, header, err := c.do(ctx, false, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}
	return &Upload{ContentType: header.Get("Content-Type"), Data: data}, nil
}
