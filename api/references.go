package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const (
	pathCategories  = "/api/Categories"
	pathLevels      = "/api/Levels"
	pathInstructors = "/api/Instructors"
)

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.getJSON(ctx, false, pathCategories, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) GetCategory(ctx context.Context, id int) (*Category, error) {
	var category Category
	if err := c.getJSON(ctx, false, fmt.Sprintf("%s/%d", pathCategories, id), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) ListLevels(ctx context.Context) ([]Level, error) {
	var levels []Level
	if err := c.getJSON(ctx, false, pathLevels, nil, &levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func (c *Client) GetLevel(ctx context.Context, id int) (*Level, error) {
	var level Level
	if err := c.getJSON(ctx, false, fmt.Sprintf("%s/%d", pathLevels, id), nil, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

func (c *Client) ListInstructors(ctx context.Context) ([]Instructor, error) {
	var instructors []Instructor
	if err := c.getJSON(ctx, false, pathInstructors, nil, &instructors); err != nil {
		return nil, err
	}
	return instructors, nil
}

func (c *Client) GetInstructor(ctx context.Context, id int) (*Instructor, error) {
	var instructor Instructor
	if err := c.getJSON(ctx, false, fmt.Sprintf("%s/%d", pathInstructors, id), nil, &instructor); err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (c *Client) CreateInstructor(ctx context.Context, form InstructorForm) (*Instructor, error) {
	var created Instructor
	if err := c.sendMultipart(ctx, http.MethodPost, pathInstructors, form.fields(), form.Image, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateInstructor(ctx context.Context, id int, form InstructorForm) error {
	return c.sendMultipart(ctx, http.MethodPut, pathInstructors+"/"+strconv.Itoa(id), form.fields(), form.Image, nil)
}

func (c *Client) DeleteInstructor(ctx context.Context, id int) error {
	return c.sendJSON(ctx, true, http.MethodDelete, pathInstructors+"/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) InstructorImage(ctx context.Context, id int) (*Upload, error) {
	return c.image(ctx, fmt.Sprintf("%s/%d/image", pathInstructors, id))
}

func (f InstructorForm) fields() []formField {
	return []formField{
		{"Name", f.Name},
		{"CategoryId", f.CategoryID},
		{"Rate", f.Rate},
		{"Description", f.Description},
	}
}
