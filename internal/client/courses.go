package client

import (
	"errors"

	"github.com/samber/lo"
)

var ErrUnknownCourse = errors.New("unknown course")

type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

var DefaultCourses = []Course{
	{ID: "calc1", Name: "Calculus I", Code: "MATH 151"},
	{ID: "linalg", Name: "Linear Algebra", Code: "MATH 221"},
	{ID: "phys1", Name: "Physics I: Mechanics", Code: "PHYS 121"},
	{ID: "cs1", Name: "Introduction to Programming", Code: "CS 101"},
	{ID: "chem1", Name: "General Chemistry", Code: "CHEM 110"},
}

// Registry is an immutable course list. The first course is the default.
type Registry struct {
	courses []Course
}

// NewRegistry copies courses, dropping duplicate ids. With no courses it
// uses DefaultCourses.
func NewRegistry(courses ...Course) *Registry {
	if len(courses) == 0 {
		courses = DefaultCourses
	}
	return &Registry{courses: lo.UniqBy(courses, func(c Course) string { return c.ID })}
}

func (r *Registry) All() []Course {
	return append([]Course(nil), r.courses...)
}

func (r *Registry) Default() Course {
	return r.courses[0]
}

func (r *Registry) Lookup(id string) (Course, bool) {
	return lo.Find(r.courses, func(c Course) bool { return c.ID == id })
}
