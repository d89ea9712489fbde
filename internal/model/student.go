package model

import "time"

type Student struct {
	ID        int64      `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	ClassName string     `json:"class_name"`
	BirthDate *time.Time `json:"birth_date"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	return s.LastName + " " + s.FirstName
}
