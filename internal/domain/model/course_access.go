package model

import (
	"time"

	"trading-academy-platform/internal/domain"
)

// CourseAccess joins a user to a purchased offering. Grants exist only as a
// side effect of an enrollment completing or a subscription activating;
// nothing creates them speculatively.
type CourseAccess struct {
	UserID       string
	CourseName   string
	EnrollmentID string // owning order or subscription id
	Granted      bool
	GrantedAt    time.Time
}

func NewCourseAccess(userID, courseName, enrollmentID string) (*CourseAccess, error) {
	if userID == "" || courseName == "" || enrollmentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &CourseAccess{
		UserID:       userID,
		CourseName:   courseName,
		EnrollmentID: enrollmentID,
		Granted:      true,
		GrantedAt:    time.Now(),
	}, nil
}
