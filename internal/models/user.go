package models

type UserRole string

const (
	RoleLearner    UserRole = "learner"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// User is the directory view of a principal. Users are not persisted by this
// service; they come from the identity provider and are cached in redis.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	CourseIDs []uint   `json:"course_ids,omitempty"` // enrolled courses
}

// IsStaff reports whether the user may read other learners' attempts.
func (u *User) IsStaff() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

// IsEnrolledIn reports course membership as recorded on the directory user.
func (u *User) IsEnrolledIn(courseID uint) bool {
	for _, id := range u.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
