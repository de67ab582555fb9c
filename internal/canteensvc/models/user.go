package models

import "time"

// Roles a canteen actor can hold. Cards belong to students and
// staff only; guardians are linked to student cardholders.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleParent   = "parent"
	RoleStudent  = "student"
	RoleStaff    = "staff"
)

type User struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	FcmToken   string    `json:"fcm_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GuardianLink ties a guardian (parent) to a dependent cardholder.
type GuardianLink struct {
	GuardianID string `json:"guardian_id"` // FK to users(id), role parent
	HolderID   string `json:"holder_id"`   // FK to users(id), role student
}
