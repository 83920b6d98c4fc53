package user

// Roles known to the school-management product.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
)

// User is the directory entry the notification service keys deliveries on.
// Accounts are created and managed by the main school-management API; this
// service reads them and owns only the notification preference fields.
type User struct {
	ID         string   `bson:"_id" json:"id"`
	Name       string   `bson:"name" json:"name"`
	Email      string   `bson:"email" json:"email"`
	Role       string   `bson:"role" json:"role"`
	ExtraRoles []string `bson:"extra_roles,omitempty" json:"extraRoles,omitempty"`

	// Notification preferences.
	EmailNotifications bool     `bson:"email_notifications" json:"emailNotifications"`
	VoiceNotifications bool     `bson:"voice_notifications" json:"voiceNotifications"`
	DisabledTypes      []string `bson:"disabled_types,omitempty" json:"disabledTypes,omitempty"`

	// ChildIDs links a parent account to its monitored students.
	ChildIDs []string `bson:"child_ids,omitempty" json:"childIds,omitempty"`
}

// TypeEnabled reports whether the user has left the given notification
// type switched on. Types are on by default; DisabledTypes is an opt-out
// list.
func (u *User) TypeEnabled(notificationType string) bool {
	for _, t := range u.DisabledTypes {
		if t == notificationType {
			return false
		}
	}
	return true
}

// HasRole reports whether role matches the user's primary role.
func (u *User) HasRole(role string) bool {
	return u.Role == role
}

// HasExtraRole reports whether role is among the user's extra roles
// (e.g. a teacher who is also a homeroom coordinator).
func (u *User) HasExtraRole(role string) bool {
	for _, r := range u.ExtraRoles {
		if r == role {
			return true
		}
	}
	return false
}
