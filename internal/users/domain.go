package users

import "time"

// User is the management view of an account. Password hashes never leave the
// repository layer.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      string
	FirstName string
	LastName  string
	IsActive  bool
	CreatedAt time.Time
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *string
	IsActive  *bool
	Password  *string
}

// Empty reports whether the update would touch nothing.
func (in UpdateInput) Empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Email == nil &&
		in.Role == nil && in.IsActive == nil && in.Password == nil
}
