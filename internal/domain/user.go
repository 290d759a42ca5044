package domain

type Profile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	Location *Location `json:"location,omitempty"`
	IsActive bool      `json:"is_active"`
}

// User is a profile plus its stored credential. PasswordHash is a bcrypt
// hash and never leaves the auth package.
type User struct {
	Profile
	PasswordHash string `json:"-"`
}
