package identity

// Profile is the row kept in the users table next to the auth account.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
}

// Registration carries the signup form.
type Registration struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId"`
}
