package domain

// UserSummary is the display subset of a user record. Credentials and
// verification data never leave the identity provider.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
