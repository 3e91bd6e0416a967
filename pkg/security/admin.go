package security

import "crypto/subtle"

// AdminCredentials is the super-admin login pair provided through the
// environment. It never maps to a stored account.
type AdminCredentials struct {
	Email    string
	Password string
}

func (a AdminCredentials) Configured() bool {
	return a.Email != "" && a.Password != ""
}

// IsAdminEmail reports whether a login attempt targets the super-admin
func (a AdminCredentials) IsAdminEmail(email string) bool {
	return a.Configured() && email == a.Email
}

func (a AdminCredentials) Verify(email, password string) bool {
	if !a.IsAdminEmail(email) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
}
