package forms

import (
	"net/mail"
	"strings"
	"unicode"
)

// SignupForm registers a local account.
type SignupForm struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Confirm  string `form:"confirm" json:"confirm"`
}

func (f *SignupForm) Validate() error {
	verr := &ValidationError{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if l := len([]rune(f.Username)); l < 1 || l > 150 || !validUsername(f.Username) {
		verr.Add("username", "enter a valid username: letters, digits and @/./+/-/_ only, at most 150 characters")
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			verr.Add("email", "enter a valid email address")
		}
	}
	if l := len(f.Password); l < 6 || l > 72 {
		verr.Add("password", "the password must be 6 to 72 characters long")
	}
	if f.Password != f.Confirm {
		verr.Add("confirm", "the two password fields didn't match")
	}
	return verr.OrNil()
}

// LoginForm carries local credentials plus the page to return to.
type LoginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

func (f *LoginForm) Validate() error {
	verr := &ValidationError{}
	f.Username = strings.TrimSpace(f.Username)
	if f.Username == "" {
		verr.Add("username", "this field is required")
	}
	if f.Password == "" {
		verr.Add("password", "this field is required")
	}
	return verr.OrNil()
}

func validUsername(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '@', '.', '+', '-', '_':
			continue
		}
		return false
	}
	return true
}
