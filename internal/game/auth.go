package game

import "errors"

// LoginBanner is shown to every new connection before the name prompt.
const LoginBanner = "+--------------------------------------+\n" +
	"|                 KILN                 |\n" +
	"|     a small place to talk a while    |\n" +
	"+--------------------------------------+\n"

// MaxLoginAttempts bounds wrong passwords before the connection is dropped.
const MaxLoginAttempts = 3

// ValidateUsername checks a proposed account name.
func ValidateUsername(name string) error {
	switch {
	case name == "":
		return errors.New("name cannot be empty")
	case len(name) < 2 || len(name) > 20:
		return errors.New("name must be between 2 and 20 letters")
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return errors.New("name may contain only letters")
		}
	}
	return nil
}

// ValidatePassword checks a proposed password.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return errors.New("password cannot be blank")
	case len(password) < 6:
		return errors.New("password must be at least 6 characters")
	}
	return nil
}
