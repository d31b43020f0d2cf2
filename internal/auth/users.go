package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrUserExists = errors.New("user already exists")
	ErrBadUser    = errors.New("name, email and password are required")
)

// User is one entry of the users file.
type User struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// LoadUsers reads the users file. A missing file yields no users.
func LoadUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read users file: %w", err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("could not parse users file: %w", err)
	}
	for i := range f.Users {
		f.Users[i].Email = normalizeEmail(f.Users[i].Email)
	}
	return f.Users, nil
}

// SaveUsers writes users to path, replacing its contents.
func SaveUsers(path string, users []User) error {
	data, err := yaml.Marshal(usersFile{Users: users})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// AddUser hashes password and appends a user to the file at path.
func AddUser(path, name, email, password string) (User, error) {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return User{}, ErrBadUser
	}

	users, err := LoadUsers(path)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return User{}, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := User{Name: name, Email: email, PasswordHash: hash}
	if err := SaveUsers(path, append(users, u)); err != nil {
		return User{}, fmt.Errorf("could not write users file: %w", err)
	}
	return u, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
