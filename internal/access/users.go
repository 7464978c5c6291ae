package access

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// User is a login identity. Users are loaded at startup and never mutated.
type User struct {
	ID           string `yaml:"id"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         Role   `yaml:"role"`
}

// Permissions returns the permissions granted by the user's role.
func (u *User) Permissions() []Permission {
	return u.Role.Permissions()
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// Directory is an immutable username -> user index.
type Directory struct {
	byName map[string]*User
	byID   map[string]*User

	// Compared against when the username is unknown, so both failure paths cost one bcrypt round.
	dummyHash []byte
}

// NewDirectory validates users and builds the lookup indexes.
// Users without an ID are assigned a random one.
func NewDirectory(users ...User) (*Directory, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create dummy hash: %w", err)
	}

	d := &Directory{
		byName:    make(map[string]*User, len(users)),
		byID:      make(map[string]*User, len(users)),
		dummyHash: dummy,
	}

	for i := range users {
		u := users[i]
		if u.Username == "" {
			return nil, fmt.Errorf("user %d: %w: username", i, ErrMissingField)
		}
		if u.PasswordHash == "" {
			return nil, fmt.Errorf("user %q: %w: password_hash", u.Username, ErrMissingField)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("user %q: invalid password hash: %w", u.Username, err)
		}
		if !u.Role.IsValid() {
			return nil, fmt.Errorf("user %q: %w: %q", u.Username, ErrUnknownRole, u.Role)
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if _, exists := d.byName[u.Username]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateUser, u.Username)
		}
		if _, exists := d.byID[u.ID]; exists {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		d.byName[u.Username] = &u
		d.byID[u.ID] = &u
	}
	return d, nil
}

// LoadDirectory reads users from a YAML, CSV or TSV file, chosen by extension.
func LoadDirectory(path string) (*Directory, error) {
	var (
		users []User
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		users, err = readYAMLUsers(path)
	case ".csv":
		users, err = readCSVUsers(path, ',')
	case ".tsv":
		users, err = readCSVUsers(path, '\t')
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	d, err := NewDirectory(users...)
	if err != nil {
		return nil, fmt.Errorf("invalid users file %s: %w", path, err)
	}
	slog.Info("Users loaded", "file", path, "users", len(users))
	return d, nil
}

func readYAMLUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return f.Users, nil
}

// Authenticate verifies a username and password pair.
// Unknown users and wrong passwords both return ErrInvalidCredentials.
func (d *Directory) Authenticate(username, password string) (*User, error) {
	u, ok := d.byName[username]
	if !ok {
		bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Error("Password comparison failed", "username", username, "error", err)
		}
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Find looks a user up by ID.
func (d *Directory) Find(id string) (*User, error) {
	u, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// List returns all users sorted by username.
func (d *Directory) List() []User {
	out := make([]User, 0, len(d.byName))
	for _, u := range d.byName {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out
}

// HashPassword generates a bcrypt hash suitable for the users file.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password", ErrMissingField)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}
