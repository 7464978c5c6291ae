package access

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Users exported from spreadsheets. Header names are matched case-insensitively.
const (
	csvFieldID       = "id"
	csvFieldUsername = "username"
	csvFieldPassword = "password_hash"
	csvFieldRole     = "role"
)

func readCSVUsers(path string, comma rune) ([]User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	return parseCSVUsers(f, comma)
}

// parseCSVUsers reads a delimited users list. Spreadsheet exports are often UTF-16
// with a BOM, so the input is decoded according to its BOM and defaults to UTF-8.
func parseCSVUsers(r io.Reader, comma rune) ([]User, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{csvFieldUsername, csvFieldPassword, csvFieldRole} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: CSV column %q", ErrMissingField, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var users []User
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		if len(record) == 0 || field(record, csvFieldUsername) == "" {
			continue
		}
		users = append(users, User{
			ID:           field(record, csvFieldID),
			Username:     field(record, csvFieldUsername),
			PasswordHash: field(record, csvFieldPassword),
			Role:         Role(strings.ToLower(field(record, csvFieldRole))),
		})
	}
	return users, nil
}
