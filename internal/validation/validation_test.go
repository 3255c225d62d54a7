package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibliobalance/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "BookLover",
			wantErr: false,
		},
		{
			name:    "empty name falls back to email",
			input:   "",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
		{
			name:    "name too long",
			input:   strings.Repeat("a", 101),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "password123",
			wantErr:  false,
		},
		{
			name:     "password exactly 6 characters",
			password: "pass12",
			wantErr:  false,
		},
		{
			name:     "password too short",
			password: "pass1",
			wantErr:  true,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
		{
			name:     "long password",
			password: "thisIsAVeryLongPasswordThatShouldBeValid123",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStruct(t *testing.T) {
	rating := 7
	tests := []struct {
		name       string
		input      any
		wantFields []string
	}{
		{
			name:  "valid book",
			input: &models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412, Status: models.StatusCompleted},
		},
		{
			name:       "missing title and pages",
			input:      &models.NewBook{Author: "Frank Herbert"},
			wantFields: []string{"title", "pageCount"},
		},
		{
			name:       "unknown status",
			input:      &models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412, Status: "reading"},
			wantFields: []string{"status"},
		},
		{
			name:       "rating out of range",
			input:      &models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412, Rating: &rating},
			wantFields: []string{"rating"},
		},
		{
			name:       "current page past end",
			input:      &models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 100, CurrentPage: 101},
			wantFields: []string{"currentPage"},
		},
		{
			name:       "challenge target below one",
			input:      &models.NewChallenge{Name: "Summer", Target: 0, Year: time.Now().Year()},
			wantFields: []string{"target"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *RequestValidationError
			require.ErrorAs(t, err, &ve)
			fields := ve.Fields()
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}
