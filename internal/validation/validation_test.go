package validation

import (
	"errors"
	"testing"

	"speakwell/internal/apperrors"
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

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "John Doe",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "John",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "J",
			wantErr: true,
		},
		{
			name:    "name with hyphen",
			input:   "Mary-Jane",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
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
			name:     "password exactly 8 characters",
			password: "pass1234",
			wantErr:  false,
		},
		{
			name:     "password too short",
			password: "pass123",
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

type sampleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"notblank"`
	Role  string `json:"role" validate:"omitempty,role"`
	Level int    `json:"level" validate:"omitempty,min=1,max=3"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      sampleRequest
		wantFields []string
	}{
		{
			name:  "valid",
			input: sampleRequest{Email: "a@example.com", Name: "Ada", Role: "admin", Level: 2},
		},
		{
			name:       "blank name and bad email",
			input:      sampleRequest{Email: "nope", Name: "   "},
			wantFields: []string{"email", "name"},
		},
		{
			name:       "unknown role",
			input:      sampleRequest{Email: "a@example.com", Name: "Ada", Role: "owner"},
			wantFields: []string{"role"},
		},
		{
			name:       "level out of range",
			input:      sampleRequest{Email: "a@example.com", Name: "Ada", Level: 4},
			wantFields: []string{"level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}

			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("Struct() error = %v, want FieldErrors", err)
			}
			if len(fe) != len(tt.wantFields) {
				t.Errorf("Struct() fields = %v, want %v", fe, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if fe[f] == "" {
					t.Errorf("missing message for field %q in %v", f, fe)
				}
			}
		})
	}
}

func TestRuleErrorsAreValidationErrors(t *testing.T) {
	var ve apperrors.ValidationError
	if !errors.As(ValidatePassword("short"), &ve) || ve.Field != "password" {
		t.Errorf("ValidatePassword() should return a ValidationError for password, got %v", ve)
	}
}
