package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "user@example.com", false},
		{"valid gmail", "someone.else+tag@gmail.com", false},
		{"empty", "", true},
		{"missing domain", "user@", true},
		{"missing at", "user.example.com", true},
		{"too long", strings.Repeat("a", 250) + "@x.com", true},
		{"whitespace trimmed", "  user@example.com  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		wantErr  bool
	}{
		{"valid", "alice", false},
		{"valid with space", "Alice B", false},
		{"empty", "", true},
		{"single char", "a", true},
		{"too long", strings.Repeat("x", 51), true},
		{"invalid characters", "alice<script>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNickname(tt.nickname)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret1"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("p", 129)))
}
