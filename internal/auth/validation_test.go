package auth

import "testing"

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bob", "bob"},
		{"bob smith", "bob_smith"},
		{" bob \t smith\n", "bob_smith"},
		{"a b c", "a_b_c"},
	}

	for _, tt := range tests {
		if got := NormalizeUsername(tt.in); got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	t.Run("Accepts Valid Input", func(t *testing.T) {
		if err := ValidateRegistration("bob", "bob@example.com", "12345678", "12345678"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Counts Characters Not Bytes", func(t *testing.T) {
		err := ValidateRegistration("bob", "bob@example.com", "éééé", "éééé")
		if err == nil || err.Error() != "password must be at least 8 characters long" {
			t.Errorf("expected length error, got %v", err)
		}
	})

	t.Run("Whitespace Only Fields Are Empty", func(t *testing.T) {
		err := ValidateRegistration("   ", "bob@example.com", "12345678", "12345678")
		if err == nil || err.Error() != "please fill in all fields" {
			t.Errorf("expected completeness error, got %v", err)
		}
	})
}
