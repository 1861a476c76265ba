package vault

import (
	"strings"
	"testing"
)

func TestGenerateAccessToken(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := GenerateAccessToken()
		if err != nil {
			t.Fatalf("GenerateAccessToken: %v", err)
		}
		if len(tok) != 86 {
			t.Fatalf("token length = %d, want 86", len(tok))
		}
		if err := ValidateTokenFormat(tok); err != nil {
			t.Fatalf("generated token failed format check: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestValidateTokenFormat(t *testing.T) {
	cases := []struct {
		name  string
		token string
		ok    bool
	}{
		{"minimum length", strings.Repeat("a", 40), true},
		{"maximum length", strings.Repeat("a", 128), true},
		{"url-safe alphabet", strings.Repeat("Az0-_", 10), true},
		{"too short", strings.Repeat("a", 39), false},
		{"too long", strings.Repeat("a", 129), false},
		{"empty", "", false},
		{"standard base64 padding", strings.Repeat("a", 42) + "==", false},
		{"whitespace", strings.Repeat("a", 20) + " " + strings.Repeat("a", 20), false},
		{"plus sign", strings.Repeat("a", 40) + "+", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTokenFormat(tc.token)
			if tc.ok && err != nil {
				t.Errorf("ValidateTokenFormat(%q) = %v, want nil", tc.token, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("ValidateTokenFormat(%q) = nil, want error", tc.token)
			}
		})
	}
}
