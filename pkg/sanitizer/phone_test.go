package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{
			name:  "ten digit US number",
			input: "2125551234",
			want:  "+12125551234",
		},
		{
			name:  "already E.164",
			input: "+12125551234",
			want:  "+12125551234",
		},
		{
			name:  "with parentheses and dashes",
			input: "+1 (212) 555-1234",
			want:  "+12125551234",
		},
		{
			name:  "dashes without country code",
			input: "212-555-1234",
			want:  "+12125551234",
		},
		{
			name:  "leading and trailing spaces",
			input: "  2125551234  ",
			want:  "+12125551234",
		},
		{
			name:   "explicit region",
			input:  "054-123-4567",
			region: "IL",
			want:   "+972541234567",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
		{
			name:  "country code only",
			input: "+1",
			want:  "",
		},
		{
			name:  "too short",
			input: "123",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input, tt.region)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.input, tt.region, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once := NormalizePhone("(212) 555-1234", "")
	twice := NormalizePhone(once, "")
	if once != twice {
		t.Errorf("NormalizePhone is not idempotent: %q then %q", once, twice)
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"212-555-1234", "2125551234"},
		{"(212) 555 1234", "2125551234"},
		{"abc", ""},
		{"", ""},
		{"٣٤٥", ""},
	}

	for _, tt := range tests {
		if got := DigitsOnly(tt.input); got != tt.want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
