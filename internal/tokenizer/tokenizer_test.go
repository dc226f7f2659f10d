package tokenizer

import "testing"

func TestEstimateTokenCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcdefg", 2},
		{"  abc  ", 1},
		{"line one\nline two", 5},
	}

	for _, tt := range tests {
		if got := EstimateTokenCount(tt.text); got != tt.want {
			t.Errorf("EstimateTokenCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestTokenizerChars(t *testing.T) {
	tok, err := New(EncodingChars, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tok.Encoding() != EncodingChars {
		t.Errorf("Expected chars encoding, got %s", tok.Encoding())
	}

	first := tok.Count("abcdefg")
	second := tok.Count("abcdefg")
	if first != 2 || second != 2 {
		t.Errorf("Expected deterministic count of 2, got %d and %d", first, second)
	}
	if tok.cache.Len() != 1 {
		t.Errorf("Expected one cached entry, got %d", tok.cache.Len())
	}
	if tok.Count("") != 0 {
		t.Error("Empty text should count as zero tokens")
	}
}

func TestTokenizerCl100k(t *testing.T) {
	tok, err := New(DefaultEncoding, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := tok.Count("hello world"); got != 2 {
		t.Errorf("Expected 2 tokens for 'hello world', got %d", got)
	}
	if got := CountAll(tok, []string{"hello", "world"}, " "); got != 2 {
		t.Errorf("Expected joined count of 2, got %d", got)
	}
}

func TestTokenizerUnknownEncoding(t *testing.T) {
	if _, err := New("not_an_encoding", 0); err == nil {
		t.Error("Expected error for unknown encoding")
	}
}
