package idgen

import "testing"

func TestNewRoomIDShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := NewRoomID()
		if len(id) != roomIDLength {
			t.Fatalf("room id %q has length %d, want %d", id, len(id), roomIDLength)
		}
		if _, ok := ValidRoomID(id); !ok {
			t.Fatalf("minted room id %q fails validation", id)
		}
		if seen[id] {
			t.Fatalf("duplicate room id %q in 200 draws", id)
		}
		seen[id] = true
	}
}

func TestNewReservationTokenLength(t *testing.T) {
	tok := NewReservationToken()
	if len(tok) < 16 {
		t.Fatalf("reservation token %q shorter than 16 chars", tok)
	}
}

func TestValidRoomID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"abc123", "ABC123", true},
		{"  ABCDEF  ", "ABCDEF", true},
		{"ABCDEFGHIJKL", "ABCDEFGHIJKL", true},
		{"ABCDEFGHIJKLM", "", false}, // 13 chars, too long
		{"ABCD", "", false},          // too short
		{"ABC-123", "", false},       // bad char
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ValidRoomID(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ValidRoomID(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
