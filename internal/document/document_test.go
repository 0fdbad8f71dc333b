package document

import "testing"

func TestCompositeID(t *testing.T) {
	m := Message{ChatID: 7, MessageID: 42}
	if got, want := m.ID(), "7-42"; got != want {
		t.Fatalf("ID() = %q, want %q", got, want)
	}
}

func TestCompositeIDNegativeChat(t *testing.T) {
	if got, want := CompositeID(-1001234, 5), "-1001234-5"; got != want {
		t.Fatalf("CompositeID = %q, want %q", got, want)
	}
}
