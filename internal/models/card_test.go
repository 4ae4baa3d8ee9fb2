package models

import "testing"

func TestProviderTag(t *testing.T) {
	tests := []struct {
		name     string
		cardID   string
		tag      string
		nativeID string
	}{
		{"wikipedia", "wikipedia-12345", "wikipedia", "12345"},
		{"nasa id with dashes", "nasa-KSC-2012-1234", "nasa", "KSC-2012-1234"},
		{"no separator", "orphan", "orphan", ""},
		{"empty", "", "", ""},
		{"empty native", "news-", "news", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProviderTag(tt.cardID); got != tt.tag {
				t.Errorf("ProviderTag(%q) = %q, want %q", tt.cardID, got, tt.tag)
			}
			if got := NativeID(tt.cardID); got != tt.nativeID {
				t.Errorf("NativeID(%q) = %q, want %q", tt.cardID, got, tt.nativeID)
			}
		})
	}
}

func TestCardIDRoundTrip(t *testing.T) {
	id := CardID("nasa", "PIA-001")
	if id != "nasa-PIA-001" {
		t.Fatalf("CardID() = %q, want %q", id, "nasa-PIA-001")
	}
	if ProviderTag(id) != "nasa" || NativeID(id) != "PIA-001" {
		t.Errorf("split of %q = (%q, %q)", id, ProviderTag(id), NativeID(id))
	}
}

func TestBaseCardID(t *testing.T) {
	tests := []struct {
		cardID string
		want   string
	}{
		{DuplicateCardID(41, "wikipedia-12"), "wikipedia-12"},
		{DuplicateCardID(7, "nasa-KSC-2012-1234"), "nasa-KSC-2012-1234"},
		{"wikipedia-12", "wikipedia-12"},
		{"dup-x-wikipedia-12", "dup-x-wikipedia-12"},
		{"dup-", "dup-"},
	}
	for _, tt := range tests {
		if got := BaseCardID(tt.cardID); got != tt.want {
			t.Errorf("BaseCardID(%q) = %q, want %q", tt.cardID, got, tt.want)
		}
	}
	if got := DuplicateCardID(41, "wikipedia-12"); got != "dup-41-wikipedia-12" {
		t.Errorf("DuplicateCardID() = %q", got)
	}
}
