package models

import (
	"fmt"
	"strings"
)

const (
	// CardIDSeparator splits the provider tag from the provider-native id
	CardIDSeparator = "-"
	// DuplicateTag prefixes the ids of padding copies
	DuplicateTag = "dup"
)

// ContentCard is the normalized unit of content shown in the feed. Cards are
// built fresh on every fetch; only their ids are persisted (interactions, shares).
type ContentCard struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Source    string `json:"source"`
	SourceURL string `json:"sourceUrl"`
	Category  string `json:"category"`
	Topic     string `json:"topic,omitempty"`
	SharedBy  string `json:"sharedBy,omitempty"`

	// BatchID records which backfill pass produced the card. It is provenance
	// only and never part of the identity.
	BatchID string `json:"batchId,omitempty"`
	// Duplicate marks padding copies synthesized to reach a feed target.
	Duplicate bool `json:"duplicate,omitempty"`
}

// CardID builds "{tag}-{nativeID}"
func CardID(tag, nativeID string) string {
	return tag + CardIDSeparator + nativeID
}

// ProviderTag returns the id prefix before the first separator. Ids without
// a separator are returned whole.
func ProviderTag(cardID string) string {
	tag, _, _ := strings.Cut(cardID, CardIDSeparator)
	return tag
}

// NativeID returns everything after the first separator, so provider ids
// that themselves contain dashes survive intact.
func NativeID(cardID string) string {
	_, native, found := strings.Cut(cardID, CardIDSeparator)
	if !found {
		return ""
	}
	return native
}

// DuplicateCardID builds the id of the n-th padding copy of cardID
func DuplicateCardID(n int, cardID string) string {
	return fmt.Sprintf("%s%s%d%s%s", DuplicateTag, CardIDSeparator, n, CardIDSeparator, cardID)
}

// BaseCardID strips a padding prefix, returning the id of the copied card.
// Other ids are returned unchanged.
func BaseCardID(cardID string) string {
	rest, ok := strings.CutPrefix(cardID, DuplicateTag+CardIDSeparator)
	if !ok {
		return cardID
	}
	n, base, ok := strings.Cut(rest, CardIDSeparator)
	if !ok || n == "" || strings.Trim(n, "0123456789") != "" {
		return cardID
	}
	return base
}
