// Package model manages per-language extraction models: the closed set of
// supported language identifiers, download conditions, the transport
// boundary to the blob store, and the lifecycle state machine that gates
// extraction on model availability.
package model

import (
	"encoding/json"
	"fmt"
)

// Identifier names one language model from the closed supported set.
type Identifier int

// Supported language models.
const (
	Arabic Identifier = iota
	Chinese
	Dutch
	English
	French
	German
	Italian
	Japanese
	Korean
	Polish
	Portuguese
	Russian
	Spanish
	Thai
	Turkish
)

const identifierCount = 15

// identifierTags is the bijective mapping to BCP-47 language tags. Index
// position matches the Identifier constant values.
var identifierTags = [identifierCount]string{
	Arabic:     "ar",
	Chinese:    "zh",
	Dutch:      "nl",
	English:    "en",
	French:     "fr",
	German:     "de",
	Italian:    "it",
	Japanese:   "ja",
	Korean:     "ko",
	Polish:     "pl",
	Portuguese: "pt",
	Russian:    "ru",
	Spanish:    "es",
	Thai:       "th",
	Turkish:    "tr",
}

var tagIdentifiers = func() map[string]Identifier {
	m := make(map[string]Identifier, identifierCount)
	for i, tag := range identifierTags {
		m[tag] = Identifier(i)
	}
	return m
}()

// Valid reports whether id is a member of the supported set.
func (id Identifier) Valid() bool {
	return id >= 0 && int(id) < identifierCount
}

// LanguageTag returns the BCP-47 tag for id, or "" for an invalid value.
func (id Identifier) LanguageTag() string {
	if !id.Valid() {
		return ""
	}
	return identifierTags[id]
}

// String returns the BCP-47 tag, or "unknown" for an invalid value.
func (id Identifier) String() string {
	if !id.Valid() {
		return "unknown"
	}
	return identifierTags[id]
}

// FromLanguageTag resolves a BCP-47 tag to an Identifier. Unrecognized tags
// report false rather than failing.
func FromLanguageTag(tag string) (Identifier, bool) {
	id, ok := tagIdentifiers[tag]
	return id, ok
}

// AllIdentifiers returns every supported Identifier in a fresh slice.
func AllIdentifiers() []Identifier {
	ids := make([]Identifier, identifierCount)
	for i := range ids {
		ids[i] = Identifier(i)
	}
	return ids
}

// MarshalJSON encodes the identifier as its BCP-47 tag.
func (id Identifier) MarshalJSON() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("model.Identifier.MarshalJSON: invalid identifier %d", int(id))
	}
	return json.Marshal(identifierTags[id])
}

// UnmarshalJSON decodes a BCP-47 tag into an identifier.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	v, ok := tagIdentifiers[tag]
	if !ok {
		return fmt.Errorf("model.Identifier.UnmarshalJSON: unsupported language tag %q", tag)
	}
	*id = v
	return nil
}
