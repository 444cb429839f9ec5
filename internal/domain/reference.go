package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reference is a citation pair for a third-party source.
type Reference struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ReferenceContent is a reference together with the text scraped from it.
type ReferenceContent struct {
	Reference
	Content string
}

// ReferenceList is the ordered citation list stored in reference_urls.
type ReferenceList []Reference

// Encode serializes the list for the reference_urls column; an empty list encodes to "".
func (l ReferenceList) Encode() (string, error) {
	if len(l) == 0 {
		return "", nil
	}
	raw, err := json.Marshal([]Reference(l))
	if err != nil {
		return "", fmt.Errorf("encode references: %w", err)
	}
	return string(raw), nil
}

// ParseReferenceList decodes a reference_urls value. Legacy rows holding a JSON array
// of plain URLs or a comma separated URL list are accepted too.
func ParseReferenceList(raw string) (ReferenceList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var pairs []Reference
		if err := json.Unmarshal([]byte(raw), &pairs); err == nil {
			return ReferenceList(pairs), nil
		}
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err != nil {
			return nil, fmt.Errorf("decode references: %w", err)
		}
		return fromURLs(urls), nil
	}

	return fromURLs(strings.Split(raw, ",")), nil
}

func fromURLs(urls []string) ReferenceList {
	list := make(ReferenceList, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		list = append(list, Reference{URL: u, Title: u})
	}
	return list
}

// MarshalJSON renders the list as the serialized string the viewer parses.
func (l ReferenceList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("null"), nil
	}
	encoded, err := l.Encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

// UnmarshalJSON accepts either the serialized string form or a literal array.
func (l *ReferenceList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		parsed, err := ParseReferenceList(trimmed)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("decode references: %w", err)
	}
	parsed, err := ParseReferenceList(encoded)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// References strips the scraped content from a corpus.
func References(corpus []ReferenceContent) ReferenceList {
	list := make(ReferenceList, 0, len(corpus))
	for _, ref := range corpus {
		list = append(list, ref.Reference)
	}
	return list
}
