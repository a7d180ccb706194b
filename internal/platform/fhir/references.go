package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDanglingReference is returned when a reference does not resolve to the
// fullUrl of an entry in the same bundle.
var ErrDanglingReference = errors.New("dangling reference")

// References returns every Reference.reference value embedded in the
// resource of each entry, keyed by the entry's fullUrl.
func (b *Bundle) References() (map[string][]string, error) {
	out := make(map[string][]string, len(b.Entry))
	for _, e := range b.Entry {
		raw, err := json.Marshal(e.Resource)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", e.FullURL, err)
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.FullURL, err)
		}
		var refs []string
		collectReferences(v, &refs)
		out[e.FullURL] = refs
	}
	return out, nil
}

func collectReferences(v interface{}, refs *[]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		if r, ok := val["reference"].(string); ok {
			*refs = append(*refs, r)
		}
		for _, child := range val {
			collectReferences(child, refs)
		}
	case []interface{}:
		for _, child := range val {
			collectReferences(child, refs)
		}
	}
}

// CheckReferences verifies that fullUrls are unique and that every embedded
// reference resolves to exactly one entry.
func (b *Bundle) CheckReferences() error {
	seen := make(map[string]int, len(b.Entry))
	for _, e := range b.Entry {
		seen[e.FullURL]++
	}
	var dupes []string
	for u, n := range seen {
		if n > 1 {
			dupes = append(dupes, u)
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return fmt.Errorf("duplicate fullUrl: %s", strings.Join(dupes, ", "))
	}

	refs, err := b.References()
	if err != nil {
		return err
	}
	var dangling []string
	for from, targets := range refs {
		for _, t := range targets {
			if seen[t] == 0 {
				dangling = append(dangling, from+" -> "+t)
			}
		}
	}
	if len(dangling) > 0 {
		sort.Strings(dangling)
		return fmt.Errorf("%w: %s", ErrDanglingReference, strings.Join(dangling, ", "))
	}
	return nil
}
