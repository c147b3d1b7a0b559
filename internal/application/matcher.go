package application

import "strings"

// ResolveRecipient resolves a free-text name against the roster.
//
// Matching runs in strictly ordered stages and returns the first hit of the
// first stage that produces any match, so results are deterministic for a
// fixed roster order:
//
//  1. exact match on display name or handle (case-insensitive, trimmed)
//  2. substring match on display name, handle, or contact
//  3. token match against display-name tokens: an entry matched by every
//     whitespace token of the query beats an entry matched by only some of
//     them, so "j doe" resolves to John Doe even when Jane Smith appears
//     earlier in the roster
//
// A blank query never matches. Not finding a recipient is an expected
// outcome, not an error: it downgrades the notification, never the check-in.
func ResolveRecipient(roster []RecipientEntry, query string) (RecipientEntry, bool) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return RecipientEntry{}, false
	}

	for _, entry := range roster {
		if matchesExact(entry, needle) {
			return entry, true
		}
	}

	for _, entry := range roster {
		if matchesSubstring(entry, needle) {
			return entry, true
		}
	}

	parts := strings.Fields(needle)
	var partial *RecipientEntry
	for _, entry := range roster {
		hits := tokenHits(entry, parts)
		if hits == len(parts) {
			return entry, true
		}
		if hits > 0 && partial == nil {
			hit := entry
			partial = &hit
		}
	}
	if partial != nil {
		return *partial, true
	}

	return RecipientEntry{}, false
}

func matchesExact(entry RecipientEntry, needle string) bool {
	return strings.ToLower(strings.TrimSpace(entry.DisplayName)) == needle ||
		strings.ToLower(strings.TrimSpace(entry.Handle)) == needle
}

func matchesSubstring(entry RecipientEntry, needle string) bool {
	return strings.Contains(strings.ToLower(entry.DisplayName), needle) ||
		strings.Contains(strings.ToLower(entry.Handle), needle) ||
		(entry.Contact != "" && strings.Contains(strings.ToLower(entry.Contact), needle))
}

// tokenHits counts how many query parts appear inside some display-name token.
func tokenHits(entry RecipientEntry, parts []string) int {
	nameTokens := strings.Fields(strings.ToLower(entry.DisplayName))
	hits := 0
	for _, part := range parts {
		for _, token := range nameTokens {
			if strings.Contains(token, part) {
				hits++
				break
			}
		}
	}
	return hits
}
