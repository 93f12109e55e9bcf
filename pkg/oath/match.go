package oath

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatch indicates no credential matched the search term.
	ErrNoMatch = errors.New("no matching credential")
	// ErrAmbiguous indicates more than one credential matched.
	ErrAmbiguous = errors.New("ambiguous search term")
)

// Match selects the credential for term. An exact name match (ignoring
// case) wins outright; otherwise the term must match exactly one credential
// as a case-insensitive substring of its account name.
func Match(credentials []Credential, term string) (Credential, error) {
	needle := strings.ToLower(term)
	var matches []Credential
	for _, cred := range credentials {
		name := strings.ToLower(cred.Name)
		if name == needle {
			return cred, nil
		}
		if strings.Contains(name, needle) {
			matches = append(matches, cred)
		}
	}
	switch len(matches) {
	case 0:
		return Credential{}, fmt.Errorf("%w: %q", ErrNoMatch, term)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, cred := range matches {
			names[i] = cred.Name
		}
		return Credential{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, term, strings.Join(names, ", "))
	}
}
