package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/tubetodo/internal/shared"
)

// DemoReference resolves to [DemoPlaylist] without any network call.
const DemoReference = "demo"

var bareID = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)

// ExtractPlaylistID normalizes a playlist reference to a playlist id.
//
// A URL carrying a "list" query parameter yields that parameter; a bare token of at least ten
// [A-Za-z0-9_-] characters yields itself. Anything else is a [*shared.InputError].
func ExtractPlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &shared.InputError{Input: ref, Reason: "empty reference"}
	}

	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		if list := u.Query().Get("list"); list != "" {
			return list, nil
		}
		return "", &shared.InputError{Input: ref, Reason: "url has no list parameter"}
	}

	if bareID.MatchString(ref) {
		return ref, nil
	}
	return "", &shared.InputError{Input: ref, Reason: "not a playlist url or id"}
}

// LooksLikeAPIKey reports whether key should be treated as a Data API credential.
// It only checks the length; a long but invalid key fails later as an ordinary backend error.
func LooksLikeAPIKey(key string) bool {
	return len(strings.TrimSpace(key)) > 20
}
