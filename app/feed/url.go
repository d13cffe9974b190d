package feed

import (
	"fmt"
	"regexp"
	"strings"
)

const DefaultSiteURL = "https://archiveofourown.org"

var (
	tagIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
	feedURLPattern = regexp.MustCompile(`^https?://[^/]+/tags/([^/?#]+)/feed\.atom(\?.*)?$`)
)

// FeedURL returns the Atom feed URL for a tag identifier.
func FeedURL(siteURL, tagID string) string {
	return fmt.Sprintf("%s/tags/%s/feed.atom", strings.TrimRight(siteURL, "/"), tagID)
}

func ValidateTagID(tagID string) error {
	if !tagIDPattern.MatchString(tagID) {
		return fmt.Errorf("%w: %q", ErrInvalidTagID, tagID)
	}
	return nil
}

// ExtractTagID accepts either a bare tag identifier or a full feed URL and
// returns the validated identifier.
func ExtractTagID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if m := feedURLPattern.FindStringSubmatch(input); m != nil {
		input = m[1]
	}
	if err := ValidateTagID(input); err != nil {
		return "", err
	}
	return input, nil
}
