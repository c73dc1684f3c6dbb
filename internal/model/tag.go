package model

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"tasktracker/pkg/util"
)

const TagNameMaxLen = 64

// slugPattern is what a user may type as a slug. Slugs derived from the
// name may also hold non-ASCII letters.
var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewTag validates name and derives the slug when none is given. The slug
// is fixed from here on.
func NewTag(name, slug string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "This field is required."}
	}
	if utf8.RuneCountInString(name) > TagNameMaxLen {
		return nil, &ValidationError{Field: "name", Message: "Ensure this value has at most 64 characters."}
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = util.Slugify(name)
	} else if !slugPattern.MatchString(slug) {
		return nil, &ValidationError{Field: "slug", Message: "Enter a valid slug consisting of letters, numbers, underscores or hyphens."}
	}
	if slug == "" {
		return nil, &ValidationError{Field: "slug", Message: "Name does not produce a usable slug."}
	}
	if utf8.RuneCountInString(slug) > TagNameMaxLen {
		return nil, &ValidationError{Field: "slug", Message: "Ensure this value has at most 64 characters."}
	}

	return &Tag{Name: name, Slug: slug}, nil
}
