package slug

import (
	"github.com/google/uuid"
	gosimple "github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	SuffixLen = 6
	fallback  = "form"
)

// Slugify transliterates label to ASCII, lowercases it and joins words with "-".
func Slugify(label string) string {
	return gosimple.Make(label)
}

// Suffix returns n random url-safe characters.
func Suffix(n int) (string, error) {
	return gonanoid.New(n)
}

// FromLabel builds a form slug such as "customer-feedback-V1StGX".
func FromLabel(label string) (string, error) {
	base := Slugify(label)
	if base == "" {
		base = fallback
	}
	suffix, err := Suffix(SuffixLen)
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}

// ShareToken returns a fresh unguessable share token (random UUIDv4).
func ShareToken() string {
	return uuid.NewString()
}
