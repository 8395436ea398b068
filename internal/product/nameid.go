package product

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nameIDPattern  = regexp.MustCompile(`^[a-z0-9_]+$`)
	nameIDDisallow = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRun  = regexp.MustCompile(`_+`)
)

// GenerateNameID derives a name_id from a display name:
// "Thickness A" becomes "thickness_a", "Épaisseur (mm)" becomes "epaisseur_mm".
func GenerateNameID(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(strings.TrimSpace(folded))
	s = strings.Join(strings.Fields(s), "_")
	s = nameIDDisallow.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ValidNameID reports whether id is a well-formed name_id.
func ValidNameID(id string) bool {
	return nameIDPattern.MatchString(id)
}
