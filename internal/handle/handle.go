package handle

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// MaxLength is the longest identifier the platform accepts.
const MaxLength = 30

// Letters, digits, underscores and periods; a period may not open or close the name.
var validRe = regexp2.MustCompile(`\A(?!\.)[A-Za-z0-9._]{1,30}(?<!\.)\z`, regexp2.None)

// IsValid reports whether id is a syntactically valid identifier.
func IsValid(id string) bool {
	if id == "" || len(id) > MaxLength {
		return false
	}
	ok, err := validRe.MatchString(id)
	return err == nil && ok
}

// Filter keeps the valid identifiers in order and counts the rest.
func Filter(ids []string) ([]string, int) {
	valid := make([]string, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		if IsValid(id) {
			valid = append(valid, id)
		} else {
			skipped++
		}
	}
	return valid, skipped
}

// TargetURL expands the "{}" placeholder of template with id.
func TargetURL(template, id string) string {
	return strings.ReplaceAll(template, "{}", id)
}
