package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// identityPattern matches the "<session> <F|M> <age>" convention embedded in
// dataset paths, e.g. "12 F 034".
var identityPattern = regexp.MustCompile(`\d+ F \d+|\d+ M \d+`)

// Extract parses the raw session token, sex code and age out of a file or
// directory path. A path that does not match the convention is an error:
// the pseudonymous identifier depends on the token, so the caller must
// record the failure rather than default it.
func Extract(path string) (sessionToken, sex, age string, err error) {
	match := identityPattern.FindString(path)
	if match == "" {
		return "", "", "", fmt.Errorf("no identity pattern in path %q", path)
	}

	parts := strings.Fields(match)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}
