//go:build windows || darwin

package mirror

import "strings"

// pathKey identifies a file under the mirror root. The default filesystems
// here ignore case, so two spellings of one path share a key.
func pathKey(path string) string {
	return strings.ToLower(path)
}
