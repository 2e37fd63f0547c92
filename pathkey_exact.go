//go:build !windows && !darwin

package mirror

// pathKey identifies a file under the mirror root.
func pathKey(path string) string {
	return path
}
