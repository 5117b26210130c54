package part

import "os"

// writeRaw is a small helper shared by the part package's tests for
// writing a fixture file's exact contents.
func writeRaw(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
