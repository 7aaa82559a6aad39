package assets

import (
	"embed"
	"io/fs"
)

//go:embed palettes.yaml sql/*.sql
var FS embed.FS

// Palettes returns the embedded default palette file.
func Palettes() ([]byte, error) {
	return FS.ReadFile("palettes.yaml")
}

// Migrations returns the embedded sql/ directory as its own root.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
