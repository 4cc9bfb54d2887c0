package site

import (
	"embed"
	"io/fs"
)

//go:embed static/index.html
var staticFS embed.FS

const indexFile = "static/index.html"

// Page returns the landing page markup.
func Page() []byte {
	b, err := fs.ReadFile(staticFS, indexFile)
	if err != nil {
		// The file is compiled in; a failure here is a build defect.
		panic(err)
	}
	return b
}
