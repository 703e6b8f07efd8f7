package medias

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/julien-sobczak/anksidian/pkg/text"
)

// IsImage returns if the file extension is a picture Anki can display, possibly after conversion.
// The extension is compared case-insensitively.
func IsImage(path string) bool {
	return strings.HasPrefix(MimeType(filepath.Ext(path)), "image/")
}

// NeedsConversion returns if the picture must be converted to JPEG first.
func NeedsConversion(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jxl")
}

// MediaFilename returns the name of the picture inside the Anki media folder.
// The media folder is flat so directories are folded into the name.
//
// Ex: "assets/Go Gopher.jxl" => "assets-go-gopher.jpg"
func MediaFilename(relativePath string) string {
	ext := strings.ToLower(filepath.Ext(relativePath))
	if NeedsConversion(relativePath) {
		ext = ".jpg"
	}
	name := slug.Make(filepath.ToSlash(text.TrimExtension(relativePath)))
	if name == "" {
		name = "picture"
	}
	return name + ext
}
