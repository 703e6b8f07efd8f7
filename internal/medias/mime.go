package medias

import "strings"

var mimeTypes = map[string]string{
	// Pictures Anki can display once attached to a note.
	// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Basics_of_HTTP/MIME_types/Common_types
	".apng": "image/apng",               // Animated Portable Network Graphics
	".avif": "image/avif",               // AVIF image
	".bmp":  "image/bmp",                // Windows OS/2 Bitmap Graphics
	".gif":  "image/gif",                // Graphics Interchange Format (GIF)
	".ico":  "image/vnd.microsoft.icon", // Icon format
	".jpeg": "image/jpeg",               // JPEG images
	".jpg":  "image/jpeg",               // JPEG images
	".jxl":  "image/jxl",                // JPEG XL (converted before upload)
	".png":  "image/png",                // Portable Network Graphics
	".svg":  "image/svg+xml",            // Scalable Vector Graphics (SVG)
	".tif":  "image/tiff",               // Tagged Image File Format (TIFF)
	".tiff": "image/tiff",               // Tagged Image File Format (TIFF)
	".webp": "image/webp",               // WEBP image

	// Other files commonly found next to notes
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// MimeType returns the mime type for common file extensions.
func MimeType(extension string) string {
	mime, ok := mimeTypes[strings.ToLower(extension)]
	if !ok {
		// RFC 2046 declares:
		// The "octet-stream" subtype is used to indicate that a body contains arbitrary binary data.
		return "application/octet-stream"
	}
	return mime
}
