package crawler

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// Kind labels the routing decision for a fetched response.
type Kind int

// Classification outcomes.
const (
	KindUnknown Kind = iota
	KindPage
	KindDocument
	KindImage
)

// String returns a human-readable label for logs and skip reasons.
func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindDocument:
		return "document"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// minPageBytes is the floor below which a text response is too trivial to
// treat as a navigable page.
const minPageBytes = 32

var documentMIMEs = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.oasis.opendocument.text":                                   {},
	"application/rtf": {},
	"text/csv":        {},
}

var documentExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".odt": {}, ".rtf": {}, ".csv": {},
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
}

// Classify labels a fetch result as a navigable page, a downloadable
// document, an image, or unknown. It is pure: no network or storage side
// effects, so routing decisions are trivially testable.
func Classify(res FetchResult) Kind {
	mediaType := mediaTypeOf(res)

	switch {
	case mediaType != "":
		if _, ok := documentMIMEs[mediaType]; ok {
			return KindDocument
		}
		if strings.HasPrefix(mediaType, "image/") {
			return KindImage
		}
		if isTextual(mediaType) {
			if len(res.Body) >= minPageBytes {
				return KindPage
			}
			return KindUnknown
		}
		return KindUnknown
	case len(res.Body) >= minPageBytes:
		// No declared type; sniff the payload.
		sniffed := http.DetectContentType(res.Body)
		if isTextual(sniffed) {
			return KindPage
		}
		if strings.HasPrefix(sniffed, "image/") {
			return KindImage
		}
		if strings.HasPrefix(sniffed, "application/pdf") {
			return KindDocument
		}
		return KindUnknown
	default:
		return KindUnknown
	}
}

// RefKindForURL hints at the kind of content a URL points to from its path
// extension alone, letting the orchestrator route document references before
// spending a fetch on them.
func RefKindForURL(rawURL string) Kind {
	ext := strings.ToLower(path.Ext(pathOf(rawURL)))
	if _, ok := documentExtensions[ext]; ok {
		return KindDocument
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage
	}
	return KindPage
}

func mediaTypeOf(res FetchResult) string {
	if res.ContentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(res.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(res.ContentType, ";")[0]))
	}
	return mediaType
}

func isTextual(mediaType string) bool {
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return true
	case mediaType == "text/plain":
		return true
	case strings.HasPrefix(mediaType, "text/") && mediaType != "text/csv":
		return true
	default:
		return false
	}
}

func pathOf(rawURL string) string {
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.Index(trimmed, "://"); idx != -1 {
		trimmed = trimmed[idx+3:]
		if slash := strings.Index(trimmed, "/"); slash != -1 {
			return trimmed[slash:]
		}
		return "/"
	}
	return trimmed
}
