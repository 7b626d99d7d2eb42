// Package attachment sniffs uploaded files and extracts the text a model or the local
// responder can use.
package attachment

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Class groups MIME types by how we handle them.
type Class string

const (
	ClassText        Class = "text"
	ClassPDF         Class = "pdf"
	ClassImage       Class = "image"
	ClassOffice      Class = "office"
	ClassUnsupported Class = "unsupported"
)

// Info is the sniffed type of an attachment.
type Info struct {
	MIMEType    string
	Extension   string
	Class       Class
	Description string
}

var officeTypes = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "Microsoft Word document",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "Microsoft PowerPoint presentation",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "Microsoft Excel spreadsheet",

	"application/msword":            "Microsoft Word document (legacy)",
	"application/vnd.ms-powerpoint": "Microsoft PowerPoint presentation (legacy)",
	"application/vnd.ms-excel":      "Microsoft Excel spreadsheet (legacy)",
	"application/rtf":               "Rich Text Format",
	"text/rtf":                      "Rich Text Format",

	"application/vnd.oasis.opendocument.text":         "OpenDocument text",
	"application/vnd.oasis.opendocument.presentation": "OpenDocument presentation",
	"application/vnd.oasis.opendocument.spreadsheet":  "OpenDocument spreadsheet",
}

// Detect sniffs data by its magic bytes, never by name.
func Detect(data []byte) Info {
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	info := Info{MIMEType: mime, Extension: mt.Extension()}
	classify(&info, mt)
	return info
}

func classify(info *Info, mt *mimetype.MIME) {
	mime := info.MIMEType
	switch {
	case mime == "application/pdf":
		info.Class, info.Description = ClassPDF, "PDF document"
	case strings.HasPrefix(mime, "image/"):
		info.Class, info.Description = ClassImage, "Image file"
	case officeTypes[mime] != "":
		info.Class, info.Description = ClassOffice, officeTypes[mime]
	case isTextual(mt):
		info.Class, info.Description = ClassText, "Text document"
	default:
		info.Class, info.Description = ClassUnsupported, "Unsupported file type: "+mime
	}
}

// isTextual walks the MIME hierarchy so JSON, HTML, CSV and friends count as text.
func isTextual(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("application/json") || m.Is("text/xml") || m.Is("application/xml") {
			return true
		}
	}
	return false
}
