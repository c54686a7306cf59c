// Package filetype performs the PDF pre-flight gate: magic-byte detection
// of whether an input is actually a PDF, independent of its filename
// extension. Adapted from the teacher's multi-format office-document
// detector (internal/filetype/detector.go), trimmed to this pipeline's
// single accepted input type -- the ZIP/OLE office-format heuristics the
// teacher needed for LibreOffice conversion have no role here.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info is the detected type of one input file.
type Info struct {
	MIMEType string
	IsPDF    bool
}

// Detector classifies files by magic bytes rather than filename extension.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

// Detect inspects filePath's content and reports whether it is a PDF.
func (d *Detector) Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}

	mimeType := mtype.String()
	isPDF := mimeType == "application/pdf"

	log.Debug().Str("mime", mimeType).Str("file", filePath).Bool("is_pdf", isPDF).Msg("detected file type")

	return &Info{MIMEType: mimeType, IsPDF: isPDF}, nil
}
