package constants

// DocumentStatus is the canonical status for rows in extracted_documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusQueued  DocumentStatus = "QUEUED"  // discovered, not yet processed
	DocumentStatusRunning DocumentStatus = "RUNNING" // in progress
	DocumentStatusTextOK  DocumentStatus = "TEXT_OK" // stage 1 completed (text extracted)
	DocumentStatusParsed  DocumentStatus = "PARSED"  // stage 2 completed (BOQ lines stored)
	DocumentStatusNoBOQ   DocumentStatus = "NO_BOQ"  // text extracted but no parseable BOQ
	DocumentStatusFailed  DocumentStatus = "FAILED"  // terminal failure
)

// Terminal reports whether no further processing is expected for the status.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case DocumentStatusParsed, DocumentStatusNoBOQ, DocumentStatusFailed:
		return true
	}
	return false
}

// Extraction methods recorded on extracted_documents.method.
const (
	MethodNativeText = "pdf-text"
	MethodOCR        = "pdf-ocr"
	MethodNone       = "none"
)
