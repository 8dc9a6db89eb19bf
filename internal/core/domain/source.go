package domain

// SourceKind distinguishes document sources (budget + overflow rules
// apply) from image sources (OCR text appended verbatim).
type SourceKind string

const (
	SourceDocument SourceKind = "document"
	SourceImage    SourceKind = "image"
)

// Source references staged material on disk. Sources are ephemeral:
// created at request time and deleted once ingested.
type Source struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path"`
}

// IngestResult carries both views of the ingested material: the
// budget-bounded text sent to the model (FAQ-augmented when a document
// overflowed) and the complete unbounded text kept for audit.
type IngestResult struct {
	LimitedText  string `json:"limited_text"`
	CompleteText string `json:"complete_text"`
	Documents    int    `json:"documents"`
	Images       int    `json:"images"`
	Skipped      int    `json:"skipped"`
}
