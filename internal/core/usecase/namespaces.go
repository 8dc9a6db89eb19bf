package usecase

// Cache namespaces. Keys are always content fingerprints.
const (
	nsSourceText    = "source_text"
	nsExtractedData = "extracted_data"
	nsMessagesInput = "messages_input"
	nsSentenceBrief = "sentence_brief"
)
