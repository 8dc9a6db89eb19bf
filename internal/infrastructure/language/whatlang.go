package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Detector backs the language gate with trigram-based detection. Only a
// short sample of the generated brief is inspected; callers decide how
// much to pass.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

func (d *Detector) IsSpanish(text string) bool {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return true
	}

	info := whatlanggo.Detect(sample)
	return info.Lang == whatlanggo.Spa
}
