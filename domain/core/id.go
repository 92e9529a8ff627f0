package core

import (
	"strings"

	"github.com/google/uuid"
)

// DocumentName identifies a compiled document. PFA engines use it to
// namespace cells and logs when several documents share a process.
type DocumentName string

// NewDocumentName generates a model_<8-hex> name from a random UUID,
// matching the auto-naming convention of exported scoring documents.
func NewDocumentName() DocumentName {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")
	return DocumentName("model_" + hex[:8])
}

// String returns the string representation
func (n DocumentName) String() string {
	return string(n)
}

// IsEmpty checks if the name is empty
func (n DocumentName) IsEmpty() bool {
	return n == ""
}
