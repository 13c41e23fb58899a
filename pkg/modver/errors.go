package modver

import (
	"errors"
	"fmt"
)

// ErrNotELF is returned when the input buffer does not carry valid ELF
// identification bytes. Errors wrapping it carry the underlying parse
// failure.
var ErrNotELF = errors.New("not an ELF object")

// SectionNotFoundError is returned when a requested section does not
// exist in the module. For "__versions" this is an expected condition:
// the module was built without CONFIG_MODVERSIONS, or imports no
// versioned symbols, and may not need patching at all.
type SectionNotFoundError struct {
	Name string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %q not found", e.Name)
}

// MalformedVersionsError is returned when the size of a "__versions"
// section is not a multiple of the record size. It usually means the
// record layout was derived for the wrong architecture word size.
type MalformedVersionsError struct {
	SectionSize uint64
	RecordSize  int
}

func (e *MalformedVersionsError) Error() string {
	return fmt.Sprintf("__versions section size %d is not a multiple of the %d-byte record size", e.SectionSize, e.RecordSize)
}

// SymbolNotFoundError is returned by LiteralCRC when the target module
// has no version record for the requested symbol.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("no version record for symbol %q", e.Symbol)
}
