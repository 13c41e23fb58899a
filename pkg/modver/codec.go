package modver

import (
	"bytes"
	"fmt"
)

// VersionRecord is one decoded modversion_info entry.
type VersionRecord struct {
	// CRC is the symbol version checksum. On 4-byte layouts only the
	// low 32 bits are significant.
	CRC uint64
	// Name is the symbol name, stripped of its null padding.
	Name string
	// Offset is the byte position of this record within the
	// "__versions" section.
	Offset int
}

// VersionTable is the decoded "__versions" section, in file order.
type VersionTable struct {
	Records []VersionRecord

	layout Layout
}

// Decode parses a "__versions" section body into a VersionTable. The
// section length must be an exact multiple of the layout's record size;
// trailing bytes are never silently dropped, since their presence means
// the layout was derived for the wrong architecture.
func Decode(data []byte, layout Layout) (*VersionTable, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	if len(data)%layout.RecordSize != 0 {
		return nil, &MalformedVersionsError{SectionSize: uint64(len(data)), RecordSize: layout.RecordSize}
	}
	t := &VersionTable{layout: layout}
	for off := 0; off < len(data); off += layout.RecordSize {
		rec := data[off : off+layout.RecordSize]
		name := rec[layout.CRCSize:]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		t.Records = append(t.Records, VersionRecord{
			CRC:    layout.readCRC(rec),
			Name:   string(name),
			Offset: off,
		})
	}
	return t, nil
}

// Encode writes every record's CRC field back into dst, which must be
// the same section body the table was decoded from. Only CRC fields are
// touched: names, padding and record boundaries stay byte-identical, so
// encoding an unmodified table reproduces the input exactly.
func (t *VersionTable) Encode(dst []byte) error {
	if len(dst) != len(t.Records)*t.layout.RecordSize {
		return fmt.Errorf("encode target is %d bytes, table describes %d", len(dst), len(t.Records)*t.layout.RecordSize)
	}
	max := t.layout.maxCRC()
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.CRC > max {
			return fmt.Errorf("CRC %#x for %q overflows the %d-byte CRC field", rec.CRC, rec.Name, t.layout.CRCSize)
		}
		t.layout.putCRC(dst[rec.Offset:rec.Offset+t.layout.CRCSize], rec.CRC)
	}
	return nil
}

// Lookup returns the index of the first record in file order whose name
// is sym, or -1. The loader checks records in file order, so with
// duplicate names the first occurrence is the one that matters.
func (t *VersionTable) Lookup(sym string) int {
	for i := range t.Records {
		if t.Records[i].Name == sym {
			return i
		}
	}
	return -1
}
