package modver

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// SectionHeader identifies a byte range of a module file belonging to a
// named section.
type SectionHeader struct {
	Name   string
	Offset uint64
	Size   uint64
}

// File is a kernel module held in memory. The byte buffer is owned by
// the caller; File only reads it, except through Apply which rewrites
// the located "__versions" range.
type File struct {
	data   []byte
	elf    *elf.File
	layout Layout
}

// Open parses module bytes. It fails with an error wrapping ErrNotELF
// if the buffer is not an ELF object.
func Open(data []byte) (*File, error) {
	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	layout, err := LayoutFor(ef.Class, ef.Data)
	if err != nil {
		return nil, err
	}
	return &File{data: data, elf: ef, layout: layout}, nil
}

// Layout returns the record layout derived from the file's ELF ident.
func (f *File) Layout() Layout {
	return f.layout
}

// SetLayout overrides the derived record layout. Needed only for
// modules whose originating kernel used an unusual modversion_info
// packing.
func (f *File) SetLayout(l Layout) error {
	if err := l.validate(); err != nil {
		return err
	}
	f.layout = l
	return nil
}

// Section locates a named section and returns its file offset and
// size. It returns a *SectionNotFoundError when no section carries the
// name, and an error when the header points outside the file.
func (f *File) Section(name string) (*SectionHeader, error) {
	for _, s := range f.elf.Sections {
		if s.Name != name {
			continue
		}
		if s.Type == elf.SHT_NOBITS {
			return nil, fmt.Errorf("section %q occupies no file space", name)
		}
		if s.Offset+s.Size < s.Offset || s.Offset+s.Size > uint64(len(f.data)) {
			return nil, fmt.Errorf("section %q exceeds file bounds: offset %#x size %#x", name, s.Offset, s.Size)
		}
		return &SectionHeader{Name: name, Offset: s.Offset, Size: s.Size}, nil
	}
	return nil, &SectionNotFoundError{Name: name}
}

// sectionData returns the sub-slice of the backing buffer described by
// sh. Callers must not grow the returned slice.
func (f *File) sectionData(sh *SectionHeader) []byte {
	return f.data[sh.Offset : sh.Offset+sh.Size]
}

// Versions locates and decodes the module's "__versions" section.
func (f *File) Versions() (*VersionTable, error) {
	sh, err := f.Section(VersionsSection)
	if err != nil {
		return nil, err
	}
	return Decode(f.sectionData(sh), f.layout)
}
