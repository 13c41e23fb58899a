package modver

// ApplyOption adjusts how Apply treats the target module.
type ApplyOption func(*File) error

// WithLayout overrides the record layout derived from the target's ELF
// ident.
func WithLayout(l Layout) ApplyOption {
	return func(f *File) error { return f.SetLayout(l) }
}

// WithRecordSize overrides the record and CRC field sizes while keeping
// the byte order derived from the ELF ident. Zero leaves a dimension at
// its derived value.
func WithRecordSize(recordSize, crcSize int) ApplyOption {
	return func(f *File) error {
		l := f.Layout()
		if recordSize > 0 {
			l.RecordSize = recordSize
		}
		if crcSize > 0 {
			l.CRCSize = crcSize
		}
		return f.SetLayout(l)
	}
}

// Apply locates the target's "__versions" section, decodes it, runs the
// strategy over the decoded table and writes the resulting CRCs back in
// place. Only bytes inside the section's CRC fields change; the buffer
// keeps its length and every other byte.
//
// Apply is all-or-nothing: the strategy runs against a copy of the
// section, and target is mutated only once every step has succeeded. On
// error the buffer is byte-identical to the input.
func Apply(target []byte, s Strategy, opts ...ApplyOption) (*PatchResult, error) {
	f, err := Open(target)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	sh, err := f.Section(VersionsSection)
	if err != nil {
		return nil, err
	}

	// Decode and patch a copy so a failing strategy or encode cannot
	// leave a half-written section behind.
	section := make([]byte, sh.Size)
	copy(section, f.sectionData(sh))

	table, err := Decode(section, f.layout)
	if err != nil {
		return nil, err
	}
	res, err := s.Patch(table)
	if err != nil {
		return nil, err
	}
	if err := table.Encode(section); err != nil {
		return nil, err
	}

	copy(target[sh.Offset:sh.Offset+sh.Size], section)
	return res, nil
}
