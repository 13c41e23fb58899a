package modver

// SymbolIndex maps symbol names to version CRCs. It is built from a
// reference module's version table and consulted read-only while
// cross-patching a target.
type SymbolIndex map[string]uint64

// BuildIndex flattens a version table into a SymbolIndex. If the table
// carries duplicate names the record latest in file order wins; the
// kernel never emits duplicates, so the tie-break only matters for
// hand-mangled input and is defined rather than an error.
func BuildIndex(t *VersionTable) SymbolIndex {
	idx := make(SymbolIndex, len(t.Records))
	for i := range t.Records {
		idx[t.Records[i].Name] = t.Records[i].CRC
	}
	return idx
}

// IndexModule parses a reference module and builds its SymbolIndex in
// one step. The buffer is never modified.
func IndexModule(data []byte) (SymbolIndex, error) {
	f, err := Open(data)
	if err != nil {
		return nil, err
	}
	t, err := f.Versions()
	if err != nil {
		return nil, err
	}
	return BuildIndex(t), nil
}
