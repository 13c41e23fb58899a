package modver

import "fmt"

// PatchResult reports what a strategy did to a version table.
type PatchResult struct {
	// Examined is the number of records in the target table.
	Examined int
	// Changed is the number of records whose CRC was overwritten.
	Changed int
	// ChangedNames lists the patched symbols in target file order.
	ChangedNames []string
	// SkippedNames lists, in target file order, symbols the reference
	// module did not know (cross-module patching only). These records
	// keep their original CRC and will still fail the kernel's check.
	SkippedNames []string
}

// Strategy mutates a decoded version table in memory. Implementations
// must be deterministic in target file order so identical inputs yield
// byte-identical output.
type Strategy interface {
	Patch(t *VersionTable) (*PatchResult, error)
}

// LiteralCRC overwrites the CRC of one named record with a literal
// value. The canonical use is forcing module_layout, the record the
// loader checks first.
type LiteralCRC struct {
	Symbol string
	CRC    uint64
}

// Patch implements Strategy. It fails with *SymbolNotFoundError when
// the target has no record named Symbol; the caller asked for a
// specific symbol, so its absence is never silently ignored.
func (p LiteralCRC) Patch(t *VersionTable) (*PatchResult, error) {
	i := t.Lookup(p.Symbol)
	if i < 0 {
		return nil, &SymbolNotFoundError{Symbol: p.Symbol}
	}
	res := &PatchResult{Examined: len(t.Records)}
	if t.Records[i].CRC != p.CRC {
		t.Records[i].CRC = p.CRC
		res.Changed = 1
		res.ChangedNames = []string{p.Symbol}
	}
	return res, nil
}

// CrossModule overwrites every target CRC with the value a reference
// module declares for the same symbol. Records the reference does not
// know are left untouched and reported as skipped; only the overlap is
// forced compatible.
type CrossModule struct {
	Ref SymbolIndex
}

// Patch implements Strategy.
func (p CrossModule) Patch(t *VersionTable) (*PatchResult, error) {
	if p.Ref == nil {
		return nil, fmt.Errorf("cross-module patch has no reference index")
	}
	res := &PatchResult{Examined: len(t.Records)}
	for i := range t.Records {
		rec := &t.Records[i]
		crc, ok := p.Ref[rec.Name]
		if !ok {
			res.SkippedNames = append(res.SkippedNames, rec.Name)
			continue
		}
		if rec.CRC != crc {
			rec.CRC = crc
			res.Changed++
			res.ChangedNames = append(res.ChangedNames, rec.Name)
		}
	}
	return res, nil
}

// Chain runs strategies in sequence over the same table; later
// strategies win on overlapping records. Used when a literal
// module_layout CRC is combined with a reference module.
type Chain []Strategy

// Patch implements Strategy. Results are merged; a record counts as
// changed once even if several links touch it.
func (c Chain) Patch(t *VersionTable) (*PatchResult, error) {
	res := &PatchResult{Examined: len(t.Records)}
	changed := make(map[string]bool)
	for _, s := range c {
		r, err := s.Patch(t)
		if err != nil {
			return nil, err
		}
		for _, name := range r.ChangedNames {
			if !changed[name] {
				changed[name] = true
				res.ChangedNames = append(res.ChangedNames, name)
			}
		}
		if len(r.SkippedNames) > 0 {
			res.SkippedNames = r.SkippedNames
		}
	}
	res.Changed = len(res.ChangedNames)
	return res, nil
}
