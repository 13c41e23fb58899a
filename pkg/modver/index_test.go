package modver

import (
	"debug/elf"
	"errors"
	"testing"
)

func TestBuildIndex(t *testing.T) {
	table := &VersionTable{Records: []VersionRecord{
		{Name: "module_layout", CRC: 0x11},
		{Name: "printk", CRC: 0x22},
	}}
	idx := BuildIndex(table)
	if len(idx) != 2 || idx["module_layout"] != 0x11 || idx["printk"] != 0x22 {
		t.Fatalf("index = %v", idx)
	}
}

func TestBuildIndexDuplicateLastWins(t *testing.T) {
	table := &VersionTable{Records: []VersionRecord{
		{Name: "dup", CRC: 0x11, Offset: 0},
		{Name: "printk", CRC: 0x22, Offset: 64},
		{Name: "dup", CRC: 0x33, Offset: 128},
	}}
	idx := BuildIndex(table)
	if idx["dup"] != 0x33 {
		t.Fatalf("duplicate tie-break: idx[dup] = %#x, want 0x33", idx["dup"])
	}
}

func TestIndexModule(t *testing.T) {
	ko := buildKo(t, elf.ELFCLASS64, elf.ELFDATA2LSB, []symver{
		{"module_layout", 0xcafe},
		{"printk", 0xf00d},
	})
	idx, err := IndexModule(ko)
	if err != nil {
		t.Fatal(err)
	}
	if idx["printk"] != 0xf00d {
		t.Fatalf("index = %v", idx)
	}
}

func TestIndexModuleNoVersions(t *testing.T) {
	_, err := IndexModule(buildKoNoVersions(t))
	var nf *SectionNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want SectionNotFoundError", err)
	}
}
