package modver

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// symver is a (name, crc) pair used to synthesize __versions sections.
type symver struct {
	name string
	crc  uint64
}

func mustLayout(t *testing.T, class elf.Class, data elf.Data) Layout {
	t.Helper()
	l, err := LayoutFor(class, data)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func rawRecord(l Layout, crc uint64, name string) []byte {
	rec := make([]byte, l.RecordSize)
	l.putCRC(rec, crc)
	copy(rec[l.CRCSize:], name)
	return rec
}

func rawSection(l Layout, vers []symver) []byte {
	sec := make([]byte, 0, len(vers)*l.RecordSize)
	for _, v := range vers {
		sec = append(sec, rawRecord(l, v.crc, v.name)...)
	}
	return sec
}

// buildKoRaw synthesizes a minimal relocatable ELF with three sections:
// the null section, one data section holding sec, and .shstrtab. The
// data section starts right after the ELF header.
func buildKoRaw(class elf.Class, data elf.Data, secName string, sec []byte) []byte {
	var bo binary.ByteOrder = binary.LittleEndian
	if data == elf.ELFDATA2MSB {
		bo = binary.BigEndian
	}

	shstr := []byte{0}
	nameOff := func(s string) uint32 {
		off := uint32(len(shstr))
		shstr = append(shstr, s...)
		shstr = append(shstr, 0)
		return off
	}
	secNameOff := nameOff(secName)
	strNameOff := nameOff(".shstrtab")

	is64 := class == elf.ELFCLASS64
	ehsize, shentsize := 52, 40
	machine := uint16(elf.EM_PPC)
	if is64 {
		ehsize, shentsize = 64, 64
		machine = uint16(elf.EM_X86_64)
	}
	secOff := ehsize
	strOff := secOff + len(sec)
	shoff := strOff + len(shstr)
	if r := shoff % 8; r != 0 {
		shoff += 8 - r
	}

	buf := new(bytes.Buffer)
	u16 := func(v uint16) { binary.Write(buf, bo, v) }
	u32 := func(v uint32) { binary.Write(buf, bo, v) }
	u64 := func(v uint64) { binary.Write(buf, bo, v) }

	ident := make([]byte, 16)
	copy(ident, elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(data)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	buf.Write(ident)

	u16(uint16(elf.ET_REL))
	u16(machine)
	u32(uint32(elf.EV_CURRENT))
	if is64 {
		u64(0) // e_entry
		u64(0) // e_phoff
		u64(uint64(shoff))
	} else {
		u32(0)
		u32(0)
		u32(uint32(shoff))
	}
	u32(0) // e_flags
	u16(uint16(ehsize))
	u16(0) // e_phentsize
	u16(0) // e_phnum
	u16(uint16(shentsize))
	u16(3) // e_shnum
	u16(2) // e_shstrndx

	buf.Write(sec)
	buf.Write(shstr)
	buf.Write(make([]byte, shoff-strOff-len(shstr)))

	shdr := func(name uint32, typ elf.SectionType, off, size int, align uint64) {
		if is64 {
			u32(name)
			u32(uint32(typ))
			u64(0) // sh_flags
			u64(0) // sh_addr
			u64(uint64(off))
			u64(uint64(size))
			u32(0) // sh_link
			u32(0) // sh_info
			u64(align)
			u64(0) // sh_entsize
		} else {
			u32(name)
			u32(uint32(typ))
			u32(0)
			u32(0)
			u32(uint32(off))
			u32(uint32(size))
			u32(0)
			u32(0)
			u32(uint32(align))
			u32(0)
		}
	}
	shdr(0, elf.SHT_NULL, 0, 0, 0)
	shdr(secNameOff, elf.SHT_PROGBITS, secOff, len(sec), 8)
	shdr(strNameOff, elf.SHT_STRTAB, strOff, len(shstr), 1)
	return buf.Bytes()
}

// buildKo synthesizes a module whose __versions section holds vers.
func buildKo(t *testing.T, class elf.Class, data elf.Data, vers []symver) []byte {
	t.Helper()
	l := mustLayout(t, class, data)
	return buildKoRaw(class, data, VersionsSection, rawSection(l, vers))
}

// buildKoNoVersions synthesizes a module without a __versions section.
func buildKoNoVersions(t *testing.T) []byte {
	t.Helper()
	return buildKoRaw(elf.ELFCLASS64, elf.ELFDATA2LSB, ".note.test", []byte("noversions"))
}

// versOffset returns the file offset of the __versions section in
// modules produced by buildKo.
func versOffset(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 64
	}
	return 52
}
