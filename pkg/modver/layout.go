package modver

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// RecordSize is the size of one modversion_info record. The kernel
// declares it as
//
//	struct modversion_info {
//		unsigned long crc;
//		char name[64 - sizeof(unsigned long)];
//	};
//
// so the record is 64 bytes on every architecture while the width of
// the CRC field tracks the word size: 8 bytes on 64-bit kernels, 4 on
// 32-bit ones. The CRC value itself is 32 bits; on 64-bit layouts the
// upper half of the field is zero.
const RecordSize = 64

// ModuleLayoutSymbol names the version record present in essentially
// every module. Its CRC covers the kernel's core module-loading
// structures and is always the first thing the loader checks.
const ModuleLayoutSymbol = "module_layout"

// VersionsSection is the name of the ELF section holding the record
// array.
const VersionsSection = "__versions"

// Layout describes how version records are packed in a particular
// module. The zero value is not usable; obtain one from LayoutFor or
// fill in all three fields.
type Layout struct {
	// RecordSize is the total record size in bytes.
	RecordSize int
	// CRCSize is the width of the CRC field at the start of each
	// record; the name field occupies the remainder.
	CRCSize int
	// ByteOrder is the encoding of the CRC field, matching the ELF
	// file's declared data encoding.
	ByteOrder binary.ByteOrder
}

// LayoutFor derives the record layout from an ELF file's class and data
// encoding.
func LayoutFor(class elf.Class, data elf.Data) (Layout, error) {
	l := Layout{RecordSize: RecordSize}
	switch class {
	case elf.ELFCLASS64:
		l.CRCSize = 8
	case elf.ELFCLASS32:
		l.CRCSize = 4
	default:
		return Layout{}, fmt.Errorf("unsupported ELF class %v", class)
	}
	switch data {
	case elf.ELFDATA2LSB:
		l.ByteOrder = binary.LittleEndian
	case elf.ELFDATA2MSB:
		l.ByteOrder = binary.BigEndian
	default:
		return Layout{}, fmt.Errorf("unsupported ELF data encoding %v", data)
	}
	return l, nil
}

func (l Layout) validate() error {
	if l.RecordSize <= 0 || l.CRCSize <= 0 || l.CRCSize >= l.RecordSize {
		return fmt.Errorf("invalid record layout: record size %d, crc size %d", l.RecordSize, l.CRCSize)
	}
	if l.ByteOrder == nil {
		return fmt.Errorf("invalid record layout: no byte order")
	}
	return nil
}

// nameLen returns the width of the name field.
func (l Layout) nameLen() int {
	return l.RecordSize - l.CRCSize
}

// maxCRC returns the largest value the CRC field can hold.
func (l Layout) maxCRC() uint64 {
	if l.CRCSize >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(l.CRCSize)) - 1
}

func (l Layout) readCRC(b []byte) uint64 {
	if l.CRCSize == 8 {
		return l.ByteOrder.Uint64(b)
	}
	return uint64(l.ByteOrder.Uint32(b))
}

func (l Layout) putCRC(b []byte, crc uint64) {
	if l.CRCSize == 8 {
		l.ByteOrder.PutUint64(b, crc)
		return
	}
	l.ByteOrder.PutUint32(b, uint32(crc))
}
