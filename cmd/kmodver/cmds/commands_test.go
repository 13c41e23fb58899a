package cmds

import (
	"testing"

	"github.com/kmodver/kmodver/pkg/config"
	"github.com/kmodver/kmodver/pkg/modver"
)

func TestParseCRC(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		err  bool
	}{
		{in: "0xdeadbeef", want: 0xdeadbeef},
		{in: "305419896", want: 305419896},
		{in: " 0x10 ", want: 16},
		{in: "0b101", want: 5},
		{in: "", err: true},
		{in: "zork", err: true},
		{in: "-1", err: true},
	}
	for _, tc := range tests {
		got, err := parseCRC(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("parseCRC(%q) succeeded with %#x, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCRC(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseCRC(%q) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestBuildStrategyRequiresWork(t *testing.T) {
	defer resetFlags()
	conf = &config.Config{}
	rc, err := modver.NewRefCache(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildStrategy(rc); err == nil {
		t.Fatal("expected error when neither --reference nor --module-layout-crc is given")
	}
}

func TestBuildStrategyLiteralOnly(t *testing.T) {
	defer resetFlags()
	conf = &config.Config{}
	layoutCRC = "0xdeadbeef"
	rc, err := modver.NewRefCache(0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := buildStrategy(rc)
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := s.(modver.LiteralCRC)
	if !ok {
		t.Fatalf("strategy is %T, want LiteralCRC", s)
	}
	if lit.Symbol != modver.ModuleLayoutSymbol || lit.CRC != 0xdeadbeef {
		t.Fatalf("strategy = %+v", lit)
	}
}

func TestLayoutOptsPrecedence(t *testing.T) {
	defer resetFlags()
	conf = &config.Config{RecordSize: 64, CRCSize: 8}
	crcSize = 4
	if opts := layoutOpts(); len(opts) != 1 {
		t.Fatalf("got %d options", len(opts))
	}
	conf = &config.Config{}
	crcSize = 0
	if opts := layoutOpts(); opts != nil {
		t.Fatalf("expected no options, got %d", len(opts))
	}
}

func TestBackupSuffix(t *testing.T) {
	defer resetFlags()
	conf = &config.Config{}
	if s := backupSuffix(); s != ".patch" {
		t.Fatalf("default suffix = %q", s)
	}
	conf = &config.Config{BackupSuffix: ".orig"}
	if s := backupSuffix(); s != ".orig" {
		t.Fatalf("suffix = %q", s)
	}
}

func resetFlags() {
	refPath, layoutCRC, outPath = "", "", ""
	keep = false
	recordSize, crcSize = 0, 0
	conf = nil
}
