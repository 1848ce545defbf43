package mumcore

import (
	"bytes"
	"testing"
)

func TestAlignerConfIO(t *testing.T) {
	conf := DefaultAlignerConf
	buf := new(bytes.Buffer)

	if err := conf.Write(buf); err != nil {
		t.Fatal(err)
	}
	got, err := LoadAlignerConf(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != conf {
		t.Fatalf("%+v != %+v", got, conf)
	}
}

func TestAlignerConfValidate(t *testing.T) {
	conf := DefaultAlignerConf
	conf.SparseK = 4
	conf.SparseMult = 10
	conf.MinLen = 5
	if err := conf.Validate(); err == nil {
		t.Fatalf("expected construction error for sparseMult*K > minLen")
	}

	conf = DefaultAlignerConf
	conf.MatchFlavor = MUMReference
	conf.SparseK = 4
	if err := conf.Validate(); err == nil {
		t.Fatalf("expected construction error for MAM with K != 1")
	}
}

func TestAlignerConfFlagMerge(t *testing.T) {
	fileConf := DefaultAlignerConf
	fileConf.MinLen = 99
	fileConf.SparseK = 4

	flagConf := DefaultAlignerConf
	flagConf.MinLen = 30 // not in explicitlySet -> should be overridden by fileConf
	flagConf.BreakLen = 500

	merged, err := flagConf.FlagMerge(fileConf, map[string]bool{"BreakLen": true})
	if err != nil {
		t.Fatal(err)
	}
	if merged.MinLen != 99 {
		t.Fatalf("MinLen = %d, want 99 (from file)", merged.MinLen)
	}
	if merged.BreakLen != 500 {
		t.Fatalf("BreakLen = %d, want 500 (explicitly set)", merged.BreakLen)
	}
	if merged.SparseK != 4 {
		t.Fatalf("SparseK = %d, want 4 (always taken from file)", merged.SparseK)
	}

	_, err = flagConf.FlagMerge(fileConf, map[string]bool{"SparseK": true})
	if err == nil {
		t.Fatalf("expected error when SparseK is explicitly set")
	}
}
