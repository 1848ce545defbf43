package mumcore

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"strconv"
)

// MatchFlavor selects which of MUM/MAM/MEM enumeration MatchFinder
// performs (§4.3, §6).
type MatchFlavor int

const (
	MUM MatchFlavor = iota
	MUMReference
	MaxMatch
)

func (f MatchFlavor) String() string {
	switch f {
	case MUM:
		return "mum"
	case MUMReference:
		return "mumreference"
	case MaxMatch:
		return "maxmatch"
	default:
		return "unknown"
	}
}

// Orientation selects which strand(s) of the query MatchFinder and
// QueryPipeline search (§6).
type Orientation int

const (
	Forward Orientation = iota
	Reverse
	Both
)

// AlignerConf holds every tunable named in spec §6. It follows
// _examples/ndaniels-MICA/db.go's DBConf exactly in shape: a flat
// struct of defaults, a colon-delimited CSV reader/writer, and a
// FlagMerge that reconciles a previously-saved configuration against
// whatever the caller overrode on the command line (or, here, via
// direct field assignment) when reopening an index.
type AlignerConf struct {
	MatchFlavor   MatchFlavor
	MinLen        int
	Orientation   Orientation

	FixedSeparation  int
	MaxSeparation    int
	SeparationFactor float64
	MinOutputScore   int
	UseExtent        bool

	DoDelta   bool
	DoExtend  bool
	ToSeqEnd  bool
	DoShadows bool
	BreakLen  int
	Banding   int

	// SparseK is the sparseness factor K of the suffix array this
	// configuration was built against (K >= 1). It is validated
	// against MinLen at construction time: sparseMult*K must not
	// exceed MinLen (§7's "invalid option combination").
	SparseK     int
	SparseMult  int
}

// DefaultAlignerConf mirrors the teacher's DefaultDBConf: reasonable
// defaults for nucleotide whole-genome alignment, tuned from MUMmer's
// own nucmer defaults (match length 20, break length 200).
var DefaultAlignerConf = AlignerConf{
	MatchFlavor:      MaxMatch,
	MinLen:           20,
	Orientation:      Both,
	FixedSeparation:  5,
	MaxSeparation:    1000,
	SeparationFactor: 0.05,
	MinOutputScore:   200,
	UseExtent:        false,
	DoDelta:          true,
	DoExtend:         true,
	ToSeqEnd:         false,
	DoShadows:        true,
	BreakLen:         200,
	Banding:          0,
	SparseK:          1,
	SparseMult:       1,
}

// Validate returns an error for any option combination §7 calls
// construction-fatal.
func (c AlignerConf) Validate() error {
	if c.SparseK < 1 {
		return NewConstructionError("AlignerConf.Validate",
			fmt.Errorf("sparse K must be >= 1, got %d", c.SparseK))
	}
	if c.MatchFlavor == MUMReference && c.SparseK != 1 {
		return NewConstructionError("AlignerConf.Validate",
			fmt.Errorf("MAM (MUMReference) requires K=1, got K=%d", c.SparseK))
	}
	if c.SparseMult*c.SparseK > c.MinLen {
		return NewConstructionError("AlignerConf.Validate",
			fmt.Errorf("sparseMult*K (%d) must not exceed minLen (%d)",
				c.SparseMult*c.SparseK, c.MinLen))
	}
	return nil
}

// LoadAlignerConf parses a colon-delimited configuration as written by
// AlignerConf.Write, starting from DefaultAlignerConf so that an older
// saved file missing newer fields still yields sane values.
func LoadAlignerConf(r io.Reader) (conf AlignerConf, err error) {
	defer func() {
		if perr := recover(); perr != nil {
			if e, ok := perr.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", perr)
			}
		}
	}()

	conf = DefaultAlignerConf
	csvReader := csv.NewReader(r)
	csvReader.Comma = ':'
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = 2
	csvReader.TrimLeadingSpace = true

	lines, err := csvReader.ReadAll()
	if err != nil {
		return conf, err
	}

	for _, line := range lines {
		atoi := func() int {
			i64, err := strconv.ParseInt(line[1], 10, 32)
			if err != nil {
				panic(err)
			}
			return int(i64)
		}
		atof := func() float64 {
			f, err := strconv.ParseFloat(line[1], 64)
			if err != nil {
				panic(err)
			}
			return f
		}
		atob := func() bool {
			b, err := strconv.ParseBool(line[1])
			if err != nil {
				panic(err)
			}
			return b
		}
		switch line[0] {
		case "MatchFlavor":
			conf.MatchFlavor = MatchFlavor(atoi())
		case "MinLen":
			conf.MinLen = atoi()
		case "Orientation":
			conf.Orientation = Orientation(atoi())
		case "FixedSeparation":
			conf.FixedSeparation = atoi()
		case "MaxSeparation":
			conf.MaxSeparation = atoi()
		case "SeparationFactor":
			conf.SeparationFactor = atof()
		case "MinOutputScore":
			conf.MinOutputScore = atoi()
		case "UseExtent":
			conf.UseExtent = atob()
		case "DoDelta":
			conf.DoDelta = atob()
		case "DoExtend":
			conf.DoExtend = atob()
		case "ToSeqEnd":
			conf.ToSeqEnd = atob()
		case "DoShadows":
			conf.DoShadows = atob()
		case "BreakLen":
			conf.BreakLen = atoi()
		case "Banding":
			conf.Banding = atoi()
		case "SparseK":
			conf.SparseK = atoi()
		case "SparseMult":
			conf.SparseMult = atoi()
		default:
			return conf, fmt.Errorf("invalid AlignerConf field: %s", line[0])
		}
	}
	return conf, nil
}

// Write serializes conf in the same colon-delimited format LoadAlignerConf reads.
func (c AlignerConf) Write(w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ':'

	s := func(i int) string { return fmt.Sprintf("%d", i) }
	records := [][]string{
		{"MatchFlavor", s(int(c.MatchFlavor))},
		{"MinLen", s(c.MinLen)},
		{"Orientation", s(int(c.Orientation))},
		{"FixedSeparation", s(c.FixedSeparation)},
		{"MaxSeparation", s(c.MaxSeparation)},
		{"SeparationFactor", fmt.Sprintf("%g", c.SeparationFactor)},
		{"MinOutputScore", s(c.MinOutputScore)},
		{"UseExtent", fmt.Sprintf("%t", c.UseExtent)},
		{"DoDelta", fmt.Sprintf("%t", c.DoDelta)},
		{"DoExtend", fmt.Sprintf("%t", c.DoExtend)},
		{"ToSeqEnd", fmt.Sprintf("%t", c.ToSeqEnd)},
		{"DoShadows", fmt.Sprintf("%t", c.DoShadows)},
		{"BreakLen", s(c.BreakLen)},
		{"Banding", s(c.Banding)},
		{"SparseK", s(c.SparseK)},
		{"SparseMult", s(c.SparseMult)},
	}
	if err := csvWriter.WriteAll(records); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// FlagMerge reconciles flagConf (built from command-line-style
// overrides) against fileConf (loaded from a saved index). For MinLen,
// Orientation, FixedSeparation, MaxSeparation, SeparationFactor,
// MinOutputScore and BreakLen it keeps the saved value unless
// explicitlySet names the field; SparseK and SparseMult always come
// from fileConf (an explicitly set SparseK is an error); every other
// field keeps flagConf's value. Mirrors DBConf.FlagMerge's flag.Visit pattern, generalized to
// accept the "set" set directly rather than requiring the global flag
// package, since §1 treats CLI/flag handling as out of scope.
func (flagConf AlignerConf) FlagMerge(fileConf AlignerConf, explicitlySet map[string]bool) (AlignerConf, error) {
	if explicitlySet["SparseK"] {
		return flagConf, fmt.Errorf("the sparse K cannot be changed for an existing index")
	}
	merged := flagConf
	if !explicitlySet["MinLen"] {
		merged.MinLen = fileConf.MinLen
	}
	if !explicitlySet["Orientation"] {
		merged.Orientation = fileConf.Orientation
	}
	if !explicitlySet["FixedSeparation"] {
		merged.FixedSeparation = fileConf.FixedSeparation
	}
	if !explicitlySet["MaxSeparation"] {
		merged.MaxSeparation = fileConf.MaxSeparation
	}
	if !explicitlySet["SeparationFactor"] {
		merged.SeparationFactor = fileConf.SeparationFactor
	}
	if !explicitlySet["MinOutputScore"] {
		merged.MinOutputScore = fileConf.MinOutputScore
	}
	if !explicitlySet["BreakLen"] {
		merged.BreakLen = fileConf.BreakLen
	}
	merged.SparseK = fileConf.SparseK
	merged.SparseMult = fileConf.SparseMult
	return merged, nil
}

// ExplicitlySetFlags returns the set of flag names the caller actually
// passed on the command line, for use with FlagMerge. Kept separate
// from flag parsing itself (out of scope per §1) so pipeline callers
// that don't use the flag package at all can build this set themselves.
func ExplicitlySetFlags(fs *flag.FlagSet) map[string]bool {
	only := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { only[f.Name] = true })
	return only
}
