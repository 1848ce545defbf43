package sparsesa

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/ndaniels/mumcore"
)

// Sibling file suffixes for IndexCodec persistence (§4.2, §6).
const (
	extAux   = ".aux"
	extSA    = ".sa"
	extISA   = ".isa"
	extLCP   = ".lcp"
	extChild = ".child"
	extKmer  = ".kmer"
)

// auxFlags mirrors the "flags(4-col, has_suf, has_child, has_kmer)"
// fixed-width header field (§4.2).
type auxFlags struct {
	HasSuffixLinks bool
	HasChild       bool
	HasKmer        bool
}

func (f auxFlags) pack() uint32 {
	var v uint32
	if f.HasSuffixLinks {
		v |= 1
	}
	if f.HasChild {
		v |= 2
	}
	if f.HasKmer {
		v |= 4
	}
	return v
}

func unpackFlags(v uint32) auxFlags {
	return auxFlags{
		HasSuffixLinks: v&1 != 0,
		HasChild:       v&2 != 0,
		HasKmer:        v&4 != 0,
	}
}

// auxHeader is the fixed-width little-endian record written to
// "<prefix>.aux" (§4.2).
type auxHeader struct {
	N               int64
	K               int64
	LogN            int64
	NKMinus1        int64
	Flags           uint32
	KmerSize        int64
	SparseMult      int64
	NucleotidesOnly uint32
}

// Save writes idx to the sibling files "<prefix>.aux", ".sa", ".isa",
// ".lcp", and, when present, ".child"/".kmer". Grounded directly on
// _examples/ndaniels-MICA/db.go's NewDB/openDbFile and coarse.go's
// encoding/binary + compress/gzip persistence, generalized from
// cablastp's link/seed streams to this module's SA/ISA/LCP/CHILD/KMER
// arrays.
func Save(idx *Index, prefix string) error {
	nkm1 := int64(idx.size - 1)
	if idx.size == 0 {
		nkm1 = 0
	}
	header := auxHeader{
		N:        idx.Seq.Len(),
		K:        int64(idx.K),
		LogN:     int64(idx.logN),
		NKMinus1: nkm1,
		Flags: auxFlags{
			HasSuffixLinks: idx.opts.SuffixLinks,
			HasChild:       idx.Child != nil,
			HasKmer:        idx.Kmer != nil,
		}.pack(),
		KmerSize:   int64(idx.kmerSize),
		SparseMult: 1,
	}
	if idx.nucleotidesOnly {
		header.NucleotidesOnly = 1
	}

	if err := writeAux(prefix+extAux, header); err != nil {
		return mumcore.NewConstructionError("sparsesa.Save(aux)", err)
	}
	if err := writeCellArray(prefix+extSA, idx.SA); err != nil {
		return mumcore.NewConstructionError("sparsesa.Save(sa)", err)
	}
	if err := writeCellArray(prefix+extISA, idx.ISA); err != nil {
		return mumcore.NewConstructionError("sparsesa.Save(isa)", err)
	}
	if err := writeLCP(prefix+extLCP, idx.LCP); err != nil {
		return mumcore.NewConstructionError("sparsesa.Save(lcp)", err)
	}
	if idx.Child != nil {
		if err := writeSnappyCellArray(prefix+extChild, idx.Child); err != nil {
			return mumcore.NewConstructionError("sparsesa.Save(child)", err)
		}
	}
	if idx.Kmer != nil {
		if err := writeSnappyKmer(prefix+extKmer, idx.Kmer); err != nil {
			return mumcore.NewConstructionError("sparsesa.Save(kmer)", err)
		}
	}
	return nil
}

// Load reconstructs an Index from files sharing prefix, binding seq as
// the reference they were built against. Load must verify the aux
// invariants (N matches seq.Len(), the serialized cell width agrees
// with N/K) before binding arrays; a mismatch is input-fatal (§6).
func Load(prefix string, seq *mumcore.BoundedSequence) (*Index, error) {
	header, err := readAux(prefix + extAux)
	if err != nil {
		return nil, mumcore.NewInputError("sparsesa.Load(aux)", err)
	}
	if header.N != seq.Len() {
		return nil, mumcore.NewInputError("sparsesa.Load",
			fmt.Errorf("index was built for N=%d, but the bound sequence has N=%d",
				header.N, seq.Len()))
	}

	flags := unpackFlags(header.Flags)
	size := int(header.N / header.K)

	idx := &Index{
		Seq:             seq,
		K:               int(header.K),
		size:            size,
		logN:            int(header.LogN),
		nucleotidesOnly: header.NucleotidesOnly != 0,
		kmerSize:        int(header.KmerSize),
		opts: Options{
			SuffixLinks: flags.HasSuffixLinks,
			ChildTable:  flags.HasChild,
			KmerTable:   flags.HasKmer,
			KmerSize:    int(header.KmerSize),
		},
	}

	idx.SA, err = readCellArray(prefix+extSA, size)
	if err != nil {
		return nil, mumcore.NewInputError("sparsesa.Load(sa)", err)
	}
	idx.ISA, err = readCellArray(prefix+extISA, size)
	if err != nil {
		return nil, mumcore.NewInputError("sparsesa.Load(isa)", err)
	}
	idx.LCP, err = readLCP(prefix+extLCP, size)
	if err != nil {
		return nil, mumcore.NewInputError("sparsesa.Load(lcp)", err)
	}
	if flags.HasChild {
		idx.Child, err = readSnappyCellArray(prefix + extChild)
		if err != nil {
			return nil, mumcore.NewInputError("sparsesa.Load(child)", err)
		}
	}
	if flags.HasKmer {
		idx.Kmer, err = readSnappyKmer(prefix + extKmer)
		if err != nil {
			return nil, mumcore.NewInputError("sparsesa.Load(kmer)", err)
		}
	}
	return idx, nil
}

func writeAux(path string, h auxHeader) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create aux file")
	}
	defer f.Close()
	return binary.Write(f, binary.LittleEndian, h)
}

func readAux(path string) (auxHeader, error) {
	var h auxHeader
	f, err := os.Open(path)
	if err != nil {
		return h, errors.Wrap(err, "open aux file")
	}
	defer f.Close()
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return h, errors.Wrap(err, "decode aux header")
	}
	return h, nil
}

// writeCellArray writes "size (usize), isSmall (usize)" followed by
// either the 32-bit cells or the packed low/high streams, per §4.2.
func writeCellArray(path string, c *CellArray) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create cell array file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	isSmall := uint64(0)
	if c.IsSmall() {
		isSmall = 1
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(c.Len())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, isSmall); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.lo); err != nil {
		return err
	}
	if !c.small {
		if err := binary.Write(w, binary.LittleEndian, c.hi); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readCellArray(path string, expectedSize int) (*CellArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open cell array file")
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var size, isSmall uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &isSmall); err != nil {
		return nil, err
	}
	if int(size) != expectedSize {
		return nil, fmt.Errorf("cell array size mismatch: file has %d cells, index expects %d", size, expectedSize)
	}
	if (isSmall == 1) != (int64(size) < int64(1)<<32) {
		return nil, fmt.Errorf("cell array width mismatch: isSmall=%d for %d cells", isSmall, size)
	}
	c := NewCellArray(int(size), isSmall == 1)
	if err := binary.Read(r, binary.LittleEndian, c.lo); err != nil {
		return nil, err
	}
	if !c.small {
		if err := binary.Read(r, binary.LittleEndian, c.hi); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// writeLCP writes the byte-wide cell vector plus the overflow table of
// (index, value) pairs, gzip-compressed as the teacher's coarse.go
// compresses its own binary streams.
func writeLCP(path string, l *LCPArray) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create lcp file")
	}
	defer f.Close()
	gz, _ := gzip.NewWriterLevel(f, gzip.BestSpeed)

	if err := binary.Write(gz, binary.LittleEndian, uint64(len(l.cells))); err != nil {
		return err
	}
	if _, err := gz.Write(l.cells); err != nil {
		return err
	}
	if err := binary.Write(gz, binary.LittleEndian, uint64(len(l.overflow))); err != nil {
		return err
	}
	for _, e := range l.overflow {
		if err := binary.Write(gz, binary.LittleEndian, int64(e.index)); err != nil {
			return err
		}
		if err := binary.Write(gz, binary.LittleEndian, e.value); err != nil {
			return err
		}
	}
	return gz.Close()
}

func readLCP(path string, expectedSize int) (*LCPArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open lcp file")
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var n uint64
	if err := binary.Read(gz, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if int(n) != expectedSize {
		return nil, fmt.Errorf("lcp array width mismatch: file has %d cells, index expects %d", n, expectedSize)
	}
	l := NewLCPArray(int(n))
	if _, err := ioReadFull(gz, l.cells); err != nil {
		return nil, err
	}
	var overflowCount uint64
	if err := binary.Read(gz, binary.LittleEndian, &overflowCount); err != nil {
		return nil, err
	}
	l.overflow = make([]lcpOverflowEntry, overflowCount)
	for i := range l.overflow {
		var index, value int64
		if err := binary.Read(gz, binary.LittleEndian, &index); err != nil {
			return nil, err
		}
		if err := binary.Read(gz, binary.LittleEndian, &value); err != nil {
			return nil, err
		}
		l.overflow[i] = lcpOverflowEntry{index: int(index), value: value}
	}
	return l, nil
}

// writeSnappyCellArray persists the optional CHILD table snappy-block
// compressed, rather than gzip, since the child table is larger and
// less compressible per-entry than the required arrays (other_examples'
// kshedden/muscato uses snappy for its own bulk k-mer index for the
// same reason: lower compression ratio traded for much faster
// decompression on load).
func writeSnappyCellArray(path string, c *CellArray) error {
	raw := cellArrayRawBytes(c)
	return os.WriteFile(path, snappy.Encode(nil, raw), 0644)
}

func readSnappyCellArray(path string) (*CellArray, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open child file")
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decode snappy child table")
	}
	return cellArrayFromRawBytes(raw)
}

func writeSnappyKmer(path string, kmer []Interval) error {
	buf := make([]byte, 8*len(kmer))
	for i, iv := range kmer {
		binary.LittleEndian.PutUint32(buf[i*8:], uint32(iv.Lo))
		binary.LittleEndian.PutUint32(buf[i*8+4:], uint32(iv.Hi))
	}
	return os.WriteFile(path, snappy.Encode(nil, buf), 0644)
}

func readSnappyKmer(path string) ([]Interval, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open kmer file")
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decode snappy kmer table")
	}
	n := len(raw) / 8
	kmer := make([]Interval, n)
	for i := range kmer {
		kmer[i] = Interval{
			Lo: int(binary.LittleEndian.Uint32(raw[i*8:])),
			Hi: int(binary.LittleEndian.Uint32(raw[i*8+4:])),
		}
	}
	return kmer, nil
}

func cellArrayRawBytes(c *CellArray) []byte {
	n := c.Len()
	header := 8
	width := 4
	if !c.small {
		width = 6
	}
	buf := make([]byte, header+width*n)
	if c.small {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(n))
	off := header
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[off:], c.lo[i])
		off += 4
		if !c.small {
			binary.LittleEndian.PutUint16(buf[off:], uint16(c.hi[i]))
			off += 2
		}
	}
	return buf
}

func cellArrayFromRawBytes(buf []byte) (*CellArray, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("truncated cell array blob")
	}
	small := buf[0] == 1
	n := int(binary.LittleEndian.Uint32(buf[4:]))
	c := NewCellArray(n, small)
	off := 8
	for i := 0; i < n; i++ {
		c.lo[i] = binary.LittleEndian.Uint32(buf[off:])
		off += 4
		if !small {
			c.hi[i] = int16(binary.LittleEndian.Uint16(buf[off:]))
			off += 2
		}
	}
	return c, nil
}

func ioReadFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
