// Package variant provides the variant data model, the variant type
// classifier and the canonical key used to merge evidence across sources.
package variant

import (
	"strconv"
	"strings"
)

// Variant represents a single genomic variant reported by one source.
type Variant struct {
	Chromosome string // Chromosome name (e.g., "12", "X")
	Start      int64  // 1-based start position
	End        int64  // 1-based end position (inclusive)
	Reference  string // Reference allele, empty for insertions
	Alternate  string // Alternate allele, empty for deletions
	Length     int64  // Span of the variant, derived from coordinates and alleles
	Type       Type   // Derived classification

	IDs        []string
	HGVS       []string
	Annotation *Annotation

	SourceEntries []*SourceEntry
}

// SourceEntry is the evidence one file of one study contributes for a variant.
type SourceEntry struct {
	FileID              string
	StudyID             string
	SecondaryAlternates []string
	Attributes          map[string]string
	Format              string
	SamplesData         []map[string]string
	CohortStats         map[string]*Statistics
}

// Statistics holds per-cohort aggregate values for a variant within one source.
type Statistics struct {
	RefAllele        string
	AltAllele        string
	RefAlleleCount   int
	AltAlleleCount   int
	RefAlleleFreq    float64
	AltAlleleFreq    float64
	MissingAlleles   int
	MissingGenotypes int
	MAF              float64
	MGF              float64
	MAFAllele        string
	MGFGenotype      string
	GenotypeCounts   map[string]int
}

// XRef is a cross-reference to an external database entry.
type XRef struct {
	ID     string
	Source string
}

// Annotation holds the supplementary identifiers indexed with a variant.
type Annotation struct {
	XRefs        []XRef
	SOAccessions []int
}

// New creates a variant at the given position. End and Length are derived
// from the alleles.
func New(chrom string, start int64, ref, alt string) *Variant {
	v := &Variant{
		Chromosome: chrom,
		Start:      start,
		Reference:  ref,
		Alternate:  alt,
	}
	v.UpdateSpan()
	return v
}

// UpdateSpan recomputes End and Length from Start and the alleles.
func (v *Variant) UpdateSpan() {
	n := int64(max(len(v.Reference), len(v.Alternate)))
	if n == 0 {
		v.End = v.Start
		v.Length = 0
		return
	}
	if v.Reference == "" {
		// insertions span zero reference bases
		v.End = v.Start
	} else {
		v.End = v.Start + int64(len(v.Reference)) - 1
	}
	v.Length = n
}

// AddSourceEntry appends evidence for this variant.
func (v *Variant) AddSourceEntry(e *SourceEntry) {
	v.SourceEntries = append(v.SourceEntries, e)
}

// SourceEntry returns the entry for a file and study, or nil.
func (v *Variant) SourceEntry(fileID, studyID string) *SourceEntry {
	for _, e := range v.SourceEntries {
		if e.FileID == fileID && e.StudyID == studyID {
			return e
		}
	}
	return nil
}

// Normalize removes bases shared by the reference and alternate alleles,
// trimming the leading context first and the trailing context second. Start
// is shifted by the number of leading bases removed. Alleles carrying
// symbolic content are left untouched.
func (v *Variant) Normalize() {
	if !isNucleotides(v.Reference) || !isNucleotides(v.Alternate) || v.Reference == v.Alternate {
		return
	}

	ref, alt := v.Reference, v.Alternate

	lead := 0
	for lead < len(ref) && lead < len(alt) && ref[lead] == alt[lead] {
		lead++
	}
	ref, alt = ref[lead:], alt[lead:]

	trail := 0
	for trail < len(ref) && trail < len(alt) && ref[len(ref)-1-trail] == alt[len(alt)-1-trail] {
		trail++
	}
	ref, alt = ref[:len(ref)-trail], alt[:len(alt)-trail]

	v.Start += int64(lead)
	v.Reference = ref
	v.Alternate = alt
	v.UpdateSpan()
}

// String returns a chrom:pos:ref:alt representation for logs.
func (v *Variant) String() string {
	var b strings.Builder
	b.WriteString(v.Chromosome)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(v.Start, 10))
	b.WriteByte(':')
	b.WriteString(v.Reference)
	b.WriteByte(':')
	b.WriteString(v.Alternate)
	return b.String()
}

func isNucleotides(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}
