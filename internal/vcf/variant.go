// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Missing is the VCF placeholder for an absent value.
const Missing = "."

// Variant represents a single data line of a VCF file.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifiers, ';'-separated (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Alternate allele (single allele after splitting)
	Qual   string                 // Quality score as written, "." if missing
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
	Format string                 // FORMAT column, empty without samples
	Samples []string              // Raw per-sample columns

	// Set by SplitMultiAllelic.
	AltIndex      int      // position of Alt in the original ALT column
	SecondaryAlts []string // the other alternates of the original line

	Line string // the data line as read
}

// IDs returns the identifiers of the ID column.
func (v *Variant) IDs() []string {
	if v.ID == "" || v.ID == Missing {
		return nil
	}
	return strings.Split(v.ID, ";")
}

// NormalizeChrom returns the chromosome name without "chr" prefix, so UCSC
// and Ensembl style inputs produce the same keys.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// SampleData splits every sample column by the FORMAT keys.
func (v *Variant) SampleData() []map[string]string {
	if v.Format == "" || len(v.Samples) == 0 {
		return nil
	}
	keys := strings.Split(v.Format, ":")

	out := make([]map[string]string, len(v.Samples))
	for i, col := range v.Samples {
		vals := strings.Split(col, ":")
		m := make(map[string]string, len(keys))
		for j, k := range keys {
			if j < len(vals) {
				m[k] = vals[j]
			} else {
				// Trailing fields may be dropped.
				m[k] = Missing
			}
		}
		out[i] = m
	}
	return out
}
