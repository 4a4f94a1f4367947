package variant

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// MaxKeyAlleleLength is the allele length from which BuildKey replaces the
// allele by its SHA-1 digest.
const MaxKeyAlleleLength = 50

// BuildKey returns the canonical identity of a variant: chrom_start_ref_alt.
// Equal inputs always produce equal keys, across processes and releases, so
// the key is used as the primary key of the stored document.
func BuildKey(chromosome string, start int64, reference, alternate string) string {
	var b strings.Builder
	b.Grow(len(chromosome) + 24 + min(len(reference), 40) + min(len(alternate), 40))
	b.WriteString(chromosome)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(start, 10))
	b.WriteByte('_')
	b.WriteString(keyAllele(reference))
	b.WriteByte('_')
	b.WriteString(keyAllele(alternate))
	return b.String()
}

// Key returns the canonical key of v.
func (v *Variant) Key() string {
	return BuildKey(v.Chromosome, v.Start, v.Reference, v.Alternate)
}

func keyAllele(allele string) string {
	if allele == "-" {
		return ""
	}
	if len(allele) < MaxKeyAlleleLength {
		return allele
	}
	sum := sha1.Sum([]byte(allele))
	return hex.EncodeToString(sum[:])
}
