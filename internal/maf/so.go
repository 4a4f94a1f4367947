package maf

import "strings"

// soAccessions maps Sequence Ontology consequence terms to their accession
// numbers (SO:0001583 is stored as 1583).
var soAccessions = map[string]int{
	"transcript_ablation":                 1893,
	"splice_acceptor_variant":             1574,
	"splice_donor_variant":                1575,
	"stop_gained":                         1587,
	"frameshift_variant":                  1589,
	"stop_lost":                           1578,
	"start_lost":                          2012,
	"inframe_insertion":                   1821,
	"inframe_deletion":                    1822,
	"missense_variant":                    1583,
	"protein_altering_variant":            1818,
	"splice_region_variant":               1630,
	"incomplete_terminal_codon_variant":   1626,
	"stop_retained_variant":               1567,
	"synonymous_variant":                  1819,
	"coding_sequence_variant":             1580,
	"mature_miRNA_variant":                1620,
	"5_prime_UTR_variant":                 1623,
	"3_prime_UTR_variant":                 1624,
	"non_coding_transcript_exon_variant":  1792,
	"intron_variant":                      1627,
	"NMD_transcript_variant":              1621,
	"non_coding_transcript_variant":       1619,
	"upstream_gene_variant":               1631,
	"downstream_gene_variant":             1632,
	"regulatory_region_variant":           1566,
	"intergenic_variant":                  1628,
}

// SOAccessions returns the accessions of the known terms in a consequence
// column. Terms may be separated by ',' or '&'; duplicates and unknown terms
// are dropped.
func SOAccessions(consequence string) []int {
	if consequence == "" {
		return nil
	}
	terms := strings.FieldsFunc(consequence, func(r rune) bool { return r == ',' || r == '&' })

	var out []int
	seen := make(map[int]bool, len(terms))
	for _, t := range terms {
		acc, ok := soAccessions[strings.TrimSpace(t)]
		if !ok || seen[acc] {
			continue
		}
		seen[acc] = true
		out = append(out, acc)
	}
	return out
}
