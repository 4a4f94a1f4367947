package vcf

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/inodb/vibe-variants/internal/variant"
)

// alleleCounts holds the standard allele count INFO fields. AC and AF have
// one value per alternate allele of the original line.
type alleleCounts struct {
	AC []int     `mapstructure:"AC"`
	AN int       `mapstructure:"AN"`
	AF []float64 `mapstructure:"AF"`
}

// splitListHook splits comma-separated INFO values destined for slices.
func splitListHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, ","), nil
}

// decodeCounts reads AC, AN and AF from info. It reports false when AN is
// absent or any of the values cannot be read.
func decodeCounts(info map[string]interface{}) (alleleCounts, bool) {
	var c alleleCounts
	if an, ok := info["AN"].(string); !ok || an == Missing {
		return c, false
	}

	input := make(map[string]interface{}, 3)
	for _, k := range []string{"AC", "AN", "AF"} {
		if val, ok := info[k].(string); ok && val != Missing {
			input[k] = val
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       splitListHook,
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return c, false
	}
	if err := dec.Decode(input); err != nil {
		return c, false
	}
	return c, c.AN > 0
}

// alleleStats computes the statistics of alternate v.AltIndex over all
// samples of the line. Allele counts come from INFO AC/AN/AF when present
// and from the sample genotypes otherwise. It returns nil when neither
// source is available.
func alleleStats(v *Variant, samples []map[string]string, ref, alt string) *variant.Statistics {
	st := &variant.Statistics{RefAllele: ref, AltAllele: alt}

	gt, hasGT := genotypeTally(samples, v.AltIndex)
	if hasGT {
		st.GenotypeCounts = gt.counts
		st.MissingAlleles = gt.missingAlleles
		st.MissingGenotypes = gt.missingGenotypes
		st.MGF, st.MGFGenotype = minorGenotype(gt.counts, gt.called)
	}

	var an, refCount, altCount int
	altFreq := -1.0
	if c, ok := decodeCounts(v.Info); ok && v.AltIndex < len(c.AC) {
		sum := 0
		for _, n := range c.AC {
			sum += n
		}
		an = c.AN
		altCount = c.AC[v.AltIndex]
		refCount = max(c.AN-sum, 0)
		if v.AltIndex < len(c.AF) {
			altFreq = c.AF[v.AltIndex]
		}
	} else if hasGT && gt.alleles > 0 {
		an = gt.alleles
		refCount = gt.ref
		altCount = gt.alt
	} else if !hasGT {
		return nil
	}

	if an > 0 {
		st.RefAlleleCount = refCount
		st.AltAlleleCount = altCount
		st.RefAlleleFreq = float64(refCount) / float64(an)
		st.AltAlleleFreq = float64(altCount) / float64(an)
		if altFreq >= 0 {
			st.AltAlleleFreq = altFreq
		}
		st.MAF, st.MAFAllele = st.RefAlleleFreq, ref
		if st.AltAlleleFreq < st.RefAlleleFreq {
			st.MAF, st.MAFAllele = st.AltAlleleFreq, alt
		}
	}
	return st
}

type genotypes struct {
	counts           map[string]int
	called           int // genotypes with at least one called allele
	alleles          int // called alleles
	ref, alt         int
	missingAlleles   int
	missingGenotypes int
}

// genotypeTally counts the GT values of samples. Allele index altIndex+1 is
// the alternate of interest; other alternates count toward the called
// alleles only.
func genotypeTally(samples []map[string]string, altIndex int) (genotypes, bool) {
	g := genotypes{counts: make(map[string]int)}
	want := strconv.Itoa(altIndex + 1)
	seen := false

	for _, s := range samples {
		gt, ok := s["GT"]
		if !ok {
			continue
		}
		seen = true
		g.counts[gt]++

		alleles := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
		missing := 0
		for _, a := range alleles {
			switch a {
			case Missing:
				missing++
				continue
			case "0":
				g.ref++
			case want:
				g.alt++
			}
			g.alleles++
		}
		g.missingAlleles += missing
		if missing == len(alleles) {
			g.missingGenotypes++
		} else {
			g.called++
		}
	}
	return g, seen
}

// minorGenotype returns the frequency and value of the least frequent called
// genotype. Ties go to the lexically smallest genotype.
func minorGenotype(counts map[string]int, called int) (float64, string) {
	if called == 0 {
		return 0, ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if strings.Trim(k, "./|") == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return 0, ""
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] < counts[best] {
			best = k
		}
	}
	return float64(counts[best]) / float64(called), best
}
