package vcf

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-variants/internal/variant"
)

// Attribute keys added next to the INFO fields of a source entry.
const (
	AttrQual   = "QUAL"
	AttrFilter = "FILTER"
	AttrSource = "src"
)

// CohortAll is the cohort holding statistics over every sample of a file.
const CohortAll = "ALL"

// Converter turns parsed VCF lines into variant records reported by one
// file of one study.
type Converter struct {
	FileID  string
	StudyID string

	// IncludeSource keeps the original data line as the "src" attribute.
	IncludeSource bool
}

// Convert returns one record per alternate allele of v. Alleles are
// upper-cased and normalized; reference-only lines (ALT ".") produce no
// records. The records are not classified.
func (c *Converter) Convert(v *Variant) ([]*variant.Variant, error) {
	if v == nil {
		return nil, variant.ErrInvalidRecord
	}
	if v.Alt == Missing || v.Alt == "" {
		return nil, nil
	}

	splits := SplitMultiAllelic(v)
	out := make([]*variant.Variant, 0, len(splits))
	for _, s := range splits {
		out = append(out, c.convertOne(s))
	}
	return out, nil
}

func (c *Converter) convertOne(v *Variant) *variant.Variant {
	ref := strings.ToUpper(v.Ref)
	alt := strings.ToUpper(v.Alt)

	rec := variant.New(v.NormalizeChrom(), v.Pos, ref, alt)
	rec.Normalize()
	rec.IDs = v.IDs()

	entry := &variant.SourceEntry{
		FileID:      c.FileID,
		StudyID:     c.StudyID,
		Attributes:  c.attributes(v),
		Format:      v.Format,
		SamplesData: v.SampleData(),
	}
	if len(v.SecondaryAlts) > 0 {
		entry.SecondaryAlternates = make([]string, len(v.SecondaryAlts))
		for i, a := range v.SecondaryAlts {
			entry.SecondaryAlternates[i] = strings.ToUpper(a)
		}
	}

	if st := alleleStats(v, entry.SamplesData, ref, alt); st != nil {
		entry.CohortStats = map[string]*variant.Statistics{CohortAll: st}
	}

	rec.AddSourceEntry(entry)
	return rec
}

// attributes flattens INFO into strings. Flags get an empty value.
func (c *Converter) attributes(v *Variant) map[string]string {
	attrs := make(map[string]string, len(v.Info)+3)
	for k, val := range v.Info {
		switch val := val.(type) {
		case string:
			attrs[k] = val
		case bool:
			attrs[k] = ""
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	if v.Qual != "" {
		attrs[AttrQual] = v.Qual
	}
	if v.Filter != "" {
		attrs[AttrFilter] = v.Filter
	}
	if c.IncludeSource && v.Line != "" {
		attrs[AttrSource] = v.Line
	}
	return attrs
}
