package maf

import (
	"strings"

	"github.com/inodb/vibe-variants/internal/variant"
	"github.com/inodb/vibe-variants/internal/vcf"
)

// Cross-reference sources of MAF annotation columns.
const (
	SourceHGNC    = "HGNC"
	SourceEnsembl = "Ensembl"
)

// Converter turns parsed MAF lines into variant records reported by one
// file of one study.
type Converter struct {
	FileID  string
	StudyID string
}

// Convert returns the record of one MAF line. Insertions are moved to the
// base after Start_Position, which MAF uses as the flanking base. The gene
// symbol and transcript become cross-references, the consequence terms SO
// accessions and the short protein change an HGVS entry.
func (c *Converter) Convert(v *vcf.Variant) ([]*variant.Variant, error) {
	if v == nil {
		return nil, variant.ErrInvalidRecord
	}

	ref := strings.ToUpper(v.Ref)
	alt := strings.ToUpper(v.Alt)
	start := v.Pos
	if ref == "" && alt != "" {
		start++
	}

	rec := variant.New(v.NormalizeChrom(), start, ref, alt)
	rec.IDs = v.IDs()

	info := func(k string) string {
		s, _ := v.Info[k].(string)
		return s
	}

	annot := &variant.Annotation{SOAccessions: SOAccessions(info(ColConsequence))}
	if g := info(ColHugoSymbol); g != "" && g != "Unknown" {
		annot.XRefs = append(annot.XRefs, variant.XRef{ID: g, Source: SourceHGNC})
	}
	if tx := info(ColTranscriptID); tx != "" {
		annot.XRefs = append(annot.XRefs, variant.XRef{ID: tx, Source: SourceEnsembl})
	}
	if len(annot.XRefs) > 0 || len(annot.SOAccessions) > 0 {
		rec.Annotation = annot
	}
	if p := info(ColHGVSpShort); p != "" && p != vcf.Missing {
		rec.HGVS = []string{p}
	}

	attrs := make(map[string]string, len(v.Info))
	for k, val := range v.Info {
		if s, ok := val.(string); ok {
			attrs[k] = s
		}
	}

	rec.AddSourceEntry(&variant.SourceEntry{
		FileID:     c.FileID,
		StudyID:    c.StudyID,
		Attributes: attrs,
	})
	return []*variant.Variant{rec}, nil
}
