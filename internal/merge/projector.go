package merge

import (
	"sort"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/variant"
)

// Evidence is what one record contributes to the evidence sets of its document.
type Evidence struct {
	Files []document.Source
	Stats []document.Stats
}

// Project converts the source entries of v into evidence sub-documents.
// Sample data is dropped unless includeSamples is set; format, attributes and
// secondary alternates are always kept. No statistics are produced unless
// includeStats is set. Asking for statistics of a variant without source
// entries returns the (empty) evidence and a *variant.MissingSourceEntryError.
func Project(v *variant.Variant, includeSamples, includeStats bool) (Evidence, error) {
	var ev Evidence
	if v == nil {
		return ev, variant.ErrInvalidRecord
	}

	for _, e := range v.SourceEntries {
		if e == nil {
			continue
		}
		ev.Files = append(ev.Files, projectSource(e, includeSamples))
		if includeStats {
			ev.Stats = append(ev.Stats, projectStats(e)...)
		}
	}

	if includeStats && len(ev.Files) == 0 {
		return ev, &variant.MissingSourceEntryError{Variant: v.String()}
	}
	return ev, nil
}

func projectSource(e *variant.SourceEntry, includeSamples bool) document.Source {
	src := document.Source{
		FileID:     e.FileID,
		StudyID:    e.StudyID,
		Format:     e.Format,
		Attributes: escapeAttrs(e.Attributes),
	}
	if len(e.SecondaryAlternates) > 0 {
		src.Alternates = append([]string(nil), e.SecondaryAlternates...)
	}
	if includeSamples && len(e.SamplesData) > 0 {
		src.Samples = make([]document.Attrs, len(e.SamplesData))
		for i, s := range e.SamplesData {
			src.Samples[i] = escapeAttrs(s)
		}
	}
	return src
}

// projectStats returns one statistics sub-document per cohort, ordered by
// cohort name.
func projectStats(e *variant.SourceEntry) []document.Stats {
	if len(e.CohortStats) == 0 {
		return nil
	}

	cohorts := make([]string, 0, len(e.CohortStats))
	for c := range e.CohortStats {
		cohorts = append(cohorts, c)
	}
	sort.Strings(cohorts)

	out := make([]document.Stats, 0, len(cohorts))
	for _, c := range cohorts {
		s := e.CohortStats[c]
		if s == nil {
			continue
		}
		st := document.Stats{
			StudyID:          e.StudyID,
			FileID:           e.FileID,
			CohortID:         c,
			MAF:              s.MAF,
			MGF:              s.MGF,
			MAFAllele:        s.MAFAllele,
			MGFGenotype:      s.MGFGenotype,
			MissingAlleles:   s.MissingAlleles,
			MissingGenotypes: s.MissingGenotypes,
			RefAllele:        s.RefAllele,
			AltAllele:        s.AltAllele,
			RefAlleleCount:   s.RefAlleleCount,
			AltAlleleCount:   s.AltAlleleCount,
			RefAlleleFreq:    s.RefAlleleFreq,
			AltAlleleFreq:    s.AltAlleleFreq,
		}
		if len(s.GenotypeCounts) > 0 {
			st.GenotypeCounts = make(document.Counts, len(s.GenotypeCounts))
			for gt, n := range s.GenotypeCounts {
				st.GenotypeCounts[document.EscapeKey(gt)] = n
			}
		}
		out = append(out, st)
	}
	return out
}

func escapeAttrs(m map[string]string) document.Attrs {
	if len(m) == 0 {
		return nil
	}
	out := make(document.Attrs, len(m))
	for k, v := range m {
		out[document.EscapeKey(k)] = v
	}
	return out
}

// Canonical returns the source-independent fields of v.
func Canonical(v *variant.Variant) document.Canonical {
	c := document.Canonical{
		Chromosome: v.Chromosome,
		Start:      v.Start,
		End:        v.End,
		Length:     v.Length,
		Reference:  v.Reference,
		Alternate:  v.Alternate,
		Type:       v.Type.String(),
	}
	if len(v.IDs) > 0 {
		c.IDs = append([]string(nil), v.IDs...)
	}
	if len(v.HGVS) > 0 {
		c.HGVS = append([]string(nil), v.HGVS...)
	}
	if a := v.Annotation; a != nil && (len(a.XRefs) > 0 || len(a.SOAccessions) > 0) {
		annot := &document.Annotation{}
		for _, x := range a.XRefs {
			annot.XRefs = append(annot.XRefs, document.XRef{ID: x.ID, Source: x.Source})
		}
		if len(a.SOAccessions) > 0 {
			annot.SOAccessions = append([]int(nil), a.SOAccessions...)
		}
		c.Annotation = annot
	}
	return c
}
