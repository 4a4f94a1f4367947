// Package document defines the layout of the canonical variant document as
// persisted by every store backend.
//
// A document holds the source-independent fields of a variant, written once
// when the document is created, plus two ever-growing evidence sets: one
// source sub-document per (file, study) that reported the variant and one
// statistics sub-document per (file, study, cohort).
package document

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Top-level field names.
const (
	FieldID         = "_id"
	FieldChromosome = "chr"
	FieldStart      = "start"
	FieldEnd        = "end"
	FieldLength     = "len"
	FieldReference  = "ref"
	FieldAlternate  = "alt"
	FieldType       = "type"
	FieldIDs        = "ids"
	FieldHGVS       = "hgvs"
	FieldAnnotation = "annot"
	FieldFiles      = "files"
	FieldStats      = "st"
)

// Sub-document field names.
const (
	FieldFileID      = "fid"
	FieldStudyID     = "sid"
	FieldCohortID    = "cid"
	FieldAlternates  = "alts"
	FieldAttributes  = "attrs"
	FieldFormat      = "fm"
	FieldSamples     = "samp"
	FieldXRefs       = "xrefs"
	FieldXRefID      = "id"
	FieldSOAccession = "so"
)

// Canonical holds the fields of a variant that do not depend on the source
// reporting it. They are only written when the document is first created.
type Canonical struct {
	Chromosome string      `json:"chr" bson:"chr"`
	Start      int64       `json:"start" bson:"start"`
	End        int64       `json:"end" bson:"end"`
	Length     int64       `json:"len" bson:"len"`
	Reference  string      `json:"ref" bson:"ref"`
	Alternate  string      `json:"alt" bson:"alt"`
	Type       string      `json:"type" bson:"type"`
	IDs        []string    `json:"ids,omitempty" bson:"ids,omitempty"`
	HGVS       []string    `json:"hgvs,omitempty" bson:"hgvs,omitempty"`
	Annotation *Annotation `json:"annot,omitempty" bson:"annot,omitempty"`
}

// Variant is a stored variant document.
type Variant struct {
	ID        string `json:"_id" bson:"_id"`
	Canonical `bson:",inline"`
	Files     []Source `json:"files" bson:"files"`
	Stats     []Stats  `json:"st" bson:"st"`
}

// Source is the evidence sub-document of one file of one study.
type Source struct {
	FileID     string   `json:"fid" bson:"fid"`
	StudyID    string   `json:"sid" bson:"sid"`
	Alternates []string `json:"alts,omitempty" bson:"alts,omitempty"`
	Attributes Attrs    `json:"attrs,omitempty" bson:"attrs,omitempty"`
	Format     string   `json:"fm,omitempty" bson:"fm,omitempty"`
	Samples    []Attrs  `json:"samp,omitempty" bson:"samp,omitempty"`
}

// Stats is the statistics sub-document of one cohort within one source.
type Stats struct {
	StudyID          string  `json:"sid" bson:"sid"`
	FileID           string  `json:"fid" bson:"fid"`
	CohortID         string  `json:"cid" bson:"cid"`
	MAF              float64 `json:"maf" bson:"maf"`
	MGF              float64 `json:"mgf" bson:"mgf"`
	MAFAllele        string  `json:"mafAl" bson:"mafAl"`
	MGFGenotype      string  `json:"mgfGt" bson:"mgfGt"`
	MissingAlleles   int     `json:"missAl" bson:"missAl"`
	MissingGenotypes int     `json:"missGt" bson:"missGt"`
	GenotypeCounts   Counts  `json:"numGt,omitempty" bson:"numGt,omitempty"`
	RefAllele        string  `json:"refAl,omitempty" bson:"refAl,omitempty"`
	AltAllele        string  `json:"altAl,omitempty" bson:"altAl,omitempty"`
	RefAlleleCount   int     `json:"refCnt" bson:"refCnt"`
	AltAlleleCount   int     `json:"altCnt" bson:"altCnt"`
	RefAlleleFreq    float64 `json:"refFreq" bson:"refFreq"`
	AltAlleleFreq    float64 `json:"altFreq" bson:"altFreq"`
}

// Annotation is the supplementary sub-document indexed for cross-reference
// and Sequence Ontology lookups.
type Annotation struct {
	XRefs        []XRef `json:"xrefs,omitempty" bson:"xrefs,omitempty"`
	SOAccessions []int  `json:"so,omitempty" bson:"so,omitempty"`
}

// XRef is a cross-reference entry of an annotation.
type XRef struct {
	ID     string `json:"id" bson:"id"`
	Source string `json:"src" bson:"src"`
}

// Attrs is a string map that encodes with sorted keys, so that equal maps
// always produce equal documents.
type Attrs map[string]string

// MarshalBSON encodes the map as a document ordered by key.
func (a Attrs) MarshalBSON() ([]byte, error) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: a[k]})
	}
	return bson.Marshal(d)
}

// Counts is an integer map that encodes with sorted keys.
type Counts map[string]int

// MarshalBSON encodes the map as a document ordered by key.
func (c Counts) MarshalBSON() ([]byte, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: c[k]})
	}
	return bson.Marshal(d)
}

// keyEscape replaces characters document stores reject in field names.
var (
	keyEscape   = strings.NewReplacer(".", "£")
	keyUnescape = strings.NewReplacer("£", ".")
)

// EscapeKey makes an attribute or sample key safe to use as a field name.
func EscapeKey(k string) string {
	return keyEscape.Replace(k)
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(k string) string {
	return keyUnescape.Replace(k)
}

// UnescapeKeys restores the original names of the attribute, sample and
// genotype count keys of a document read back from a store.
func (v *Variant) UnescapeKeys() {
	for i := range v.Files {
		f := &v.Files[i]
		f.Attributes = f.Attributes.unescaped()
		for j, s := range f.Samples {
			f.Samples[j] = s.unescaped()
		}
	}
	for i := range v.Stats {
		st := &v.Stats[i]
		if len(st.GenotypeCounts) == 0 {
			continue
		}
		counts := make(Counts, len(st.GenotypeCounts))
		for k, n := range st.GenotypeCounts {
			counts[UnescapeKey(k)] = n
		}
		st.GenotypeCounts = counts
	}
}

func (a Attrs) unescaped() Attrs {
	if len(a) == 0 {
		return a
	}
	out := make(Attrs, len(a))
	for k, val := range a {
		out[UnescapeKey(k)] = val
	}
	return out
}

// Path joins field names into a dotted path.
func Path(fields ...string) string {
	return strings.Join(fields, ".")
}
