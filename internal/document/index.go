package document

// Index describes a secondary index over one or more fields. Indexes exist
// for query performance only; no write path depends on them.
type Index struct {
	Name   string
	Fields []string
}

// Indexes returns the secondary indexes provisioned for the variants
// collection.
func Indexes() []Index {
	return []Index{
		{Name: "chr_start_end", Fields: []string{FieldChromosome, FieldStart, FieldEnd}},
		{Name: "ids", Fields: []string{FieldIDs}},
		{Name: "files_sid_fid", Fields: []string{
			Path(FieldFiles, FieldStudyID),
			Path(FieldFiles, FieldFileID),
		}},
		{Name: "annot_xrefs_id", Fields: []string{Path(FieldAnnotation, FieldXRefs, FieldXRefID)}},
		{Name: "annot_so", Fields: []string{Path(FieldAnnotation, FieldSOAccession)}},
	}
}

// TopLevel reports whether every field of the index is a top-level field.
func (i Index) TopLevel() bool {
	for _, f := range i.Fields {
		for j := 0; j < len(f); j++ {
			if f[j] == '.' {
				return false
			}
		}
	}
	return true
}
