package vcf

// VariantParser is implemented by every source format the ingest pipeline
// reads. MAF lines are returned as Variants whose Info holds the annotation
// columns.
type VariantParser interface {
	// Next returns nil, nil at the end of the input.
	Next() (*Variant, error)

	Close() error

	// LineNumber is the 1-based number of the last line read.
	LineNumber() int
}
