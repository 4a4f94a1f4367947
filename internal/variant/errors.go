package variant

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAllele indicates a reference or alternate allele that cannot be classified.
	ErrInvalidAllele = errors.New("invalid allele")
	// ErrInvalidRecord indicates a missing record or a record missing a required part.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrMissingSourceEntry indicates statistics were requested for a record without evidence.
	ErrMissingSourceEntry = errors.New("missing source entry")
)

// AlleleError describes why an allele pair was rejected by the classifier.
type AlleleError struct {
	Reference string
	Alternate string
	Allele    string // the offending allele, empty when the pair as a whole is rejected
	Position  int    // offset of the offending character, -1 if not applicable
	Reason    string
}

func (e *AlleleError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("invalid allele %q at offset %d (ref=%q alt=%q): %s",
			e.Allele, e.Position, e.Reference, e.Alternate, e.Reason)
	}
	return fmt.Sprintf("invalid alleles ref=%q alt=%q: %s", e.Reference, e.Alternate, e.Reason)
}

func (e *AlleleError) Unwrap() error { return ErrInvalidAllele }

// RecordError reports a record that could not be turned into a store operation.
type RecordError struct {
	Index  int    // position of the record within its batch
	Record string // chrom:pos:ref:alt, empty for nil records
	Err    error
}

func (e *RecordError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// MissingSourceEntryError is returned when statistics were requested for a
// variant that carries no source entry.
type MissingSourceEntryError struct {
	Variant string
}

func (e *MissingSourceEntryError) Error() string {
	return fmt.Sprintf("variant %s has no source entry to take statistics from", e.Variant)
}

func (e *MissingSourceEntryError) Unwrap() error { return ErrMissingSourceEntry }
