package variant

import "fmt"

// Type is the variant type taxonomy tag stored with every variant.
type Type string

// Variant types, in classification priority order.
const (
	NoSequenceAlteration Type = "NO_SEQUENCE_ALTERATION"
	TandemRepeat         Type = "TANDEM_REPEAT"
	SequenceAlteration   Type = "SEQUENCE_ALTERATION"
	Insertion            Type = "INS"
	Deletion             Type = "DEL"
	SNV                  Type = "SNV"
	MNV                  Type = "MNV"
	Indel                Type = "INDEL"
)

// Types lists every known variant type.
var Types = []Type{
	NoSequenceAlteration,
	TandemRepeat,
	SequenceAlteration,
	Insertion,
	Deletion,
	SNV,
	MNV,
	Indel,
}

// ParseType returns the Type named by s.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown variant type %q", s)
}

func (t Type) String() string {
	return string(t)
}
