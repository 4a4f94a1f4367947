// Package maf provides MAF (Mutation Annotation Format) file parsing functionality.
package maf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-variants/internal/vcf"
)

// Standard MAF column names
const (
	ColChromosome            = "Chromosome"
	ColStartPosition         = "Start_Position"
	ColEndPosition           = "End_Position"
	ColReferenceAllele       = "Reference_Allele"
	ColTumorSeqAllele2       = "Tumor_Seq_Allele2"
	ColHugoSymbol            = "Hugo_Symbol"
	ColConsequence           = "Consequence"
	ColHGVSpShort            = "HGVSp_Short"
	ColTranscriptID          = "Transcript_ID"
	ColVariantType           = "Variant_Type"
	ColVariantClassification = "Variant_Classification"
	ColNCBIBuild             = "NCBI_Build"
	ColDBSNP                 = "dbSNP_RS"
	ColTumorSampleBarcode    = "Tumor_Sample_Barcode"
)

// ColumnIndices holds the indices of important MAF columns.
type ColumnIndices struct {
	Chromosome            int
	StartPosition         int
	EndPosition           int
	ReferenceAllele       int
	TumorSeqAllele2       int
	HugoSymbol            int
	Consequence           int
	HGVSpShort            int
	TranscriptID          int
	VariantType           int
	VariantClassification int
	NCBIBuild             int
	DBSNP                 int
	TumorSampleBarcode    int
}

// MAFAnnotation holds the annotation columns of a MAF line.
type MAFAnnotation struct {
	HugoSymbol            string
	Consequence           string
	HGVSpShort            string
	TranscriptID          string
	VariantType           string
	VariantClassification string
	NCBIBuild             string
	DBSNP                 string
	TumorSampleBarcode    string
}

// attributes returns the non-empty annotation columns keyed by column name.
func (a *MAFAnnotation) attributes() map[string]interface{} {
	out := make(map[string]interface{})
	for _, kv := range []struct{ k, v string }{
		{ColHugoSymbol, a.HugoSymbol},
		{ColConsequence, a.Consequence},
		{ColHGVSpShort, a.HGVSpShort},
		{ColTranscriptID, a.TranscriptID},
		{ColVariantType, a.VariantType},
		{ColVariantClassification, a.VariantClassification},
		{ColNCBIBuild, a.NCBIBuild},
		{ColTumorSampleBarcode, a.TumorSampleBarcode},
	} {
		if kv.v != "" {
			out[kv.k] = kv.v
		}
	}
	return out
}

// Parser reads variants from a MAF file.
type Parser struct {
	in         *vcf.Input
	columns    ColumnIndices
	headerLine string
}

// NewParser creates a new MAF parser for the given file, "-" for stdin.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func NewParser(path string) (*Parser, error) {
	in, err := vcf.OpenInput(path)
	if err != nil {
		return nil, err
	}
	return newParser(in)
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(vcf.NewInput(r))
}

func newParser(in *vcf.Input) (*Parser, error) {
	p := &Parser{in: in}
	if err := p.parseHeader(); err != nil {
		in.Close()
		return nil, err
	}
	return p, nil
}

// parseHeader skips "#" comment lines and reads the column header.
func (p *Parser) parseHeader() error {
	for {
		line, ok, err := p.in.ReadLine()
		if err != nil {
			return err
		}
		if !ok {
			return &ParseError{Line: p.in.LineNumber(), Message: "no header line found"}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.headerLine = line
		return p.parseColumnIndices(line)
	}
}

// parseColumnIndices parses the header line to find column indices.
func (p *Parser) parseColumnIndices(headerLine string) error {
	columns := strings.Split(headerLine, "\t")

	// Initialize all indices to -1 (not found)
	p.columns = ColumnIndices{
		Chromosome:            -1,
		StartPosition:         -1,
		EndPosition:           -1,
		ReferenceAllele:       -1,
		TumorSeqAllele2:       -1,
		HugoSymbol:            -1,
		Consequence:           -1,
		HGVSpShort:            -1,
		TranscriptID:          -1,
		VariantType:           -1,
		VariantClassification: -1,
		NCBIBuild:             -1,
		DBSNP:                 -1,
		TumorSampleBarcode:    -1,
	}

	for i, col := range columns {
		switch col {
		case ColChromosome:
			p.columns.Chromosome = i
		case ColStartPosition:
			p.columns.StartPosition = i
		case ColEndPosition:
			p.columns.EndPosition = i
		case ColReferenceAllele:
			p.columns.ReferenceAllele = i
		case ColTumorSeqAllele2:
			p.columns.TumorSeqAllele2 = i
		case ColHugoSymbol:
			p.columns.HugoSymbol = i
		case ColConsequence:
			p.columns.Consequence = i
		case ColHGVSpShort:
			p.columns.HGVSpShort = i
		case ColTranscriptID:
			p.columns.TranscriptID = i
		case ColVariantType:
			p.columns.VariantType = i
		case ColVariantClassification:
			p.columns.VariantClassification = i
		case ColNCBIBuild:
			p.columns.NCBIBuild = i
		case ColDBSNP:
			p.columns.DBSNP = i
		case ColTumorSampleBarcode:
			p.columns.TumorSampleBarcode = i
		}
	}

	for _, req := range []struct {
		idx  int
		name string
	}{
		{p.columns.Chromosome, ColChromosome},
		{p.columns.StartPosition, ColStartPosition},
		{p.columns.ReferenceAllele, ColReferenceAllele},
		{p.columns.TumorSeqAllele2, ColTumorSeqAllele2},
	} {
		if req.idx == -1 {
			return &ParseError{
				Line:    p.in.LineNumber(),
				Message: fmt.Sprintf("required column '%s' not found in header", req.name),
			}
		}
	}

	return nil
}

// Next reads the next variant from the MAF file. The annotation columns
// are returned as INFO entries keyed by column name.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*vcf.Variant, error) {
	v, _, err := p.NextWithAnnotation()
	return v, err
}

// NextWithAnnotation reads the next variant along with its MAF annotation data.
func (p *Parser) NextWithAnnotation() (*vcf.Variant, *MAFAnnotation, error) {
	for {
		line, ok, err := p.in.ReadLine()
		if err != nil || !ok {
			return nil, nil, err
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			return p.parseLineWithAnnotation(line)
		}
	}
}

// parseLineWithAnnotation parses a single MAF data line into a Variant and MAFAnnotation.
func (p *Parser) parseLineWithAnnotation(line string) (*vcf.Variant, *MAFAnnotation, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.Chromosome, p.columns.StartPosition, p.columns.ReferenceAllele, p.columns.TumorSeqAllele2)
	if len(fields) <= minCols {
		return nil, nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[p.columns.StartPosition], 10, 64)
	if err != nil {
		return nil, nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("invalid position: %s", fields[p.columns.StartPosition]),
		}
	}

	ref := fields[p.columns.ReferenceAllele]
	alt := fields[p.columns.TumorSeqAllele2]

	// MAF writes empty alleles as "-"
	if alt == "-" {
		alt = ""
	}
	if ref == "-" {
		ref = ""
	}

	field := func(idx int) string {
		if idx >= 0 && idx < len(fields) {
			return fields[idx]
		}
		return ""
	}

	ann := &MAFAnnotation{
		HugoSymbol:            field(p.columns.HugoSymbol),
		Consequence:           field(p.columns.Consequence),
		HGVSpShort:            field(p.columns.HGVSpShort),
		TranscriptID:          field(p.columns.TranscriptID),
		VariantType:           field(p.columns.VariantType),
		VariantClassification: field(p.columns.VariantClassification),
		NCBIBuild:             field(p.columns.NCBIBuild),
		DBSNP:                 field(p.columns.DBSNP),
		TumorSampleBarcode:    field(p.columns.TumorSampleBarcode),
	}

	id := vcf.Missing
	if rs := ann.DBSNP; rs != "" && rs != "novel" && rs != vcf.Missing {
		id = rs
	}

	v := &vcf.Variant{
		Chrom:  fields[p.columns.Chromosome],
		Pos:    pos,
		ID:     id,
		Ref:    ref,
		Alt:    alt,
		Qual:   vcf.Missing,
		Filter: vcf.Missing,
		Info:   ann.attributes(),
		Line:   line,
	}

	return v, ann, nil
}

// Header returns the MAF header line.
func (p *Parser) Header() string {
	return p.headerLine
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.in.LineNumber()
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.in.Close()
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
