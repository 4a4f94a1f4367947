// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parser reads variants from a VCF file.
type Parser struct {
	in          *Input
	header      []string
	sampleNames []string // sample names from #CHROM header line
}

// NewParser creates a new VCF parser for the given file, "-" for stdin.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	in, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	return newParser(in)
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(NewInput(r))
}

func newParser(in *Input) (*Parser, error) {
	p := &Parser{in: in}
	if err := p.parseHeader(); err != nil {
		in.Close()
		return nil, err
	}
	return p, nil
}

// parseHeader reads the meta-information lines up to and including #CHROM.
func (p *Parser) parseHeader() error {
	for {
		line, ok, err := p.in.ReadLine()
		if err != nil {
			return err
		}
		if !ok {
			return &ParseError{Line: p.in.LineNumber(), Message: "no #CHROM header line found"}
		}

		switch {
		case strings.HasPrefix(line, "##"):
			p.header = append(p.header, line)
		case strings.HasPrefix(line, "#CHROM"):
			p.header = append(p.header, line)
			if fields := strings.Split(line, "\t"); len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		default:
			return &ParseError{Line: p.in.LineNumber(), Message: "expected #CHROM header line"}
		}
	}
}

// Next reads the next variant, skipping blank lines.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, ok, err := p.in.ReadLine()
		if err != nil || !ok {
			return nil, err
		}
		if line != "" {
			return p.parseLine(line)
		}
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   fields[5],
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
		Line:   line,
	}

	// Capture FORMAT + sample columns if present
	if len(fields) > 8 {
		v.Format = fields[8]
		v.Samples = fields[9:]
		if len(p.sampleNames) > 0 && len(v.Samples) != len(p.sampleNames) {
			return nil, &ParseError{
				Line:    p.in.LineNumber(),
				Message: fmt.Sprintf("expected %d sample columns, found %d", len(p.sampleNames), len(v.Samples)),
			}
		}
	}

	return v, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			// Flag-type INFO field
			result[parts[0]] = true
		}
	}

	return result
}

// SplitMultiAllelic splits a multi-allelic variant into one variant per
// alternate allele. Each split variant records its index in the original ALT
// column and the remaining alternates as secondary alternates.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		secondary := make([]string, 0, len(alts)-1)
		secondary = append(secondary, alts[:i]...)
		secondary = append(secondary, alts[i+1:]...)

		split := *v
		split.Alt = alt
		split.AltIndex = i
		split.SecondaryAlts = secondary
		variants[i] = &split
	}

	return variants
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.in.LineNumber()
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.in.Close()
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
