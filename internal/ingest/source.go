package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-variants/internal/maf"
	"github.com/inodb/vibe-variants/internal/vcf"
)

// Input formats.
const (
	FormatVCF = "vcf"
	FormatMAF = "maf"
)

// FileOptions identify the evidence a file contributes.
type FileOptions struct {
	Format        string // "vcf", "maf" or "" to detect
	FileID        string // defaults to the file's base name
	StudyID       string
	IncludeSource bool // keep the raw VCF line as an attribute
}

// FileSource returns a Source that parses path and tags its records with
// the file and study identifiers of opts.
func FileSource(path string, opts FileOptions) (Source, error) {
	format := opts.Format
	if format == "" {
		format = DetectFormat(path)
	}
	fileID := opts.FileID
	if fileID == "" {
		fileID = filepath.Base(path)
	}

	switch format {
	case FormatVCF:
		c := &vcf.Converter{FileID: fileID, StudyID: opts.StudyID, IncludeSource: opts.IncludeSource}
		return Source{
			Name:    path,
			Open:    func() (vcf.VariantParser, error) { return vcf.NewParser(path) },
			Convert: c.Convert,
		}, nil
	case FormatMAF:
		c := &maf.Converter{FileID: fileID, StudyID: opts.StudyID}
		return Source{
			Name:    path,
			Open:    func() (vcf.VariantParser, error) { return maf.NewParser(path) },
			Convert: c.Convert,
		}, nil
	}
	return Source{}, fmt.Errorf("unknown input format %q", format)
}

// DetectFormat detects the input file format based on extension or content.
func DetectFormat(path string) string {
	lowerPath := strings.ToLower(path)
	lowerPath = strings.TrimSuffix(lowerPath, ".gz")

	if strings.HasSuffix(lowerPath, ".vcf") {
		return FormatVCF
	}
	if strings.HasSuffix(lowerPath, ".maf") {
		return FormatMAF
	}

	// cBioPortal MAF filenames
	baseName := filepath.Base(lowerPath)
	if baseName == "data_mutations.txt" || baseName == "data_mutations_extended.txt" {
		return FormatMAF
	}

	if path == "-" {
		return FormatVCF
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatVCF
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil || n == 0 {
		return FormatVCF
	}

	content := string(buf[:n])
	if strings.HasPrefix(content, "##fileformat=VCF") || strings.HasPrefix(content, "#CHROM") {
		return FormatVCF
	}
	if strings.Contains(content, "Hugo_Symbol") && strings.Contains(content, "Chromosome") {
		return FormatMAF
	}

	return FormatVCF
}
