package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-variants/internal/ingest"
	"github.com/inodb/vibe-variants/internal/output"
	"github.com/inodb/vibe-variants/internal/variant"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <ref> <alt> [length]",
		Short: "Print the variant type of an allele pair",
		Long: `Classify prints the variant type of a reference/alternate allele pair.
Use "" or - for an empty allele. The length defaults to the longer allele.`,
		Example: `  vibe-variants classify C A
  vibe-variants classify "" T
  vibe-variants classify "(CA)5" "(CA)7"`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, alt := emptyAllele(args[0]), emptyAllele(args[1])
			length := int64(max(len(ref), len(alt)))
			if len(args) == 3 {
				n, err := strconv.ParseInt(args[2], 10, 64)
				if err != nil {
					return usageError{msg: fmt.Sprintf("invalid length %q", args[2])}
				}
				length = n
			}

			t, err := variant.Classify(ref, alt, length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "key <chr> <start> <ref> <alt>",
		Short:   "Print the canonical key of a variant",
		Example: `  vibe-variants key 12 25245350 C A`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return usageError{msg: fmt.Sprintf("invalid start %q", args[1])}
			}
			fmt.Fprintln(cmd.OutOrStdout(), variant.BuildKey(args[0], start, args[2], args[3]))
			return nil
		},
	}
}

func newClassifyFileCmd() *cobra.Command {
	var (
		inputFormat string
		outputFile  string
	)

	cmd := &cobra.Command{
		Use:   "classify-file [flags] <input-file>",
		Short: "Classify every variant of a VCF or MAF file",
		Long: `Classify-file writes one tab-delimited line per variant with its canonical
key and type, without touching the store.`,
		Example: `  vibe-variants classify-file input.vcf
  vibe-variants classify-file -o classified.tsv data_mutations.txt
  cat input.vcf | vibe-variants classify-file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassifyFile(cmd, args[0], inputFormat, outputFile)
		},
	}

	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Input format: vcf, maf (auto-detected if not specified)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runClassifyFile(cmd *cobra.Command, inputPath, inputFormat, outputFile string) error {
	src, err := ingest.FileSource(inputPath, ingest.FileOptions{Format: inputFormat})
	if err != nil {
		return usageError{msg: err.Error()}
	}

	parser, err := src.Open()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
		}
		return err
	}
	defer parser.Close()

	out := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := output.NewTabWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var total, invalid int
	for {
		v, err := parser.Next()
		if err != nil {
			return err
		}
		if v == nil {
			break
		}
		recs, err := src.Convert(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: line %d: %v\n", parser.LineNumber(), err)
			continue
		}
		for _, r := range recs {
			total++
			cerr := r.Classify()
			if cerr != nil {
				invalid++
			}
			if err := w.Write(r, cerr); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Classified %d variants (%d invalid)\n", total, invalid)
	return nil
}

func emptyAllele(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
