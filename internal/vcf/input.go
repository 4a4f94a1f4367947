package vcf

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input is a line reader over a plain or gzip-compressed text file.
type Input struct {
	r    *bufio.Reader
	file *os.File
	gz   *gzip.Reader
	line int
}

// OpenInput opens path for reading, or stdin for "-". Gzip input is
// recognized by its magic bytes, whatever the file name.
func OpenInput(path string) (*Input, error) {
	if path == "-" {
		return NewInput(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	in := &Input{file: file}
	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		if in.gz, err = gzip.NewReader(br); err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		in.r = bufio.NewReader(in.gz)
	} else {
		in.r = br
	}
	return in, nil
}

// NewInput reads lines from r, which is not closed by Close.
func NewInput(r io.Reader) *Input {
	return &Input{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its line terminator. ok is false
// at the end of the input; a last line lacking a newline is still returned.
func (in *Input) ReadLine() (line string, ok bool, err error) {
	line, err = in.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("read line %d: %w", in.line+1, err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	in.line++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// LineNumber returns the number of lines read so far.
func (in *Input) LineNumber() int {
	return in.line
}

// Close releases the underlying file.
func (in *Input) Close() error {
	if in.gz != nil {
		in.gz.Close()
	}
	if in.file != nil {
		return in.file.Close()
	}
	return nil
}
