package vcf

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestInput_ReadLine(t *testing.T) {
	in := NewInput(strings.NewReader("a\r\n\nb\nc"))

	var got []string
	for {
		line, ok, err := in.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, line)
	}

	want := []string{"a", "", "b", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected lines %q, got %q", want, got)
	}
	if in.LineNumber() != 4 {
		t.Errorf("Expected 4 lines read, got %d", in.LineNumber())
	}
	if err := in.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestInput_Empty(t *testing.T) {
	in := NewInput(strings.NewReader(""))
	_, ok, err := in.ReadLine()
	if err != nil || ok {
		t.Errorf("Expected end of input, got ok=%v err=%v", ok, err)
	}
}

func TestOpenInput_Missing(t *testing.T) {
	_, err := OpenInput("testdata/does-not-exist.vcf")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
}
