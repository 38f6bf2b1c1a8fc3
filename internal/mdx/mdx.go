// Package mdx reads the header of MDX song files: the Shift-JIS title and
// the name of the PDX sample bank the song plays from.
package mdx

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/unicode/norm"
)

// titleEnd terminates the title field.
var titleEnd = []byte{0x0d, 0x0a, 0x1a}

var (
	// ErrNotMDX is returned when the title terminator is missing.
	ErrNotMDX = errors.New("mdx: no title terminator")

	// ErrNoPDXName is returned when the PDX name field is not terminated.
	ErrNoPDXName = errors.New("mdx: unterminated PDX name")

	// ErrPDXNotFound is returned when no file next to the song matches its
	// PDX name.
	ErrPDXNotFound = errors.New("mdx: PDX bank not found")
)

// Header is the fixed prefix of an MDX file.
type Header struct {
	Title      string // UTF-8, NFC normalized
	PDX        string // bank file name as stored; empty when the song uses none
	DataOffset int    // first byte after the header
}

// HasPDX reports whether the song names a sample bank.
func (h Header) HasPDX() bool {
	return h.PDX != ""
}

// Parse decodes the header at the start of raw.
func Parse(raw []byte) (Header, error) {
	end := bytes.Index(raw, titleEnd)
	if end < 0 {
		return Header{}, ErrNotMDX
	}
	title, err := decodeTitle(raw[:end])
	if err != nil {
		return Header{}, fmt.Errorf("mdx: decode title: %w", err)
	}

	rest := raw[end+len(titleEnd):]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return Header{}, ErrNoPDXName
	}
	return Header{
		Title:      title,
		PDX:        string(rest[:nul]),
		DataOffset: end + len(titleEnd) + nul + 1,
	}, nil
}

// ReadFile parses the header of the MDX file at path.
func ReadFile(path string) (Header, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	h, err := Parse(raw)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func decodeTitle(b []byte) (string, error) {
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(strings.TrimRight(string(out), " \x00")), nil
}

// ResolvePDX finds the bank named by h next to the song at mdxPath. Names
// are matched case-insensitively, and a name without an extension also
// matches <name>.PDX.
func ResolvePDX(mdxPath string, h Header) (string, error) {
	if !h.HasPDX() {
		return "", ErrPDXNotFound
	}
	dir := filepath.Dir(mdxPath)
	want := []string{h.PDX}
	if filepath.Ext(h.PDX) == "" {
		want = append(want, h.PDX+".PDX")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, name := range want {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(e.Name(), name) {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrPDXNotFound, h.PDX, dir)
}
