// Package document encodes and decodes post files.
//
// A post file is a TOML metadata block between two "+++" delimiter lines,
// followed by a blank line and the markdown body:
//
//	+++
//	tags = ["a", "b"]
//	wip = true
//	number = 123
//	+++
//
//	body text
package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "+++"

var (
	// ErrFormatInvalid indicates the document has no delimited metadata block.
	ErrFormatInvalid = errors.New("invalid format: missing +++ metadata block")

	// ErrMetaInvalid indicates the metadata block is not valid post metadata.
	ErrMetaInvalid = errors.New("meta info is invalid")
)

// Meta is the metadata carried in a post's header.
type Meta struct {
	Tags []string `toml:"tags"`
	WIP  bool     `toml:"wip"`

	// Number is the server-assigned post number. Nil until the post has
	// been pushed (or fetched with a number).
	Number *uint64 `toml:"number"`
}

// Uint64 returns a pointer to n.
func Uint64(n uint64) *uint64 {
	return &n
}

// HasNumber reports whether the post has a server-assigned number.
func (m Meta) HasNumber() bool {
	return m.Number != nil
}

// Clone returns a deep copy of m.
func (m Meta) Clone() Meta {
	out := Meta{WIP: m.WIP, Tags: append([]string{}, m.Tags...)}
	if m.Number != nil {
		out.Number = Uint64(*m.Number)
	}
	return out
}

// Equal reports whether m and other carry the same metadata.
// Tags compare as a set.
func (m Meta) Equal(other Meta) bool {
	if m.WIP != other.WIP {
		return false
	}
	if (m.Number == nil) != (other.Number == nil) {
		return false
	}
	if m.Number != nil && *m.Number != *other.Number {
		return false
	}
	return slices.Equal(tagSet(m.Tags), tagSet(other.Tags))
}

func tagSet(tags []string) []string {
	set := slices.Clone(tags)
	slices.Sort(set)
	return slices.Compact(set)
}

// Encode renders meta and body as a post document.
func Encode(meta Meta, body string) (string, error) {
	// A nil slice would be omitted by the encoder and fail to decode.
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	// TOML integers are signed 64-bit.
	if meta.Number != nil && *meta.Number > math.MaxInt64 {
		return "", fmt.Errorf("%w: number %d is out of range", ErrMetaInvalid, *meta.Number)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	if err := toml.NewEncoder(&buf).Encode(meta); err != nil {
		return "", fmt.Errorf("failed to encode meta: %w", err)
	}
	buf.WriteString(Delimiter + "\n\n")
	buf.WriteString(body)
	return buf.String(), nil
}

// Decode parses a post document into its metadata and body.
//
// Blank lines before the opening delimiter and whitespace around either
// delimiter are tolerated. At most one blank line after the closing
// delimiter is dropped; everything else is returned verbatim as the body.
func Decode(text string) (Meta, string, error) {
	metaStart, metaEnd, bodyStart, ok := Bounds(text)
	if !ok {
		return Meta{}, "", ErrFormatInvalid
	}

	meta, err := decodeMeta(text[metaStart:metaEnd])
	if err != nil {
		return Meta{}, "", err
	}

	body := text[bodyStart:]
	if line, next := nextLine(body, 0); strings.TrimSpace(line) == "" {
		body = body[next:]
	}
	return meta, body, nil
}

// Bounds locates the metadata block in text.
//
// It returns the byte range of the metadata between the delimiters and
// the offset just past the closing delimiter line. ok is false when the
// first non-blank line is not a delimiter or the block is never closed.
func Bounds(text string) (metaStart, metaEnd, bodyStart int, ok bool) {
	off := 0
	for {
		if off >= len(text) {
			return 0, 0, 0, false
		}
		line, next := nextLine(text, off)
		off = next
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed != Delimiter {
			return 0, 0, 0, false
		}
		break
	}

	metaStart = off
	for off < len(text) {
		line, next := nextLine(text, off)
		if strings.TrimSpace(line) == Delimiter {
			return metaStart, off, next, true
		}
		off = next
	}
	return 0, 0, 0, false
}

// nextLine returns the line starting at off (without its newline) and the
// offset of the following line.
func nextLine(text string, off int) (string, int) {
	if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
		return text[off : off+i], off + i + 1
	}
	return text[off:], len(text)
}

func decodeMeta(raw string) (Meta, error) {
	var meta Meta
	md, err := toml.Decode(raw, &meta)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrMetaInvalid, err)
	}
	for _, key := range []string{"tags", "wip"} {
		if !md.IsDefined(key) {
			return Meta{}, fmt.Errorf("%w: missing field `%s`", ErrMetaInvalid, key)
		}
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return meta, nil
}
