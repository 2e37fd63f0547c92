package mirror

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Export encodings accepted by Config.ExportEncoding.
const (
	EncodingUTF8  = "utf-8"
	EncodingUTF16 = "utf-16"
)

// forMirror returns a copy of m for the mirror root: baseLocation is blanked
// and baseLocationAccessProtocols removed, so consumers point it at the mirror
// instead of the upstream host.
func (m *Manifest) forMirror() *Manifest {
	c := m.clone()
	c.BaseLocation = ""
	c.BaseLocationAccessProtocols = ""
	return c
}

// normalizeEncoding maps accepted spellings to EncodingUTF8 or EncodingUTF16.
func normalizeEncoding(enc string) (string, error) {
	switch strings.ToLower(strings.ReplaceAll(enc, "_", "-")) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16", "utf-16le", "unicode":
		return EncodingUTF16, nil
	}
	return "", fmt.Errorf("%w: unsupported export encoding %q", ErrInvalidConfig, enc)
}

// EncodeManifest writes m as an indented XML document. With EncodingUTF16 the
// output is UTF-16LE with a byte order mark, as the upstream feed uses.
func EncodeManifest(w io.Writer, m *Manifest, encoding string) error {
	enc, err := normalizeEncoding(encoding)
	if err != nil {
		return err
	}

	// Namespace declarations are regenerated by the encoder.
	out := m.clone()
	out.XMLName = xml.Name{Local: "Manifest"}
	out.Attrs = out.Attrs[:0]
	for _, a := range m.Attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		out.Attrs = append(out.Attrs, a)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", enc)
	xe := xml.NewEncoder(&buf)
	xe.Indent("", "  ")
	if err := xe.Encode(out); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := xe.Close(); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	buf.WriteByte('\n')

	data := buf.Bytes()
	if enc == EncodingUTF16 {
		data, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(data)
		if err != nil {
			return fmt.Errorf("encoding catalog as utf-16: %w", err)
		}
	}

	_, err = w.Write(data)
	return err
}
