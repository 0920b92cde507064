package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV reads CSV with headerRow (1-based), auto-detecting encoding and converting to UTF-8.
// Delimiter is guessed from the first line (comma, semicolon or tab).
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	br := bufio.NewReader(r)

	// Peek a bit to detect encoding
	peek, _ := br.Peek(2048)
	cs := "utf-8"
	if len(peek) > 0 && !looksUTF8(peek) {
		if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
			cs = strings.ToLower(det.Charset)
		}
	}

	var dec io.Reader
	if enc := decoderFor(cs); enc != nil {
		dec = transform.NewReader(br, enc.NewDecoder())
	} else {
		// UTF-8, с BOM или без
		dec = transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}

	ur := bufio.NewReader(dec)
	cr := csv.NewReader(ur)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if first, _ := ur.Peek(4096); len(first) > 0 {
		cr.Comma = guessComma(string(first))
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return tableToMaps(rows, headerRow), nil
}

// decoderFor: nil означает UTF-8.
func decoderFor(charset string) encoding.Encoding {
	switch charset {
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	case "windows-1252", "iso-8859-1":
		return charmap.Windows1252
	case "koi8-r":
		return charmap.KOI8R
	case "tis-620", "iso-8859-11", "windows-874":
		return charmap.Windows874
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	}
	return nil
}

// guessComma: самый частый разделитель в первой строке.
func guessComma(s string) rune {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	best, bestN := ',', strings.Count(s, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(s, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// looksUTF8: валидный UTF-8 без BOM UTF-16; хвост мог обрезаться посреди руны.
func looksUTF8(b []byte) bool {
	if bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		return false
	}
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0 && !utf8.Valid(b); i++ {
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
