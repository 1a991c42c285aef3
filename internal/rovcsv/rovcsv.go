// Package rovcsv loads the set of ASes that enforce Route Origin
// Validation from a one-ASN-per-record CSV file.
package rovcsv

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/JosephPizzuti/BGP-Simulator/internal/decompress"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

// Load reads path and returns the set of ROV-enforcing ASNs.
//
// A header line is auto-detected: the first non-empty, non-comment line
// is treated as data unless its first comma-delimited field fails to
// parse as an unsigned decimal ASN.
func Load(path string) (map[uint32]struct{}, error) {
	rc, err := decompress.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	set := make(map[uint32]struct{})
	scanner := bufio.NewScanner(rc)

	lineNo := 0
	first := true
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		field := line
		if idx := strings.IndexByte(line, ','); idx >= 0 {
			field = line[:idx]
		}
		field = strings.TrimSpace(field)

		asn, err := strconv.ParseUint(field, 10, 32)
		if first {
			first = false
			if err != nil {
				continue // header line
			}
		}
		if err != nil {
			return nil, &simerr.ParseError{Source: path, Line: lineNo, Detail: "non-numeric ASN: " + field}
		}

		set[uint32(asn)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, &simerr.IoError{Path: path, Err: err}
	}
	return set, nil
}
