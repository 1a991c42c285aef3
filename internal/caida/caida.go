// Package caida streams CAIDA as-rel2 relationship records.
//
// The wire format is pipe-delimited records, only the first three of
// four fields interpreted, comments and a leading header block skipped.
package caida

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/JosephPizzuti/BGP-Simulator/internal/decompress"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

// Kind identifies the relationship a record encodes.
type Kind int

const (
	ProviderCustomer Kind = iota
	Peer
)

// Record is one parsed line of the as-rel2 file: "asn_a is provider of
// asn_b" when Kind is ProviderCustomer, or a symmetric peering otherwise.
type Record struct {
	ASNA   uint32
	ASNB   uint32
	Kind   Kind
	LineNo int
}

// Handler receives one Record per data line, in file order.
type Handler func(Record) error

// Stream reads path (transparently decompressed) and invokes handle for
// every non-comment, non-empty data line, skipping a leading header block.
func Stream(path string, handle Handler) error {
	rc, err := decompress.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, ok := parseLine(line, lineNo)
		if !ok {
			return &simerr.ParseError{Source: path, Line: lineNo, Detail: "malformed relationship record: " + line}
		}
		if err := handle(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &simerr.IoError{Path: path, Err: err}
	}
	return nil
}

// ScanMaxASN performs a single read of the relationships file to size
// the AS graph arena before allocating it.
func ScanMaxASN(path string) (uint32, error) {
	var maxASN uint32
	err := Stream(path, func(rec Record) error {
		if rec.ASNA > maxASN {
			maxASN = rec.ASNA
		}
		if rec.ASNB > maxASN {
			maxASN = rec.ASNB
		}
		return nil
	})
	return maxASN, err
}

func parseLine(line string, lineNo int) (Record, bool) {
	fields := strings.SplitN(line, "|", 4)
	if len(fields) < 3 {
		return Record{}, false
	}

	a, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return Record{}, false
	}
	b, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return Record{}, false
	}
	indicator, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Record{}, false
	}

	var kind Kind
	switch indicator {
	case -1:
		kind = ProviderCustomer
	case 0:
		kind = Peer
	default:
		return Record{}, false
	}

	return Record{ASNA: uint32(a), ASNB: uint32(b), Kind: kind, LineNo: lineNo}, true
}
