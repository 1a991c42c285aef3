// Package anncsv loads prefix announcements to seed into the simulator.
package anncsv

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/JosephPizzuti/BGP-Simulator/internal/decompress"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

// Seed is one origin announcement to inject into the simulator.
type Seed struct {
	ASN        uint32
	Prefix     string
	ROVInvalid bool
}

// Load reads a three-field "asn,prefix,rov_invalid" CSV, with the same
// first-line header heuristic as rovcsv.
func Load(path string) ([]Seed, error) {
	rc, err := decompress.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var seeds []Seed
	scanner := bufio.NewScanner(rc)

	lineNo := 0
	first := true
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			return nil, &simerr.ParseError{Source: path, Line: lineNo, Detail: "expected 3 fields, got " + strconv.Itoa(len(fields))}
		}
		asnField := strings.TrimSpace(fields[0])

		asn, err := strconv.ParseUint(asnField, 10, 32)
		if first {
			first = false
			if err != nil {
				continue // header line
			}
		}
		if err != nil {
			return nil, &simerr.ParseError{Source: path, Line: lineNo, Detail: "non-numeric ASN: " + asnField}
		}

		invalid, err := parseBool(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, &simerr.ParseError{Source: path, Line: lineNo, Detail: err.Error()}
		}

		seeds = append(seeds, Seed{
			ASN:        uint32(asn),
			Prefix:     strings.TrimSpace(fields[1]),
			ROVInvalid: invalid,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &simerr.IoError{Path: path, Err: err}
	}
	return seeds, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	default:
		return false, &boolParseError{raw: s}
	}
}

type boolParseError struct{ raw string }

func (e *boolParseError) Error() string {
	return "cannot parse boolean value: " + e.raw
}
