// Package output writes the converged RIB as CSV.
package output

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/JosephPizzuti/BGP-Simulator/internal/policy"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

// RIBSource exposes just enough of the simulator for WriteCSV: the
// highest indexable ASN and each AS's installed routes.
type RIBSource interface {
	MaxASN() uint32
	Policy(asn uint32) policy.Policy
}

// WriteCSV writes the header line then one "asn,prefix,as_path" record
// per (AS, prefix) with a non-empty RIB entry, ASes in ascending order.
func WriteCSV(sim RIBSource, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &simerr.IoError{Path: path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("asn,prefix,as_path\n"); err != nil {
		return &simerr.IoError{Path: path, Err: err}
	}

	max := sim.MaxASN()
	for asn := uint32(1); asn <= max; asn++ {
		pol := sim.Policy(asn)
		if pol == nil {
			continue
		}
		rib := pol.LocalRIB()
		if len(rib) == 0 {
			continue
		}

		for prefix, ann := range rib {
			if _, err := w.WriteString(strconv.FormatUint(uint64(asn), 10)); err != nil {
				return &simerr.IoError{Path: path, Err: err}
			}
			w.WriteByte(',')
			w.WriteString(prefix)
			w.WriteByte(',')
			w.WriteString(RenderPath(ann.ASPath))
			w.WriteByte('\n')
		}
	}

	if err := w.Flush(); err != nil {
		return &simerr.IoError{Path: path, Err: err}
	}
	return nil
}

// RenderPath concatenates the AS-path integers with single spaces,
// most-recent-hop first: ASPath is already stored head-first. Shared by
// every writer that needs the same textual rendering (internal/ribstore,
// cmd/bgpsim).
func RenderPath(path []uint32) string {
	parts := make([]string, len(path))
	for i, asn := range path {
		parts[i] = strconv.FormatUint(uint64(asn), 10)
	}
	return strings.Join(parts, " ")
}
