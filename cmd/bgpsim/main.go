// bgpsim - offline BGP route-propagation simulator over a CAIDA-style
// AS-relationship topology.
//
// Usage:
//
//	bgpsim --relationships as-rel2.txt --announcements ann.csv --rov-asns rov.csv [--output ribs.csv]
//
// Environment variables (alternative to flags):
//
//	BGPSIM_RELATIONSHIPS, BGPSIM_ANNOUNCEMENTS, BGPSIM_ROV_ASNS, BGPSIM_OUTPUT
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/JosephPizzuti/BGP-Simulator/internal/anncsv"
	"github.com/JosephPizzuti/BGP-Simulator/internal/asgraph"
	"github.com/JosephPizzuti/BGP-Simulator/internal/caida"
	"github.com/JosephPizzuti/BGP-Simulator/internal/output"
	"github.com/JosephPizzuti/BGP-Simulator/internal/progress"
	"github.com/JosephPizzuti/BGP-Simulator/internal/rescache"
	"github.com/JosephPizzuti/BGP-Simulator/internal/ribstore"
	"github.com/JosephPizzuti/BGP-Simulator/internal/rovcsv"
	"github.com/JosephPizzuti/BGP-Simulator/internal/sim"
	"github.com/JosephPizzuti/BGP-Simulator/internal/simerr"
)

var (
	relationshipsFlag = flag.String("relationships", "", "Path to CAIDA as-rel2 relationships file")
	announcementsFlag = flag.String("announcements", "", "Path to announcements CSV (asn,prefix,rov_invalid)")
	rovASNsFlag       = flag.String("rov-asns", "", "Path to ROV-enforcing ASNs CSV")
	outputFlag        = flag.String("output", "", "Path to write the converged RIB CSV")
	workersFlag       = flag.Int("workers", 1, "Number of worker goroutines per rank layer (1 = sequential)")
	quietFlag         = flag.Bool("quiet", false, "Suppress progress logging")
	cacheRedisFlag    = flag.String("cache-redis", "", "Optional Redis URL for caching converged RIBs across runs")
	ribDBFlag         = flag.String("rib-db", "", "Optional PostgreSQL URL to additionally mirror the RIB into")
	progressAddrFlag  = flag.String("progress-addr", "", "Optional host:port to serve live progress over WebSocket")
)

func getEnvOrFlag(flagVal *string, envName, defaultVal string) string {
	if *flagVal != "" {
		return *flagVal
	}
	if env := os.Getenv(envName); env != "" {
		return env
	}
	return defaultVal
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: bgpsim --relationships <path> --announcements <path> --rov-asns <path> [--output <ribs.csv>]")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	relPath := getEnvOrFlag(relationshipsFlag, "BGPSIM_RELATIONSHIPS", "")
	annPath := getEnvOrFlag(announcementsFlag, "BGPSIM_ANNOUNCEMENTS", "")
	rovPath := getEnvOrFlag(rovASNsFlag, "BGPSIM_ROV_ASNS", "")
	outPath := getEnvOrFlag(outputFlag, "BGPSIM_OUTPUT", "ribs.csv")

	if relPath == "" || annPath == "" || rovPath == "" {
		printUsage()
		os.Exit(1)
	}

	if *quietFlag {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	} else {
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	}

	if err := run(relPath, annPath, rovPath, outPath); err != nil {
		reportFatal(err)
		os.Exit(1)
	}
}

func run(relPath, annPath, rovPath, outPath string) error {
	var cache *rescache.Cache
	var cacheKey string
	if *cacheRedisFlag != "" {
		var err error
		cache, err = rescache.New(*cacheRedisFlag)
		if err != nil {
			log.Printf("cache-redis: connect failed, continuing without cache: %v", err)
		} else {
			defer cache.Close()
			cacheKey, err = rescache.Key(relPath, annPath, rovPath)
			if err != nil {
				log.Printf("cache-redis: hashing inputs failed, continuing without cache: %v", err)
				cacheKey = ""
			}
		}
	}

	if cache != nil && cacheKey != "" {
		if rows, ok, err := cache.Get(cacheKey); err != nil {
			log.Printf("cache-redis: lookup failed: %v", err)
		} else if ok {
			log.Printf("cache-redis: hit, writing %d cached rows", len(rows))
			return writeCachedRIB(rows, outPath)
		}
	}

	log.Printf("scanning %s for maximum ASN", relPath)
	maxASN, err := caida.ScanMaxASN(relPath)
	if err != nil {
		return err
	}
	if maxASN == 0 {
		return errors.New("no ASNs found in relationships file")
	}

	log.Printf("building AS graph (max ASN %d)", maxASN)
	graph := asgraph.New(maxASN)
	if err := caida.Stream(relPath, func(rec caida.Record) error {
		switch rec.Kind {
		case caida.ProviderCustomer:
			graph.AddProviderCustomer(rec.ASNA, rec.ASNB)
		case caida.Peer:
			graph.AddPeer(rec.ASNA, rec.ASNB)
		}
		return nil
	}); err != nil {
		return err
	}

	log.Printf("loading ROV-enforcing ASNs from %s", rovPath)
	rovASNs, err := rovcsv.Load(rovPath)
	if err != nil {
		return err
	}
	log.Printf("%d ASes enforce ROV", len(rovASNs))

	log.Printf("flattening AS graph into propagation ranks")
	simulator, err := sim.New(graph, rovASNs, *workersFlag)
	if err != nil {
		return err
	}

	if *progressAddrFlag != "" {
		bcast, err := progress.NewBroadcaster(*progressAddrFlag)
		if err != nil {
			log.Printf("progress-addr: failed to start server, continuing without it: %v", err)
		} else {
			defer bcast.Close()
			simulator.SetProgress(bcast)
		}
	}

	log.Printf("loading announcements from %s", annPath)
	seeds, err := anncsv.Load(annPath)
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		if err := simulator.SeedPrefix(seed.Prefix, seed.ASN, seed.ROVInvalid); err != nil {
			return err
		}
	}
	log.Printf("seeded %d announcements", len(seeds))

	log.Printf("propagating routes")
	simulator.PropagateAll()

	log.Printf("writing converged RIB to %s", outPath)
	if err := output.WriteCSV(simulator, outPath); err != nil {
		return err
	}

	if *ribDBFlag != "" {
		sink, err := ribstore.NewPostgresSink(*ribDBFlag)
		if err != nil {
			log.Printf("rib-db: connect failed, RIB was still written to %s: %v", outPath, err)
		} else {
			defer sink.Close()
			if err := sink.WriteRIB(simulator); err != nil {
				log.Printf("rib-db: write failed: %v", err)
			}
		}
	}

	if cache != nil && cacheKey != "" {
		if err := cache.Set(cacheKey, snapshotRIB(simulator)); err != nil {
			log.Printf("cache-redis: store failed: %v", err)
		}
	}

	log.Printf("done")
	return nil
}

func snapshotRIB(simulator *sim.Simulator) []rescache.Row {
	var rows []rescache.Row
	max := simulator.MaxASN()
	for asn := uint32(1); asn <= max; asn++ {
		pol := simulator.Policy(asn)
		if pol == nil {
			continue
		}
		for prefix, ann := range pol.LocalRIB() {
			rows = append(rows, rescache.Row{ASN: asn, Prefix: prefix, ASPath: output.RenderPath(ann.ASPath)})
		}
	}
	return rows
}

func writeCachedRIB(rows []rescache.Row, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return &simerr.IoError{Path: outPath, Err: err}
	}
	defer f.Close()

	if _, err := f.WriteString("asn,prefix,as_path\n"); err != nil {
		return &simerr.IoError{Path: outPath, Err: err}
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(f, "%d,%s,%s\n", r.ASN, r.Prefix, r.ASPath); err != nil {
			return &simerr.IoError{Path: outPath, Err: err}
		}
	}
	return nil
}

func reportFatal(err error) {
	var cycleErr *simerr.CycleError
	if errors.As(err, &cycleErr) {
		fmt.Fprintf(os.Stderr, "Error: provider/customer cycle detected in AS relationships.\n")
		fmt.Fprintf(os.Stderr, "Details: %v\n", cycleErr)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
