// Command vmc-replay replays captured VMC traffic, from a pcap file or a
// recorded session, into a UDP port or through a local decoder.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

func main() {
	pcapPath := flag.String("pcap", "", "pcap or pcapng file to replay")
	dbPath := flag.String("db", "", "Session database to replay from")
	sessionID := flag.String("session", "", "Recorded session ID (with -db)")
	port := flag.Int("port", 0, "Only replay datagrams sent to this UDP port (pcap only, 0 = all)")
	speed := flag.Float64("speed", 1.0, "Replay speed multiplier (0 = as fast as possible)")
	to := flag.String("to", "", "Send datagrams to this UDP address")
	decode := flag.Bool("decode", false, "Decode locally and print a JSON summary instead of sending")
	framing := flag.String("framing", "vmc", "Framing for -decode: vmc or osc")
	flag.Parse()

	if (*pcapPath == "") == (*dbPath == "") {
		log.Fatal("exactly one of -pcap or -db is required")
	}
	if *dbPath != "" && *sessionID == "" {
		log.Fatal("-session is required with -db")
	}
	if (*to == "") == !*decode {
		log.Fatal("exactly one of -to or -decode is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out sink
	var decoder *decodeSink
	if *decode {
		f, err := osc.ParseFraming(*framing)
		if err != nil {
			log.Fatal(err)
		}
		decoder = newDecodeSink(f, vmc.DefaultTranslations())
		out = decoder
	} else {
		s, err := newUDPSink(*to)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", *to, err)
		}
		defer s.Close()
		out = s
	}

	var (
		n   int
		err error
	)
	if *pcapPath != "" {
		f, ferr := os.Open(*pcapPath)
		if ferr != nil {
			log.Fatalf("Failed to open capture: %v", ferr)
		}
		defer f.Close()
		n, err = replayPCAP(ctx, f, network.PCAPReplayConfig{Port: *port, SpeedMultiplier: *speed}, out)
	} else {
		store, oerr := db.Open(*dbPath)
		if oerr != nil {
			log.Fatalf("Failed to open database: %v", oerr)
		}
		defer store.Close()
		n, err = replaySession(ctx, store, *sessionID, *speed, out)
	}
	if err != nil && err != context.Canceled {
		log.Printf("Replay stopped after %d datagrams: %v", n, err)
	} else {
		log.Printf("Replayed %d datagrams", n)
	}

	if decoder != nil {
		if err := decoder.WriteSummary(os.Stdout); err != nil {
			log.Fatalf("Failed to write summary: %v", err)
		}
	}
}
