// Command vmc-send sends a synthetic VMC animation to a UDP port, or
// writes it to a pcap file for replay tests.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/vmc-listener/internal/network"
	"github.com/banshee-data/vmc-listener/internal/osc"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:3333", "Destination address")
	layout := flag.String("layout", "osc", "Datagram layout: osc (standard bundles) or vmc")
	fps := flag.Float64("fps", 60, "Frames per second")
	frames := flag.Int("n", 0, "Number of frames to send (0 runs until interrupted)")
	pcapOut := flag.String("pcap", "", "Write frames to this pcap file instead of sending")
	flag.Parse()

	f, err := osc.ParseFraming(*layout)
	if err != nil {
		log.Fatal(err)
	}
	if *fps <= 0 {
		log.Fatal("fps must be positive")
	}
	dst, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", *addr, err)
	}
	period := time.Duration(float64(time.Second) / *fps)
	start := time.Now()
	gen := newFrameGenerator(f, start)

	if *pcapOut != "" {
		n := *frames
		if n <= 0 {
			n = int(*fps) * 10
		}
		if err := writeCapture(*pcapOut, dst, gen, start, period, n); err != nil {
			log.Fatalf("Failed to write capture: %v", err)
		}
		log.Printf("✓ Wrote %d frames to %s", n, *pcapOut)
		return
	}

	conn, err := net.DialUDP("udp", nil, dst)
	if err != nil {
		log.Fatalf("Failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	sent := 0
	for *frames == 0 || sent < *frames {
		select {
		case <-ctx.Done():
			log.Printf("Sent %d frames", sent)
			return
		case now := <-ticker.C:
			if _, err := conn.Write(gen.Next(now)); err != nil {
				log.Printf("send failed: %v", err)
				continue
			}
			sent++
			if sent%int(*fps*10+1) == 0 {
				log.Printf("%d frames sent", sent)
			}
		}
	}
	log.Printf("Sent %d frames to %s", sent, *addr)
}

func writeCapture(path string, dst *net.UDPAddr, gen *frameGenerator, start time.Time, period time.Duration, n int) error {
	packets := make([]network.PCAPPacket, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * period)
		packets = append(packets, network.PCAPPacket{Payload: gen.Next(ts), Timestamp: ts})
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := network.WritePCAP(out, dst, packets); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
