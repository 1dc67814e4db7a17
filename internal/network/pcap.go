package network

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/vmc-listener/internal/monitoring"
)

// PCAPPacket is one UDP payload from a capture file.
type PCAPPacket struct {
	Payload   []byte
	Timestamp time.Time
	Source    *net.UDPAddr
	DstPort   int
}

// PCAPReplayConfig controls ReadPCAP.
type PCAPReplayConfig struct {
	// Port keeps only datagrams sent to this UDP port. Zero keeps all.
	Port int
	// SpeedMultiplier paces delivery by capture timestamps (1.0 = real
	// time, 2.0 = twice as fast). Zero delivers as fast as possible.
	SpeedMultiplier float64
}

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func openCapture(r io.Reader) (packetDataSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	if bytes.Equal(magic, pcapngMagic) {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// ReadPCAP calls handle for every UDP payload in a pcap or pcapng stream,
// in capture order. It returns the number of payloads delivered. A handle
// error stops the replay and is returned.
func ReadPCAP(ctx context.Context, r io.Reader, cfg PCAPReplayConfig, handle func(PCAPPacket) error) (int, error) {
	src, err := openCapture(r)
	if err != nil {
		return 0, err
	}
	linkType := src.LinkType()

	var (
		delivered int
		last      time.Time
		started   = time.Now()
	)
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("PCAP replay complete: %d datagrams in %v", delivered, time.Since(started))
			return delivered, nil
		}
		if err != nil {
			return delivered, fmt.Errorf("read capture: %w", err)
		}

		pkt, ok := decodeUDP(data, linkType, ci.Timestamp)
		if !ok || (cfg.Port != 0 && pkt.DstPort != cfg.Port) {
			continue
		}

		if cfg.SpeedMultiplier > 0 && !last.IsZero() {
			delay := time.Duration(float64(ci.Timestamp.Sub(last)) / cfg.SpeedMultiplier)
			if delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					return delivered, ctx.Err()
				case <-t.C:
				}
			}
		}
		last = ci.Timestamp

		if err := handle(pkt); err != nil {
			return delivered, err
		}
		delivered++
	}
}

func decodeUDP(data []byte, linkType layers.LinkType, ts time.Time) (PCAPPacket, bool) {
	packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok || len(udp.Payload) == 0 {
		return PCAPPacket{}, false
	}
	pkt := PCAPPacket{
		Payload:   append([]byte(nil), udp.Payload...),
		Timestamp: ts,
		DstPort:   int(udp.DstPort),
	}
	if nl := packet.NetworkLayer(); nl != nil {
		ip := net.IP(append([]byte(nil), nl.NetworkFlow().Src().Raw()...))
		pkt.Source = &net.UDPAddr{IP: ip, Port: int(udp.SrcPort)}
	}
	return pkt, true
}

// WritePCAP writes packets as Ethernet/IPv4/UDP frames addressed to dst.
// Packets without a Source are sent from 127.0.0.1:39539.
func WritePCAP(w io.Writer, dst *net.UDPAddr, packets []PCAPPacket) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("write capture header: %w", err)
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	for i, p := range packets {
		src := p.Source
		if src == nil {
			src = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 39539}
		}
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    src.IP.To4(),
			DstIP:    dst.IP.To4(),
		}
		udp := &layers.UDP{SrcPort: layers.UDPPort(src.Port), DstPort: layers.UDPPort(dst.Port)}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return err
		}
		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(p.Payload)); err != nil {
			return fmt.Errorf("serialize packet %d: %w", i, err)
		}
		frame := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: p.Timestamp, CaptureLength: len(frame), Length: len(frame)}
		if err := pw.WritePacket(ci, frame); err != nil {
			return fmt.Errorf("write packet %d: %w", i, err)
		}
	}
	return nil
}
