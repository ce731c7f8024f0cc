// Command radar-udp ingests CSI frames from a UDP socket, runs the radar
// detection core, and forwards each (jitter, wander) pair to a configured
// UDP peer, announcing itself on the network via DNS-SD so a viewer can
// find it without typing an IP, using the standard
// Config/NewService/NewResponder/Add/Respond sequence.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/brutella/dnssd"
	"github.com/spf13/pflag"
	"github.com/wifi-csi/radar/internal/config"
	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/telemetry"
	"github.com/wifi-csi/radar/internal/wire"
)

const dnssdServiceType = "_csi-radar._udp"

func main() {
	cfg := config.Default()

	listenAddr := pflag.StringP("listen", "l", ":7890", "UDP address to receive raw CSI frame datagrams on")
	sendAddr := pflag.String("send", "127.0.0.1:7891", "UDP address to send (jitter, wander) datagrams to")
	serviceName := pflag.StringP("name", "n", "", "DNS-SD service name (default: hostname)")
	configFile := pflag.StringP("config", "c", "", "YAML configuration file")
	help := pflag.Bool("help", false, "Display help text.")

	fs := pflag.CommandLine
	config.BindFlags(&cfg, fs)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - CSI radar core with UDP ingestion and output\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *configFile != "" {
		loaded, err := config.LoadYAML(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "radar-udp: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Validate()

	listenConn, err := net.ListenPacket("udp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-udp: listen: %s\n", err)
		os.Exit(1)
	}
	defer listenConn.Close()

	sendUDPAddr, err := net.ResolveUDPAddr("udp", *sendAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-udp: resolve send address: %s\n", err)
		os.Exit(1)
	}
	sendConn, err := net.DialUDP("udp", nil, sendUDPAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-udp: dial send address: %s\n", err)
		os.Exit(1)
	}
	defer sendConn.Close()

	announce(*serviceName, *listenAddr)

	ctx := engine.New(cfg)
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) {
		if _, err := sendConn.Write(wire.EncodeInfo(info)); err != nil {
			telemetry.Warnf("radar-udp: failed to send info datagram: %s", err)
		}
	})
	if err := ctx.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "radar-udp: start: %s\n", err)
		os.Exit(1)
	}
	defer ctx.Stop()

	telemetry.Infof("radar-udp: listening for CSI frames on %s, forwarding to %s", *listenAddr, *sendAddr)

	buf := make([]byte, 65536)
	for {
		n, _, err := listenConn.ReadFrom(buf)
		if err != nil {
			telemetry.Errorf("radar-udp: read: %s", err)
			return
		}

		raw, err := wire.DecodeFrame(buf[:n])
		if err != nil {
			telemetry.Debugf("radar-udp: malformed datagram dropped: %s", err)
			continue
		}

		if err := ctx.Ingest(raw); err != nil {
			telemetry.Debugf("radar-udp: frame dropped: %s", err)
		}
	}
}

func announce(name, listenAddr string) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		telemetry.Warnf("DNS-SD: could not parse listen address %q: %s", listenAddr, err)
		return
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		telemetry.Warnf("DNS-SD: could not parse port %q: %s", portStr, err)
		return
	}

	if name == "" {
		name, _ = os.Hostname()
		if name == "" {
			name = "csi-radar"
		}
	}

	svcCfg := dnssd.Config{Name: name, Type: dnssdServiceType, Port: port} //nolint:exhaustruct
	sv, err := dnssd.NewService(svcCfg)
	if err != nil {
		telemetry.Warnf("DNS-SD: failed to create service: %s", err)
		return
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		telemetry.Warnf("DNS-SD: failed to create responder: %s", err)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		telemetry.Warnf("DNS-SD: failed to add service: %s", err)
		return
	}

	telemetry.Infof("DNS-SD: announcing %s on port %d as %q", dnssdServiceType, port, name)
	go func() {
		if err := rp.Respond(context.Background()); err != nil {
			telemetry.Warnf("DNS-SD: responder error: %s", err)
		}
	}()
}
