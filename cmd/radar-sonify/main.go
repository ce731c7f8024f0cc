// Command radar-sonify turns the jitter stream into an audible tone: a
// sine oscillator whose frequency is modulated by the most recently
// observed jitter value.
package main

import (
	"fmt"
	"math"
	"net"
	"os"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"
	"github.com/wifi-csi/radar/internal/config"
	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/telemetry"
	"github.com/wifi-csi/radar/internal/wire"
)

const (
	sampleRate  = 44100.0
	baseFreqHz  = 220.0  // quiescent tone, no jitter
	spanFreqHz  = 880.0  // added frequency at jitter == 1
)

func main() {
	cfg := config.Default()

	listenAddr := pflag.StringP("listen", "l", ":7890", "UDP address to receive raw CSI frame datagrams on")
	configFile := pflag.StringP("config", "c", "", "YAML configuration file")
	help := pflag.Bool("help", false, "Display help text.")
	config.BindFlags(&cfg, pflag.CommandLine)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - sonify the CSI radar jitter stream\n", os.Args[0])
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
			fmt.Fprintf(os.Stderr, "radar-sonify: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Validate()

	listenConn, err := net.ListenPacket("udp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-sonify: listen: %s\n", err)
		os.Exit(1)
	}
	defer listenConn.Close()

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "radar-sonify: portaudio init: %s\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	osc := &oscillator{sampleRate: sampleRate}
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, 0, osc.fill)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-sonify: open stream: %s\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "radar-sonify: start stream: %s\n", err)
		os.Exit(1)
	}
	defer stream.Stop()

	ctx := engine.New(cfg)
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) {
		osc.setJitter(info.WaveformJitter)
	})
	if err := ctx.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "radar-sonify: start: %s\n", err)
		os.Exit(1)
	}
	defer ctx.Stop()

	telemetry.Infof("radar-sonify: listening for CSI frames on %s", *listenAddr)

	buf := make([]byte, 65536)
	for {
		n, _, err := listenConn.ReadFrom(buf)
		if err != nil {
			telemetry.Errorf("radar-sonify: read: %s", err)
			return
		}
		raw, err := wire.DecodeFrame(buf[:n])
		if err != nil {
			telemetry.Debugf("radar-sonify: malformed datagram dropped: %s", err)
			continue
		}
		if err := ctx.Ingest(raw); err != nil {
			telemetry.Debugf("radar-sonify: frame dropped: %s", err)
		}
	}
}

// oscillator is a single sine voice whose frequency tracks the most
// recently reported jitter value, read from the portaudio callback thread
// via an atomic bit pattern (no locking allowed in the audio callback).
type oscillator struct {
	sampleRate float64
	phase      float64
	jitterBits uint32
}

func (o *oscillator) setJitter(j float32) {
	atomic.StoreUint32(&o.jitterBits, math.Float32bits(j))
}

func (o *oscillator) fill(out []float32) {
	jitter := math.Float32frombits(atomic.LoadUint32(&o.jitterBits))
	freq := baseFreqHz + spanFreqHz*float64(jitter)
	step := freq / o.sampleRate

	for i := range out {
		out[i] = float32(0.2 * math.Sin(2*math.Pi*o.phase))
		o.phase += step
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
}
