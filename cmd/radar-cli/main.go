// Command radar-cli is an interactive front-end for the radar core: it
// ingests CSI frames from a UDP socket and prints jitter/wander as they
// arrive, reading single keystrokes in raw mode (via github.com/pkg/term)
// so train-start/train-stop/quit need no Enter key.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/term"
	"github.com/spf13/pflag"
	"github.com/wifi-csi/radar/internal/config"
	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/telemetry"
	"github.com/wifi-csi/radar/internal/wire"
)

func main() {
	cfg := config.Default()

	listenAddr := pflag.StringP("listen", "l", ":7890", "UDP address to receive raw CSI frame datagrams on")
	configFile := pflag.StringP("config", "c", "", "YAML configuration file")
	timestampFormat := pflag.StringP("timestamp-format", "T", "", "Precede each printed line with a 'strftime' format time stamp")
	help := pflag.Bool("help", false, "Display help text.")
	config.BindFlags(&cfg, pflag.CommandLine)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - interactive CSI radar console\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Keys: t = train start, s = train stop, q = quit\n\n")
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
			fmt.Fprintf(os.Stderr, "radar-cli: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Validate()

	listenConn, err := net.ListenPacket("udp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-cli: listen: %s\n", err)
		os.Exit(1)
	}
	defer listenConn.Close()

	ctx := engine.New(cfg)
	ctx.SetCallbacks(nil, func(info engine.RadarInfo) {
		fmt.Printf("\r%sjitter=%.4f wander=%.4f          ", linePrefix(*timestampFormat), info.WaveformJitter, info.WaveformWander)
	})
	if err := ctx.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "radar-cli: start: %s\n", err)
		os.Exit(1)
	}
	defer ctx.Stop()

	go ingestLoop(listenConn, ctx)

	runKeyLoop(ctx)
}

// linePrefix renders format (an empty string disables the prefix entirely)
// against the current time, matching kissutil.go's --timestamp-format option.
func linePrefix(format string) string {
	if format == "" {
		return ""
	}
	formatted, err := strftime.Format(format, time.Now())
	if err != nil {
		return ""
	}
	return "[" + formatted + "] "
}

func ingestLoop(conn net.PacketConn, ctx *engine.Context) {
	buf := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			telemetry.Errorf("radar-cli: read: %s", err)
			return
		}
		raw, err := wire.DecodeFrame(buf[:n])
		if err != nil {
			telemetry.Debugf("radar-cli: malformed datagram dropped: %s", err)
			continue
		}
		if err := ctx.Ingest(raw); err != nil {
			telemetry.Debugf("radar-cli: frame dropped: %s", err)
		}
	}
}

// runKeyLoop opens the controlling terminal in raw mode and dispatches
// t/s/q keystrokes until quit, matching serial_port_open's term.Open +
// term.RawMode pairing but against /dev/tty rather than a serial device.
func runKeyLoop(ctx *engine.Context) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radar-cli: could not open controlling terminal in raw mode: %s\n", err)
		fmt.Fprintf(os.Stderr, "radar-cli: falling back to Ctrl-C to exit\n")
		select {}
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Println("t = train start, s = train stop, q = quit")

	buf := make([]byte, 1)
	for {
		n, err := tty.Read(buf)
		if err != nil || n == 0 {
			return
		}
		switch buf[0] {
		case 't':
			ctx.TrainStart()
			fmt.Print("\ntraining started\n")
		case 's':
			wander, jitter, err := ctx.TrainStop()
			if err != nil {
				fmt.Printf("\ntraining stop failed: %s\n", err)
			} else {
				fmt.Printf("\nthresholds: wander=%.4f jitter=%.4f\n", wander, jitter)
			}
		case 'q':
			return
		}
	}
}
