// Command server runs the ripple telemetry server (spec.md §4.D): a UDP
// endpoint that ingests Data/RegisterNode/UnregisterNode records from
// clients, maintains the node/edge registry, and answers
// RequestAnalytics/RequestTopology with rendered snapshots. Structured as
// the teacher's cmd/cc/main.go is: main() delegates to a run() that returns
// an error, flags are parsed with the standard library, logging is wired
// through log/slog before anything else runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ripplenet/ripple/internal/config"
	"github.com/ripplenet/ripple/internal/diagnostics"
	"github.com/ripplenet/ripple/internal/model"
	"github.com/ripplenet/ripple/internal/telemetry"
	"github.com/ripplenet/ripple/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// intFlag distinguishes an explicitly-set flag from its zero value, the
// way the teacher's cmd/cc/main.go does for flags that must override a
// config-file default only when the user actually passed them.
type intFlag struct {
	v   int
	set bool
}

func (f *intFlag) String() string { return strconv.Itoa(f.v) }
func (f *intFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v, f.set = n, true
	return nil
}

func run() error {
	var port intFlag
	flag.Var(&port, "p", "UDP port to listen on")
	flag.Var(&port, "port", "UDP port to listen on (alias of -p)")
	bindAddr := flag.String("s", "127.0.0.1", "address to bind (alias: --server)")
	flag.StringVar(bindAddr, "server", "127.0.0.1", "address to bind")
	configPath := flag.String("config", config.DefaultPath, "path to ripple.yaml")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	listenPort := 8080
	if port.set {
		listenPort = port.v
	}

	addr := net.JoinHostPort(*bindAddr, strconv.Itoa(listenPort))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer conn.Close()

	slog.Info("server listening", "addr", addr, "max_nodes", cfg.MaxNodes, "rate_window", cfg.RateWindow())

	sink := diagnostics.New(slog.Default())
	now := time.Now()
	engine := telemetry.New(
		telemetry.Config{MaxNodes: cfg.MaxNodes, RateWindow: cfg.RateWindow(), EwmaAlpha: cfg.EwmaAlpha},
		sink, now, uint64(now.UnixMicro()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(gctx, conn, engine, sink, cfg)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Unblock the blocking ReadFromUDP call in serve() on shutdown.
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server: shut down")
	return nil
}

// serve is the server's single-threaded event loop (spec.md §5: exactly one
// suspension point, the blocking datagram read). All engine ingest and
// snapshot calls happen synchronously on this goroutine.
func serve(ctx context.Context, conn *net.UDPConn, engine *telemetry.Engine, sink *diagnostics.Sink, cfg config.Config) error {
	buf := make([]byte, 65536)
	cleanupTicker := time.NewTicker(cfg.RateWindow())
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cleanupTicker.C:
			engine.CleanupStale(cfg.NodeTTL(), cfg.EdgeTTL(), time.Now())
			continue
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			sink.SocketError("read", err)
			continue
		}

		now := time.Now()
		typ, payload, err := wire.ReadFrameType(buf[:n])
		if err != nil {
			sink.CodecError(addr.String(), err)
			continue
		}
		rec, err := wire.DecodeRecord(typ, payload)
		if err != nil {
			sink.CodecError(addr.String(), err)
			continue
		}

		switch r := rec.(type) {
		case model.RegisterNode:
			engine.OnRegister(r, addr.String(), now)
		case model.UnregisterNode:
			engine.OnUnregister(r, now)
		case model.Data:
			ack := engine.OnData(r, addr.String(), now, uint64(now.UnixMicro()))
			sendRecord(conn, addr, ack, sink)
		case model.RequestAnalytics:
			snap := engine.ExportAnalytics(now, uint64(now.UnixMicro()))
			sendRecord(conn, addr, model.Analytics{Snapshot: snap}, sink)
		case model.RequestTopology:
			snap := engine.ExportTopology(now, uint64(now.UnixMicro()))
			sendRecord(conn, addr, model.Topology{Snapshot: snap}, sink)
		default:
			sink.CodecError(addr.String(), wire.ErrUnknownRecordType)
		}
	}
}

func sendRecord(conn *net.UDPConn, addr *net.UDPAddr, rec any, sink *diagnostics.Sink) {
	typ, payload, err := wire.EncodeRecord(rec)
	if err != nil {
		sink.CodecError(addr.String(), err)
		return
	}
	var buf netBuffer
	if err := wire.WriteFrame(&buf, typ, payload); err != nil {
		sink.CodecError(addr.String(), err)
		return
	}
	if _, err := conn.WriteToUDP(buf.b, addr); err != nil {
		sink.SocketError("write", err)
	}
}

// netBuffer is a minimal io.Writer adapter so wire.WriteFrame can compose a
// single datagram payload before the one WriteToUDP syscall.
type netBuffer struct{ b []byte }

func (n *netBuffer) Write(p []byte) (int, error) {
	n.b = append(n.b, p...)
	return len(p), nil
}
