// Command client runs the ripple traffic-generation client (spec.md §4.E):
// a single-threaded cooperative loop that multiplexes a burst queue,
// continuous stream, and shaped profiles onto one UDP socket, renders
// inbound analytics/topology snapshots, and persists a stable client_id.txt
// across restarts (SPEC_FULL.md supplemented features).
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
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ripplenet/ripple/internal/clientid"
	"github.com/ripplenet/ripple/internal/config"
	"github.com/ripplenet/ripple/internal/model"
	"github.com/ripplenet/ripple/internal/scheduler"
	"github.com/ripplenet/ripple/internal/termview"
	"github.com/ripplenet/ripple/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	serverAddr := flag.String("s", "127.0.0.1:8080", "server address (alias: --server)")
	flag.StringVar(serverAddr, "server", "127.0.0.1:8080", "server address host:port")
	burstCount := flag.Int("burst", 0, "emit a one-shot burst of N packets at startup and exit when drained")
	configPath := flag.String("config", config.DefaultPath, "path to ripple.yaml")
	clientIDPath := flag.String("client-id-file", clientid.DefaultPath, "path to the persisted client id file")
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

	id, err := clientid.Load(*clientIDPath)
	if err != nil {
		return fmt.Errorf("load client id: %w", err)
	}
	selfNodeID := clientid.NodeID(id)
	selfDesc := model.NewDesc("ripple-client")

	raddr, err := net.ResolveUDPAddr("udp", *serverAddr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", *serverAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *serverAddr, err)
	}
	defer conn.Close()

	guard, err := termview.Acquire(os.Stdout)
	if err != nil {
		return fmt.Errorf("acquire terminal: %w", err)
	}
	defer guard.Release()

	sink := &udpSink{conn: conn}
	sched := scheduler.New(sink, selfNodeID, selfDesc, model.DomainInternal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Best-effort graceful unregister on every exit path (SPEC_FULL.md
	// "Graceful unregister on client exit").
	defer sendUnregister(conn, selfNodeID)

	now := time.Now()
	if *burstCount > 0 {
		sched.ScheduleBurst(now, *burstCount, cfg.BurstInterval(), model.ClassApi, uint32(cfg.DefaultDeclaredBytes))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return clientLoop(gctx, conn, sched, guard, *burstCount > 0)
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// udpSink adapts scheduler.PacketSink onto an already-dialed UDP socket.
type udpSink struct {
	conn *net.UDPConn
}

func (u *udpSink) SendData(d model.Data) {
	typ, payload, err := wire.EncodeRecord(d)
	if err != nil {
		slog.Debug("encode data record failed", "error", err)
		return
	}
	var buf netBuffer
	if err := wire.WriteFrame(&buf, typ, payload); err != nil {
		slog.Debug("frame data record failed", "error", err)
		return
	}
	if _, err := u.conn.Write(buf.b); err != nil {
		slog.Debug("write data record failed", "error", err)
	}
}

type netBuffer struct{ b []byte }

func (n *netBuffer) Write(p []byte) (int, error) {
	n.b = append(n.b, p...)
	return len(p), nil
}

func sendUnregister(conn *net.UDPConn, nodeID model.NodeId) {
	typ, payload, err := wire.EncodeRecord(model.UnregisterNode{NodeID: nodeID, TimestampUs: uint64(time.Now().UnixMicro())})
	if err != nil {
		return
	}
	var buf netBuffer
	if err := wire.WriteFrame(&buf, typ, payload); err != nil {
		return
	}
	_, _ = conn.Write(buf.b)
}

// clientLoop is the client's cooperative event loop (spec.md §4.E): compute
// the next deadline, poll the socket with that timeout, drain scheduled
// sends, drain inbound Ack/Analytics/Topology records.
func clientLoop(ctx context.Context, conn *net.UDPConn, sched *scheduler.Scheduler, guard *termview.Guard, exitWhenDrained bool) error {
	buf := make([]byte, 65536)
	var bar *progressbar.ProgressBar
	if exitWhenDrained {
		bar = progressbar.Default(int64(sched.BurstQueueLen()), "sending burst")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := time.Now()
		sched.Tick(now)

		if bar != nil {
			_ = bar.Set(sched.BurstQueueLen())
			if sched.Mode() == scheduler.Idle && sched.PendingAckCount() == 0 {
				_ = bar.Finish()
				return nil
			}
		}

		deadline := sched.NextDeadline(now)
		timeout := deadline.Sub(now)
		if timeout < 0 {
			timeout = 0
		}
		_ = conn.SetReadDeadline(now.Add(timeout))

		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Debug("read failed", "error", err)
			continue
		}

		typ, payload, err := wire.ReadFrameType(buf[:n])
		if err != nil {
			slog.Debug("malformed frame", "error", err)
			continue
		}
		rec, err := wire.DecodeRecord(typ, payload)
		if err != nil {
			slog.Debug("decode failed", "error", err)
			continue
		}

		switch r := rec.(type) {
		case model.Ack:
			sched.OnAck(r, time.Now())
		case model.Analytics:
			guard.Redraw(formatAnalytics(r))
		case model.Topology:
			guard.Redraw(formatTopology(r))
		}
	}
}

func formatAnalytics(a model.Analytics) string {
	return fmt.Sprintf("analytics snapshot\nunique_clients=%d total_packets=%d total_bytes=%d\n",
		a.Snapshot.Global.UniqueClients, a.Snapshot.Global.TotalPackets, a.Snapshot.Global.TotalBytes)
}

func formatTopology(t model.Topology) string {
	return fmt.Sprintf("topology snapshot\nsnapshot_seq=%d nodes=%d edges=%d removed_nodes=%d removed_edges=%d\n",
		t.Snapshot.SnapshotSeq, len(t.Snapshot.Nodes), len(t.Snapshot.Edges), len(t.Snapshot.RemovedNodes), len(t.Snapshot.RemovedEdges))
}
