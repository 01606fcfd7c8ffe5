package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
	"github.com/wippyai/netcore/socket"
)

func main() {
	var (
		connectAddr = flag.String("connect", "", "Connect to host:port and echo stdin lines through it")
		listenAddr  = flag.String("listen", "", "Run an echo server on host:port")
		unixSocket  = flag.Bool("unix", false, "Treat the -connect/-listen address as a unix socket path")
		timeout     = flag.Duration("timeout", 5*time.Second, "Connect and receive timeout (0 waits forever)")
		nonBlocking = flag.Bool("nb", false, "Use non-blocking sockets driven by poll")
		verbose     = flag.Bool("v", false, "Debug logging and socket statistics on exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if (*connectAddr == "") == (*listenAddr == "") {
		fmt.Fprintln(os.Stderr, "Usage: sockcat -connect <host:port> [-timeout 5s] [-nb] [-v]")
		fmt.Fprintln(os.Stderr, "       sockcat -listen <host:port> [-nb] [-v]")
		fmt.Fprintln(os.Stderr, "       sockcat -unix -connect|-listen <path>")
		fmt.Fprintln(os.Stderr, "       sockcat -connect <host:port> -i  (interactive mode)")
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		socket.SetLogger(log)

		metrics := socket.NewMetrics()
		if err := metrics.Register(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		socket.SetMetrics(metrics)
		defer printStats(reg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch {
	case *interactive:
		if *connectAddr == "" {
			err = errors.New("interactive mode needs -connect")
			break
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			err = errors.New("interactive mode needs a terminal")
			break
		}
		var ep endpoint.Endpoint
		if ep, err = target(ctx, *connectAddr, *unixSocket); err == nil {
			err = runInteractive(ep, *timeout)
		}
	case *connectAddr != "":
		var ep endpoint.Endpoint
		if ep, err = target(ctx, *connectAddr, *unixSocket); err == nil {
			err = runClient(ctx, ep, *timeout, *nonBlocking)
		}
	default:
		var ep endpoint.Endpoint
		if ep, err = target(ctx, *listenAddr, *unixSocket); err == nil {
			err = runServer(ctx, ep, *nonBlocking)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// target turns a command-line address into an endpoint.
func target(ctx context.Context, addr string, local bool) (endpoint.Endpoint, error) {
	if local {
		return endpoint.Local(addr), nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return endpoint.Endpoint{}, neterrors.InvalidEndpoint(neterrors.PhaseResolve, addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return endpoint.Endpoint{}, neterrors.InvalidEndpoint(neterrors.PhaseResolve, addr, err)
	}
	return endpoint.Resolve(ctx, host, uint16(port))
}

func runClient(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration, nonBlocking bool) (err error) {
	ss, err := socket.DefaultConfig().
		WithConnectTimeout(timeout).
		WithNoDelay(true).
		Dial(ep)
	if err != nil {
		return fmt.Errorf("connect %s: %w", ep, err)
	}
	defer func() { err = multierr.Append(err, ss.Close()) }()

	if nonBlocking {
		if err := ss.SetBlocking(false); err != nil {
			return err
		}
	} else if timeout > 0 {
		if err := ss.SetReceiveTimeout(timeout); err != nil {
			return err
		}
	}
	local, _ := ss.Address()
	fmt.Fprintf(os.Stderr, "Connected %s -> %s\n", local, ep)

	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 4096)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := append(append([]byte(nil), scanner.Bytes()...), '\n')
		if _, err := ss.Write(line); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		for want := len(line); want > 0; {
			if nonBlocking {
				ready, err := ss.Poll(timeout, socket.SelectRead)
				if err != nil {
					return err
				}
				if !ready {
					return neterrors.TimedOut(neterrors.PhaseReceive, "no echo within "+timeout.String())
				}
			}
			n, err := ss.ReceiveBytes(buf[:min(want, len(buf))])
			if err != nil {
				return fmt.Errorf("receive: %w", err)
			}
			if n == 0 {
				return errors.New("connection closed by peer")
			}
			os.Stdout.Write(buf[:n])
			want -= n
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return ss.ShutdownSend()
}

// runServer echoes every connection from a single select loop until ctx
// is cancelled.
func runServer(ctx context.Context, ep endpoint.Endpoint, nonBlocking bool) (err error) {
	srv, err := socket.Listen(ep, 0)
	if err != nil {
		return fmt.Errorf("listen %s: %w", ep, err)
	}
	if ep.Family() == endpoint.FamilyLocal {
		defer os.Remove(ep.Path())
	}

	var clients []socket.StreamSocket
	defer func() {
		socks := []*socket.Socket{&srv.Socket}
		for i := range clients {
			socks = append(socks, &clients[i].Socket)
		}
		err = multierr.Append(err, socket.CloseAll(socks...))
	}()

	bound, _ := srv.Address()
	if ep.Family() == endpoint.FamilyLocal {
		bound = ep
	}
	fmt.Fprintf(os.Stderr, "Listening on %s\n", bound)

	buf := make([]byte, 4096)
	for ctx.Err() == nil {
		read := []socket.Socket{srv.Socket}
		for _, c := range clients {
			read = append(read, c.Socket)
		}
		var write, except []socket.Socket

		n, err := socket.Select(&read, &write, &except, 200*time.Millisecond)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		for _, s := range read {
			if s.Equal(srv.Socket) {
				conn, err := srv.AcceptConnection()
				if err != nil {
					if errors.Is(err, socket.ErrWouldBlock) {
						continue
					}
					return fmt.Errorf("accept: %w", err)
				}
				if nonBlocking {
					if err := conn.SetBlocking(false); err != nil {
						conn.Close()
						return err
					}
				}
				peer, _ := conn.PeerAddress()
				fmt.Fprintf(os.Stderr, "Accepted %s\n", peer)
				clients = append(clients, conn)
				continue
			}

			idx := clientIndex(clients, s)
			if idx < 0 {
				continue
			}
			c := &clients[idx]
			n, err := c.ReceiveBytes(buf)
			if errors.Is(err, socket.ErrWouldBlock) {
				continue
			}
			if err == nil && n > 0 {
				_, err = c.Write(buf[:n])
			}
			if err != nil || n == 0 {
				peer, _ := c.PeerAddress()
				fmt.Fprintf(os.Stderr, "Closed %s\n", peer)
				c.Close()
				clients = append(clients[:idx], clients[idx+1:]...)
			}
		}
	}
	return nil
}

func clientIndex(clients []socket.StreamSocket, s socket.Socket) int {
	for i := range clients {
		if clients[i].Equal(s) {
			return i
		}
	}
	return -1
}

func printStats(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "\n--- socket stats ---")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf("{%s=%s}", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(os.Stderr, "%s%s %g\n", mf.GetName(), label, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(os.Stderr, "%s%s %g\n", mf.GetName(), label, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(os.Stderr, "%s%s count=%d sum=%gs\n", mf.GetName(), label, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	for _, line := range socket.OpenSockets() {
		fmt.Fprintf(os.Stderr, "still open: %s\n", line)
	}
}
