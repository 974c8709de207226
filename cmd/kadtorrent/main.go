// Command kadtorrent is a thin reactor binary for manually exercising
// dht.Server: it owns a UDP socket and a clock, and does nothing a
// caller of the dht package couldn't do itself. No DHT logic lives
// here.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/hlessner/kadtorrent/dht"
)

func usage() {
	fmt.Printf(`%s [options]

    -p port          UDP port to listen on (default 6881)
    -id hex          160-bit node ID as 40 hex chars (default: random)
    -router host:port Router node to bootstrap from; may be repeated
`, os.Args[0])
	os.Exit(2)
}

type routerList []string

func (r *routerList) String() string { return fmt.Sprint([]string(*r)) }
func (r *routerList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	var port int
	var idHex string
	var routers routerList

	flag.Usage = usage
	flag.IntVar(&port, "p", 6881, "")
	flag.StringVar(&idHex, "id", "", "")
	flag.Var(&routers, "router", "")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ownID := dht.GenID()
	if idHex != "" {
		id, err := dht.IDFromHex(idHex)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -id")
		}
		ownID = id
	}

	routerAddrs := make([]*net.UDPAddr, 0, len(routers))
	for _, r := range routers {
		addr, err := net.ResolveUDPAddr("udp", r)
		if err != nil {
			logger.Fatal().Err(err).Str("router", r).Msg("could not resolve router address")
		}
		routerAddrs = append(routerAddrs, addr)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		logger.Fatal().Err(err).Int("port", port).Msg("could not open UDP socket")
	}
	defer conn.Close()

	server := dht.NewServer(ownID, routerAddrs, time.Now())
	server.Logger = logger
	logger.Info().Str("id", ownID.String()).Int("port", port).Msg("listening")

	if len(routerAddrs) > 0 {
		server.AddRequest(dht.ClientRequest{Kind: dht.ReqBootstrap}, time.Now())
	}

	runReactor(server, conn, &logger)
}

// runReactor is the single-threaded event loop: it blocks on the UDP
// socket with a read deadline set from the server's own timeout
// schedule, and drains every queued event after each input before
// waiting again. No goroutines beyond main.
func runReactor(server *dht.Server, conn *net.UDPConn, logger *zerolog.Logger) {
	buf := make([]byte, 64*1024)
	for {
		deadline, ok := server.PollTimeout()
		if !ok {
			deadline = time.Now().Add(time.Minute)
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			logger.Fatal().Err(err).Msg("could not set read deadline")
		}

		n, addr, err := conn.ReadFromUDP(buf)
		switch {
		case errTimeout(err):
			server.Tick(time.Now())
		case err != nil:
			logger.Error().Err(err).Msg("udp read failed")
			return
		default:
			cp := make([]byte, n)
			copy(cp, buf[:n])
			if err := server.Receive(cp, addr, time.Now()); err != nil {
				logger.Debug().Err(err).Stringer("addr", addr).Msg("could not process datagram")
			}
		}

		drainEvents(server, conn, logger)
	}
}

func errTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func drainEvents(server *dht.Server, conn *net.UDPConn, logger *zerolog.Logger) {
	for {
		ev, ok := server.PollEvent()
		if !ok {
			return
		}
		switch ev.Kind {
		case dht.EventTransmit, dht.EventReply:
			if _, err := conn.WriteToUDP(ev.Data, ev.Addr); err != nil {
				logger.Debug().Err(err).Stringer("addr", ev.Addr).Msg("send failed")
				server.SetFailed(ev.Addr)
			}
		case dht.EventFoundPeers:
			logger.Info().Int("count", len(ev.Peers)).Msg("found peers")
		case dht.EventBootstrapped:
			logger.Info().Msg("bootstrap complete")
		}
	}
}
