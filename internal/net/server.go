package net

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
)

// Host owns the session and runs a match for one of the three play modes.
// The host's own terminal always talks to the session over an in-memory pipe,
// the same way remote seats talk to it over TCP.
type Host struct {
	Mode      game.PlayMode
	Names     []string // human seat names; the first is the host's
	Opponents int      // simulated seats in solo mode
	Port      string   // online mode listen port
	Remote    int      // online mode: remote seats to wait for (0 = 1)

	Catalog       *game.Catalog
	Judge         game.Judge
	Recorder      game.Recorder
	Policy        game.ExhaustionPolicy
	Seed          int64
	RulingTimeout time.Duration
	Match         game.MatchConfig

	Logger log.EventLogger // nil for none
	Ops    *zap.Logger
	In     io.Reader // host terminal input, nil for stdin
	Out    io.Writer // host terminal output, nil for stdout

	// Ready, if set, receives the listener address once online mode is
	// accepting joins.
	Ready chan<- string
}

type seat struct {
	player *game.Player
	ctrl   game.PlayerController
	link   *SeatController // nil for simulated seats
}

// Run sets up the seats, plays the match and reports the result to every
// terminal. Returns the winning seat.
func (h *Host) Run(ctx context.Context) (int, error) {
	if h.Ops == nil {
		h.Ops = zap.NewNop()
	}
	if len(h.Names) == 0 {
		h.Names = []string{"Host"}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hostConn, hostServerConn := net.Pipe()
	defer hostConn.Close()
	defer hostServerConn.Close()
	hostLink := NewLink(hostServerConn)

	// net.Pipe is unbuffered, so the host terminal must be reading before
	// anything is sent to it.
	errCh := make(chan error, 1)
	go func() {
		client := NewClient(hostConn, h.In, h.Out, h.Names[0])
		errCh <- client.RunREPL(ctx)
	}()

	var seats []seat
	switch h.Mode {
	case game.ModeSolo:
		seats = append(seats, humanSeat(h.Names[0], game.DriverInteractive, hostLink, 0, true))
		opponents := h.Opponents
		if opponents <= 0 {
			opponents = 1
		}
		for i := 0; i < opponents; i++ {
			p := game.NewPlayer(fmt.Sprintf("Bot %d", i+1), game.DriverSimulated)
			seats = append(seats, seat{player: p, ctrl: game.NewAgent(h.seed(i + 1))})
		}

	case game.ModeLocal:
		if len(h.Names) < game.MinPlayers {
			return -1, fmt.Errorf("pass-and-play needs at least %d names", game.MinPlayers)
		}
		for i, name := range h.Names {
			seats = append(seats, humanSeat(name, game.DriverPassAndPlay, hostLink, i, i == 0))
		}

	case game.ModeOnline:
		seats = append(seats, humanSeat(h.Names[0], game.DriverInteractive, hostLink, 0, true))
		remote, closeAll, err := h.acceptSeats(ctx, len(seats))
		if err != nil {
			return -1, err
		}
		defer closeAll()
		seats = append(seats, remote...)

	default:
		return -1, fmt.Errorf("unknown play mode %s", h.Mode)
	}

	players := make([]*game.Player, len(seats))
	controllers := make([]game.PlayerController, len(seats))
	for i, s := range seats {
		players[i] = s.player
		controllers[i] = s.ctrl
	}
	sess, err := game.NewSession(game.SessionConfig{
		Mode:          h.Mode,
		Players:       players,
		Catalog:       h.Catalog,
		Judge:         h.Judge,
		Recorder:      h.Recorder,
		Logger:        h.Logger,
		Ops:           h.Ops,
		Policy:        h.Policy,
		Seed:          h.Seed,
		RulingTimeout: h.RulingTimeout,
	})
	if err != nil {
		return -1, err
	}
	for i, s := range seats {
		if s.link != nil && s.link.notify {
			_ = s.link.Send(ServerMessage{Type: "welcome", Seat: i, Code: sess.Code()})
		}
	}

	match, err := game.NewMatch(sess, controllers, h.Match)
	if err != nil {
		return -1, err
	}

	type outcome struct {
		winner int
		err    error
	}
	doneCh := make(chan outcome, 1)
	go func() {
		winner, err := match.Run(ctx)
		if err == nil {
			sess.Wait()
			result := Summary(sess, winner)
			for _, s := range seats {
				if s.link != nil && s.link.notify {
					_ = s.link.SendGameOver(winner, result)
				}
			}
		}
		doneCh <- outcome{winner, err}
	}()

	select {
	case out := <-doneCh:
		if out.err != nil {
			return -1, fmt.Errorf("match: %w", out.err)
		}
		// Let the host terminal print the result before tearing down the pipe.
		select {
		case <-errCh:
		case <-time.After(time.Second):
		}
		return out.winner, nil
	case err := <-errCh:
		if err == nil {
			// The terminal saw game_over; the match is finishing.
			out := <-doneCh
			return out.winner, out.err
		}
		cancel()
		<-doneCh
		return -1, err
	}
}

func (h *Host) seed(offset int) int64 {
	if h.Seed == 0 {
		return 0
	}
	return h.Seed + int64(offset)
}

func humanSeat(name string, driver game.DriverMode, link *Link, index int, notify bool) seat {
	sc := NewSeatController(link, index, notify)
	return seat{player: game.NewPlayer(name, driver), ctrl: sc, link: sc}
}

// acceptSeats waits for the remaining seats to join over TCP.
func (h *Host) acceptSeats(ctx context.Context, first int) ([]seat, func(), error) {
	want := h.Remote
	if want < 1 {
		want = 1
	}
	if want > game.MaxPlayers-first {
		want = game.MaxPlayers - first
	}
	taken := map[string]bool{strings.ToLower(h.Names[0]): true}
	joined, closeAll, err := AcceptSeats(ctx, h.Port, want, first, taken, h.Ops, h.Ready)
	if err != nil {
		return nil, nil, err
	}
	seats := make([]seat, len(joined))
	for i, r := range joined {
		seats[i] = seat{player: game.NewPlayer(r.Name, game.DriverRemote), ctrl: r.Ctrl, link: r.Ctrl}
	}
	return seats, closeAll, nil
}

// RemoteSeat is a player who joined over TCP.
type RemoteSeat struct {
	Name string
	Ctrl *SeatController
}

// AcceptSeats listens on port until want players have joined. Seats are
// numbered from first, and names in taken (lower-cased) are refused. The
// returned func closes every accepted connection.
func AcceptSeats(ctx context.Context, port string, want, first int, taken map[string]bool, ops *zap.Logger, ready chan<- string) ([]RemoteSeat, func(), error) {
	if ops == nil {
		ops = zap.NewNop()
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", ":"+port)
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	ops.Info("waiting for players", zap.String("addr", ln.Addr().String()), zap.Int("seats", want))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	var conns []net.Conn
	closeAll := func() {
		for _, c := range conns {
			c.Close()
		}
	}
	var seats []RemoteSeat
	for len(seats) < want {
		conn, err := ln.Accept()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("accept: %w", err)
		}

		// The join message is read with the same decoder the seat uses later,
		// so nothing buffered is lost.
		link := NewLink(conn)
		join, err := link.Recv()
		if err != nil || join.Type != "join" {
			ops.Warn("bad join", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			conn.Close()
			continue
		}
		name := strings.TrimSpace(join.Name)
		if name == "" {
			name = fmt.Sprintf("Player %d", first+len(seats)+1)
		}
		if taken[strings.ToLower(name)] {
			_ = link.Send(ServerMessage{Type: "error", Error: fmt.Sprintf("name %q is taken", name)})
			conn.Close()
			continue
		}
		taken[strings.ToLower(name)] = true
		conns = append(conns, conn)
		ops.Info("player joined", zap.String("name", name), zap.String("remote", conn.RemoteAddr().String()))
		seats = append(seats, RemoteSeat{Name: name, Ctrl: NewSeatController(link, first+len(seats), true)})
	}
	return seats, closeAll, nil
}

// Summary renders the final standings.
func Summary(sess *game.Session, winner int) string {
	sn := sess.Snapshot(-1)
	var b strings.Builder
	if winner >= 0 && winner < len(sn.Players) {
		fmt.Fprintf(&b, "%s wins the match!\n", sn.Players[winner].Name)
	}
	for _, p := range sn.Players {
		fmt.Fprintf(&b, "%-12s score %-4d rounds %d\n", p.Name, p.Score, p.RoundsWon)
	}
	return strings.TrimRight(b.String(), "\n")
}
