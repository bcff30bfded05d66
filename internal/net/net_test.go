package net

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/game"
)

const longJustification = "Both of these changed how far an idea could travel."

type approveJudge struct{}

func (approveJudge) Evaluate(context.Context, game.JudgeRequest) game.Ruling {
	return game.Ruling{Approved: true, Reasoning: "ok"}
}

// autoClient answers every request on conn the way a sensible player would.
// It returns the game_over message, or an error if the stream ends early.
func autoClient(conn io.ReadWriter) (ServerMessage, error) {
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return ServerMessage{}, err
		}
		if msg.Type == "game_over" {
			return msg, nil
		}
		if msg.Type != "request" {
			continue
		}
		var reply ClientMessage
		switch msg.State.TurnPhase {
		case "Player Handoff":
			reply = ClientMessage{Type: "ready", Name: msg.State.CurrentName}
		case "Making Connection":
			reply = ClientMessage{Type: "justify", Text: longJustification}
		default:
			idx := 0
			for i, c := range msg.State.Hand {
				if c.Special == "" {
					idx = i
					break
				}
			}
			reply = ClientMessage{Type: "select", Index: &idx}
		}
		if err := enc.Encode(reply); err != nil {
			return ServerMessage{}, err
		}
	}
}

func scriptedInput(turns int) io.Reader {
	return strings.NewReader(strings.Repeat("1\n"+longJustification+"\n", turns))
}

func TestBuildStateViewHidesOtherHands(t *testing.T) {
	players := []*game.Player{
		game.NewPlayer("Ann", game.DriverInteractive),
		game.NewPlayer("Ben", game.DriverRemote),
	}
	sess, err := game.NewSession(game.SessionConfig{Mode: game.ModeOnline, Players: players, Judge: approveJudge{}, Seed: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Apply(game.Action{Type: game.ActionStart}); err != nil {
		t.Fatal(err)
	}

	sv := BuildStateView(sess.Snapshot(1))
	if sv.Seat != 1 || sv.IsYourTurn {
		t.Errorf("unexpected seat info %+v", sv)
	}
	if len(sv.Hand) != game.InitialHandSize {
		t.Errorf("own hand has %d cards", len(sv.Hand))
	}
	if len(sv.Seats[0].Hand) != 0 || sv.Seats[0].HandCount != game.InitialHandSize {
		t.Errorf("Ann's hand leaked: %+v", sv.Seats[0])
	}
	if sv.Code != sess.Code() || sv.Anchor == nil || sv.CurrentName != "Ann" {
		t.Errorf("missing table info %+v", sv)
	}
}

func TestToAction(t *testing.T) {
	sv := &StateView{Hand: []CardView{{Index: 0, ID: "telegraph"}, {Index: 1, ID: "venice"}}}
	one, nine := 1, 9

	cases := []struct {
		msg  ClientMessage
		want game.Action
	}{
		{ClientMessage{Type: "select", Index: &one}, game.Action{Type: game.ActionSelectCard, Player: 2, CardID: "venice"}},
		{ClientMessage{Type: "select", CardID: "telegraph"}, game.Action{Type: game.ActionSelectCard, Player: 2, CardID: "telegraph"}},
		{ClientMessage{Type: "select", Index: &nine}, game.Action{Type: game.ActionSelectCard, Player: 2}},
		{ClientMessage{Type: "cancel"}, game.Action{Type: game.ActionCancel, Player: 2}},
		{ClientMessage{Type: "justify", OptionID: "opt-1"}, game.Action{Type: game.ActionJustify, Player: 2, OptionID: "opt-1"}},
		{ClientMessage{Type: "ready", Name: "Cy"}, game.Action{Type: game.ActionAcknowledgeHandoff, Player: 2, Name: "Cy"}},
	}
	for _, c := range cases {
		if got := ToAction(c.msg, 2, sv); got != c.want {
			t.Errorf("ToAction(%+v) = %+v, want %+v", c.msg, got, c.want)
		}
	}
}

// TestSharedLinkPassAndPlay runs a pass-and-play match where every seat
// shares one connection, as on a single device.
func TestSharedLinkPassAndPlay(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()
	link := NewLink(serverSide)

	names := []string{"Ann", "Ben", "Cy"}
	var players []*game.Player
	var controllers []game.PlayerController
	var seats []*SeatController
	for i, n := range names {
		players = append(players, game.NewPlayer(n, game.DriverPassAndPlay))
		sc := NewSeatController(link, i, i == 0)
		seats = append(seats, sc)
		controllers = append(controllers, sc)
	}
	sess, err := game.NewSession(game.SessionConfig{Mode: game.ModeLocal, Players: players, Judge: approveJudge{}, Seed: 8})
	if err != nil {
		t.Fatal(err)
	}
	m, err := game.NewMatch(sess, controllers, game.MatchConfig{})
	if err != nil {
		t.Fatal(err)
	}

	clientDone := make(chan ServerMessage, 1)
	go func() {
		msg, _ := autoClient(clientSide)
		clientDone <- msg
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	winner, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := seats[0].SendGameOver(winner, "done"); err != nil {
		t.Fatal(err)
	}
	if got := <-clientDone; got.Type != "game_over" || got.Winner != winner {
		t.Errorf("client saw %+v", got)
	}
}

func TestHostSoloMatch(t *testing.T) {
	var out bytes.Buffer
	h := &Host{
		Mode:      game.ModeSolo,
		Names:     []string{"Ann"},
		Opponents: 2,
		Judge:     approveJudge{},
		Seed:      12,
		In:        scriptedInput(400),
		Out:       &out,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	winner, err := h.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	if winner < 0 || winner > 2 {
		t.Fatalf("winner = %d", winner)
	}
	text := out.String()
	for _, want := range []string{"Session code", "GAME OVER", "wins the match", "Bot 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("terminal output missing %q", want)
		}
	}
}

func TestHostOnlineMatch(t *testing.T) {
	ready := make(chan string, 1)
	var out bytes.Buffer
	h := &Host{
		Mode:   game.ModeOnline,
		Names:  []string{"Ann"},
		Port:   "0",
		Remote: 1,
		Judge:  approveJudge{},
		Seed:   5,
		In:     scriptedInput(400),
		Out:    &out,
		Ready:  ready,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var remote ServerMessage
	var remoteErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := <-ready
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			remoteErr = err
			return
		}
		defer conn.Close()
		if err := json.NewEncoder(conn).Encode(ClientMessage{Type: "join", Name: "Ben"}); err != nil {
			remoteErr = err
			return
		}
		remote, remoteErr = autoClient(conn)
	}()

	winner, err := h.Run(ctx)
	wg.Wait()
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	if remoteErr != nil {
		t.Fatalf("remote: %v", remoteErr)
	}
	if remote.Type != "game_over" || remote.Winner != winner {
		t.Errorf("remote saw %+v, host winner %d", remote, winner)
	}
}

func TestClientPromptsForHandoff(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()

	var out bytes.Buffer
	c := NewClient(clientSide, strings.NewReader("Ben\n"), &out, "")
	done := make(chan error, 1)
	go func() { done <- c.RunREPL(context.Background()) }()

	link := NewLink(serverSide)
	sv := &StateView{TurnPhase: "Player Handoff", CurrentName: "Ben"}
	if err := link.Send(ServerMessage{Type: "request", State: sv}); err != nil {
		t.Fatal(err)
	}
	reply, err := link.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type != "ready" || reply.Name != "Ben" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if err := link.Send(ServerMessage{Type: "game_over", Result: "bye"}); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatalf("repl: %v", err)
	}
	if !strings.Contains(out.String(), "Pass the device to Ben") {
		t.Errorf("handoff screen not shown:\n%s", out.String())
	}
}
