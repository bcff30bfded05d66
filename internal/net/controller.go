package net

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
)

// Link is one JSON connection to a client terminal. Several seats may share
// a link when players pass one device around.
type Link struct {
	enc *json.Encoder
	dec *json.Decoder
	wmu sync.Mutex // serializes writes (notifications interleave with requests)
	rmu sync.Mutex // one outstanding request at a time
}

// NewLink wraps a connection.
func NewLink(conn io.ReadWriter) *Link {
	return &Link{enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

// Send writes one server message.
func (l *Link) Send(msg ServerMessage) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	return l.enc.Encode(msg)
}

// Recv reads one client message.
func (l *Link) Recv() (ClientMessage, error) {
	var msg ClientMessage
	err := l.dec.Decode(&msg)
	return msg, err
}

// SeatController implements game.PlayerController for a seat played from a
// client terminal.
type SeatController struct {
	link   *Link
	seat   int
	notify bool // forward events; only one seat per shared link does
}

// NewSeatController creates a controller for seat on link.
func NewSeatController(link *Link, seat int, notify bool) *SeatController {
	return &SeatController{link: link, seat: seat, notify: notify}
}

// RequestAction implements game.PlayerController.
func (sc *SeatController) RequestAction(ctx context.Context, sn *game.Snapshot) (game.Action, error) {
	sc.link.rmu.Lock()
	defer sc.link.rmu.Unlock()

	sv := BuildStateView(sn)
	if err := sc.link.Send(ServerMessage{Type: "request", State: sv}); err != nil {
		return game.Action{}, fmt.Errorf("send request: %w", err)
	}

	type reply struct {
		msg ClientMessage
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		msg, err := sc.link.Recv()
		ch <- reply{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return game.Action{}, fmt.Errorf("recv action: %w", r.err)
		}
		return ToAction(r.msg, sc.seat, sv), nil
	case <-ctx.Done():
		return game.Action{}, ctx.Err()
	}
}

// Notify implements game.PlayerController.
func (sc *SeatController) Notify(ctx context.Context, event log.GameEvent) error {
	if !sc.notify {
		return nil
	}
	return sc.link.Send(ServerMessage{Type: "notify", Event: BuildEventView(event)})
}

// SendGameOver tells the client the match is over.
func (sc *SeatController) SendGameOver(winner int, result string) error {
	return sc.link.Send(ServerMessage{Type: "game_over", Winner: winner, Result: result})
}

// Seat returns the seat index this controller drives.
func (sc *SeatController) Seat() int { return sc.seat }

// Send writes msg to the seat's terminal.
func (sc *SeatController) Send(msg ServerMessage) error {
	return sc.link.Send(msg)
}
