package net

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

// Client connects to a game host and provides a terminal REPL.
type Client struct {
	conn io.ReadWriter
	in   *bufio.Reader
	out  io.Writer
	name string
}

// NewClient creates a REPL over conn reading from in and writing to out.
func NewClient(conn io.ReadWriter, in io.Reader, out io.Writer, name string) *Client {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Client{conn: conn, in: bufio.NewReader(in), out: out, name: name}
}

// Connect dials a host, joins under name and runs the REPL.
func Connect(ctx context.Context, addr, name string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ClientMessage{Type: "join", Name: name}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	fmt.Println("Connected! Waiting for the match to start...")

	return NewClient(conn, os.Stdin, os.Stdout, name).RunREPL(ctx)
}

// RunREPL reads server messages and handles them interactively.
func (c *Client) RunREPL(ctx context.Context) error {
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		switch msg.Type {
		case "welcome":
			c.printf("%s\n", pterm.DefaultBox.WithTitle(pterm.LightCyan("ANCHORLINK")).Sprintf("Session code: %s\nYou are seat %d", msg.Code, msg.Seat+1))

		case "notify":
			c.renderEvent(msg.Event)

		case "request":
			reply, err := c.prompt(msg.State)
			if err != nil {
				return err
			}
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("send reply: %w", err)
			}

		case "error":
			c.printf("%s\n", pterm.LightRed(msg.Error))

		case "game_over":
			c.printf("\n%s\n", pterm.DefaultBox.WithTitle(pterm.LightGreen("GAME OVER")).WithTitleTopCenter().Sprint(msg.Result))
			return nil
		}
	}
}

func (c *Client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Client) renderEvent(ev *EventView) {
	if ev == nil || ev.Type == "PhaseChange" {
		return
	}
	if ev.Type == "Rejected" {
		c.printf("%s\n", pterm.LightRed("  ! "+ev.Details))
		return
	}
	phase := ev.Phase
	for len(phase) < 18 {
		phase += " "
	}
	c.printf("R%d T%-3d %s| %s\n", ev.Round, ev.Turn, phase, ev.Details)
}

// renderState draws the table: anchor, seats, piles and the viewer's hand.
func (c *Client) renderState(sv *StateView) {
	if sv == nil {
		return
	}
	var b strings.Builder
	if sv.Anchor != nil {
		fmt.Fprintf(&b, "Anchor: %s", pterm.LightYellow(sv.Anchor.Text))
		if len(sv.Anchor.Themes) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(sv.Anchor.Themes, ", "))
		}
		b.WriteString("\n")
	}
	for _, s := range sv.Seats {
		marker := "  "
		if s.Index == sv.Current {
			marker = "> "
		}
		name := s.Name
		if s.Index == sv.Seat {
			name = pterm.LightCyan(s.Name)
		}
		fmt.Fprintf(&b, "%s%-12s score %-4d rounds %d  cards %d\n", marker, name, s.Score, s.RoundsWon, s.HandCount)
	}
	fmt.Fprintf(&b, "Draw pile %d  Discard %d", sv.DrawCount, sv.DiscardCount)
	if sv.TopDiscard != "" {
		fmt.Fprintf(&b, " (top: %s)", sv.TopDiscard)
	}
	title := fmt.Sprintf("Round %d | Turn %d | %s | %s", sv.Round, sv.Turn, sv.TurnPhase, sv.Code)
	c.printf("\n%s\n", pterm.DefaultBox.WithTitle(title).Sprint(b.String()))

	if len(sv.Hand) > 0 {
		c.printf("Hand:\n")
		for _, card := range sv.Hand {
			line := fmt.Sprintf("  %d) %s (%s)", card.Index+1, card.Title, card.Reference)
			if card.Special != "" {
				line += " " + pterm.LightMagenta("["+card.Special+"]")
			}
			c.printf("%s\n", line)
		}
	}
}

// prompt renders a request and reads the player's reply.
func (c *Client) prompt(sv *StateView) (ClientMessage, error) {
	if sv == nil {
		return ClientMessage{}, errors.New("request without state")
	}
	switch sv.TurnPhase {
	case "Player Handoff":
		c.printf("\n%s\n", pterm.DefaultBox.WithTitle("HANDOFF").WithTitleTopCenter().Sprintf("Pass the device to %s.", sv.CurrentName))
		line, err := c.readLine(fmt.Sprintf("%s, type your name when ready: ", sv.CurrentName))
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Type: "ready", Name: line}, nil

	case "Making Connection":
		c.renderState(sv)
		if sv.Selected != nil {
			c.printf("\nConnect %s to %s.\n", pterm.LightCyan(sv.Selected.Title), anchorName(sv))
		}
		for _, o := range sv.Options {
			c.printf("  %d) %s\n", o.Index+1, o.Text)
		}
		c.printf("Type your justification, an option number, or 'cancel'.\n")
		for {
			line, err := c.readLine("> ")
			if err != nil {
				return ClientMessage{}, err
			}
			switch {
			case line == "":
				continue
			case strings.EqualFold(line, "cancel") || strings.EqualFold(line, "c"):
				return ClientMessage{Type: "cancel"}, nil
			}
			if n, err := strconv.Atoi(line); err == nil {
				if n >= 1 && n <= len(sv.Options) {
					return ClientMessage{Type: "justify", OptionID: sv.Options[n-1].ID}, nil
				}
				c.printf("Enter an option between 1 and %d, or write your own.\n", len(sv.Options))
				continue
			}
			return ClientMessage{Type: "justify", Text: line}, nil
		}

	default:
		c.renderState(sv)
		if len(sv.Hand) == 0 {
			return ClientMessage{}, errors.New("no cards to play")
		}
		c.printf("Pick a card to link to %s.\n", anchorName(sv))
		for {
			line, err := c.readLine("> ")
			if err != nil {
				return ClientMessage{}, err
			}
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(sv.Hand) {
				c.printf("Enter a number between 1 and %d\n", len(sv.Hand))
				continue
			}
			idx := n - 1
			return ClientMessage{Type: "select", Index: &idx}, nil
		}
	}
}

func (c *Client) readLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func anchorName(sv *StateView) string {
	if sv.Anchor == nil {
		return "the anchor"
	}
	return pterm.LightYellow(sv.Anchor.Text)
}
