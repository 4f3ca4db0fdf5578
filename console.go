package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"LiveBoard/internal/board"
	"LiveBoard/internal/export"
	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/state"
)

const helpText = `commands:
  draw <type> x,y [x,y ...] [#color]   add a pen stroke or shape
  text x,y <words...>                  add a text element
  edit <id> <words...>                 replace a text element's text (empty deletes it)
  move <id> dx dy                      translate an element
  rm <id>                              delete an element
  undo | redo                          step through your own edits
  ls                                   list elements
  users                                list other members and cursors
  cursor x,y                           broadcast your cursor
  status                               room and connection state
  room <id>                            switch rooms
  rejoin                               reconnect after retries ran out
  save <file.json|file.pdf>            save the room to a file
  load <file.json>                     add a saved room's elements
  quit
`

// console is a line-oriented stand-in for the drawing UI.
type console struct {
	in   io.Reader
	mu   sync.Mutex
	out  io.Writer
	user state.User
}

func newConsole(in io.Reader, out io.Writer, user state.User) *console {
	return &console{in: in, out: out, user: user}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// notify reports peer activity and connection changes as they are applied.
func (c *console) notify(ev boardnet.Event, st boardnet.ConnState) {
	switch {
	case ev.Name.IsLifecycle():
		if ev.Name == boardnet.EventReconnectFailed {
			c.printf("* connection lost; type 'rejoin' to try again\n")
			return
		}
		c.printf("* %s (%s)\n", ev.Name, st)
	case ev.Name == boardnet.EventElementsBatch:
		els, _ := ev.Elements()
		c.printf("* room synced: %d elements\n", len(els))
	case ev.Name == boardnet.EventUserJoined:
		if u, err := ev.User(); err == nil && u.ID != c.user.ID {
			c.printf("* %s joined\n", u.Name)
		}
	case ev.Name == boardnet.EventUserLeft:
		if id, err := ev.ID(); err == nil {
			c.printf("* %s left\n", id)
		}
	}
}

// run reads commands until quit, EOF or ctx ends.
func (c *console) run(ctx context.Context, b *board.Board) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("%s (%s) ready, 'help' for commands\n", c.user.Name, c.user.Color)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.exec(b, line)
			if err != nil {
				c.printf("! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// exec runs one command. Errors are reported, never fatal.
func (c *console) exec(b *board.Board, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s", helpText)
		return false, nil
	case "room":
		if len(args) != 1 {
			return false, errors.New("usage: room <id>")
		}
		b.JoinRoom(args[0])
		c.printf("switched to %s\n", args[0])
		return false, nil
	}

	s, err := b.Session()
	if err != nil {
		return false, err
	}

	switch cmd {
	case "draw":
		el, err := c.parseDraw(args)
		if err != nil {
			return false, err
		}
		created, err := s.CreateElement(el)
		if err != nil {
			return false, err
		}
		c.printf("created %s %s\n", created.Type, created.ID)

	case "text":
		if len(args) < 2 {
			return false, errors.New("usage: text x,y <words...>")
		}
		at, err := parsePoint(args[0])
		if err != nil {
			return false, err
		}
		created, err := s.CreateElement(state.DrawingElement{
			Type:   state.ElementText,
			Points: []state.Point{at},
			Text:   strings.Join(args[1:], " "),
			Style:  state.Style{StrokeColor: c.user.Color, StrokeWidth: 1, Opacity: 1, FontSize: 16, FontFamily: "Arial"},
		})
		if err != nil {
			return false, err
		}
		c.printf("created text %s\n", created.ID)

	case "edit":
		if len(args) < 1 {
			return false, errors.New("usage: edit <id> <words...>")
		}
		el, ok := s.Element(args[0])
		if !ok {
			return false, fmt.Errorf("%s: %w", args[0], state.ErrUnknownElement)
		}
		if el.Type != state.ElementText {
			return false, fmt.Errorf("%s is a %s, not text", el.ID, el.Type)
		}
		el.Text = strings.Join(args[1:], " ")
		if _, err := s.UpdateElement(el); err != nil {
			return false, err
		}
		if strings.TrimSpace(el.Text) == "" {
			c.printf("deleted %s\n", el.ID)
		} else {
			c.printf("updated %s\n", el.ID)
		}

	case "move":
		if len(args) != 3 {
			return false, errors.New("usage: move <id> dx dy")
		}
		dx, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return false, fmt.Errorf("dx: %w", err)
		}
		dy, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return false, fmt.Errorf("dy: %w", err)
		}
		if _, err := s.MoveElement(args[0], dx, dy); err != nil {
			return false, err
		}
		c.printf("moved %s\n", args[0])

	case "rm":
		if len(args) != 1 {
			return false, errors.New("usage: rm <id>")
		}
		if err := s.DeleteElement(args[0]); err != nil {
			return false, err
		}
		c.printf("deleted %s\n", args[0])

	case "undo", "redo":
		step := s.Undo
		if cmd == "redo" {
			step = s.Redo
		}
		m, err := step()
		if errors.Is(err, state.ErrNothingToUndo) || errors.Is(err, state.ErrNothingToRedo) {
			c.printf("%v\n", err)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		c.printf("%s: %s %s\n", cmd, m.Kind, m.Element.ID)

	case "ls":
		els := s.Elements()
		for _, el := range els {
			c.printf("%-28s %-9s %3d pts  owner=%s updated=%d\n", el.ID, el.Type, len(el.Points), el.OwnerID, el.Updated)
		}
		c.printf("%d elements\n", len(els))

	case "users":
		cursors := make(map[string]state.Point)
		for _, cu := range s.Cursors() {
			cursors[cu.UserID] = cu.Cursor
		}
		users := s.Users()
		for _, u := range users {
			if at, ok := cursors[u.ID]; ok {
				c.printf("%-16s %s  cursor %g,%g\n", u.Name, u.Color, at.X, at.Y)
			} else {
				c.printf("%-16s %s\n", u.Name, u.Color)
			}
		}
		c.printf("%d other members\n", len(users))

	case "cursor":
		if len(args) != 1 {
			return false, errors.New("usage: cursor x,y")
		}
		at, err := parsePoint(args[0])
		if err != nil {
			return false, err
		}
		return false, s.MoveCursor(at)

	case "status":
		c.printf("room=%s state=%s elements=%d undo=%t redo=%t\n",
			s.RoomID(), s.State(), len(s.Elements()), s.CanUndo(), s.CanRedo())

	case "rejoin":
		return false, s.Rejoin()

	case "save":
		if len(args) != 1 {
			return false, errors.New("usage: save <file>")
		}
		snap := export.Snapshot{RoomID: s.RoomID(), ExportedAt: time.Now().UTC(), Elements: s.Elements()}
		if err := export.SaveFile(args[0], snap); err != nil {
			return false, err
		}
		c.printf("saved %d elements to %s\n", len(snap.Elements), args[0])

	case "load":
		if len(args) != 1 {
			return false, errors.New("usage: load <file>")
		}
		snap, err := export.LoadFile(args[0])
		if err != nil {
			return false, err
		}
		// Loaded elements are new edits by this user, with fresh ids.
		for _, el := range snap.Elements {
			el.ID, el.OwnerID = "", ""
			if _, err := s.CreateElement(el); err != nil {
				return false, err
			}
		}
		c.printf("loaded %d elements from %s\n", len(snap.Elements), args[0])

	default:
		return false, fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return false, nil
}

func (c *console) parseDraw(args []string) (state.DrawingElement, error) {
	if len(args) < 2 {
		return state.DrawingElement{}, errors.New("usage: draw <type> x,y [x,y ...] [#color]")
	}
	typ := state.ElementType(args[0])
	if !typ.Valid() || typ == state.ElementText {
		return state.DrawingElement{}, fmt.Errorf("cannot draw %q", args[0])
	}
	el := state.DrawingElement{
		Type:  typ,
		Style: state.Style{StrokeColor: c.user.Color, StrokeWidth: 2, Opacity: 1},
	}
	for _, a := range args[1:] {
		if strings.HasPrefix(a, "#") {
			el.Style.StrokeColor = a
			continue
		}
		p, err := parsePoint(a)
		if err != nil {
			return state.DrawingElement{}, err
		}
		el.Points = append(el.Points, p)
	}
	if !typ.IsFreehand() && len(el.Points) < 2 {
		return state.DrawingElement{}, fmt.Errorf("%s needs a start and an end point", typ)
	}
	return el, nil
}

func parsePoint(s string) (state.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return state.Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return state.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return state.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return state.Point{X: x, Y: y}, nil
}
