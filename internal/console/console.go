// Package console drives a booking view from line-oriented text commands.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/render"
)

// Help lists the accepted commands.
const Help = `commands:
  select <court> <time>   pick a free cell, e.g. "select 2 18:30"
  hover <court> <time>    show who reserved a cell
  unhover                 hide reservation details
  name <text>             set your name
  party <text>            set the party's names
  submit                  reserve the selected cell
  show                    redraw the view
  help                    show this help
  quit                    leave
<time> is HH:MM in the display time zone or a full RFC 3339 instant.`

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNotLoaded      = errors.New("courts are not loaded yet")
	ErrNoSuchCell     = errors.New("no such court or time")
)

// Viewer is the part of booking.View the console drives.
type Viewer interface {
	SelectCell(courtID string, start model.Instant) bool
	Hover(courtID string, start model.Instant)
	ClearHover()
	SetName(name string)
	SetPartyNames(names string)
	Submit() bool
	Snapshot() booking.Snapshot
}

// Console executes commands against a Viewer and writes feedback to out.
type Console struct {
	view     Viewer
	renderer *render.Renderer
	loc      *time.Location
	out      io.Writer
	log      zerolog.Logger
}

// New returns a console.  Times typed as HH:MM are read in loc.
func New(view Viewer, renderer *render.Renderer, loc *time.Location, out io.Writer, log zerolog.Logger) *Console {
	if loc == nil {
		loc = time.Local
	}
	return &Console{view: view, renderer: renderer, loc: loc, out: out, log: log}
}

// Command is one parsed input line.
type Command struct {
	Name string
	Args []string
	Text string // everything after the command name, trimmed
}

// Parse splits a line into a command.  Blank lines yield an empty Name.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	return Command{Name: strings.ToLower(name), Args: strings.Fields(rest), Text: rest}
}

// Run reads commands from in until quit, end of input or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := c.Exec(line)
			if err != nil {
				fmt.Fprintln(c.out, err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs one command line.  It reports whether the user asked to quit.
func (c *Console) Exec(line string) (quit bool, err error) {
	cmd := Parse(line)
	switch cmd.Name {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(c.out, Help)
	case "show":
		fmt.Fprint(c.out, c.renderer.Render(c.view.Snapshot()))
	case "name":
		c.view.SetName(cmd.Text)
	case "party":
		c.view.SetPartyNames(cmd.Text)
	case "unhover":
		c.view.ClearHover()
	case "select", "hover":
		courtID, start, err := c.resolve(cmd)
		if err != nil {
			return false, err
		}
		if cmd.Name == "hover" {
			c.view.Hover(courtID, start)
			return false, nil
		}
		if !c.view.SelectCell(courtID, start) {
			fmt.Fprintln(c.out, "that slot is already reserved")
		}
	case "submit":
		if !c.view.Submit() {
			fmt.Fprintln(c.out, "fill in your name, the party's names and select a free slot first")
			return false, nil
		}
		c.log.Debug().Msg("reservation submitted")
	default:
		return false, fmt.Errorf("%w %q, try help", ErrUnknownCommand, cmd.Name)
	}
	return false, nil
}

// resolve maps "<court number> <time>" onto a court id and slot start.
func (c *Console) resolve(cmd Command) (string, model.Instant, error) {
	if len(cmd.Args) != 2 {
		return "", model.Instant{}, fmt.Errorf("%w: %s <court> <time>", ErrUsage, cmd.Name)
	}
	number, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return "", model.Instant{}, fmt.Errorf("%w: court must be a number", ErrUsage)
	}
	snap := c.view.Snapshot()
	if !snap.Loaded {
		return "", model.Instant{}, ErrNotLoaded
	}
	for _, court := range snap.Courts {
		if court.CourtNumber != number {
			continue
		}
		start, ok := c.matchSlot(court, cmd.Args[1])
		if !ok {
			break
		}
		return court.ID, start, nil
	}
	return "", model.Instant{}, fmt.Errorf("%w: court %s at %s", ErrNoSuchCell, cmd.Args[0], cmd.Args[1])
}

// matchSlot finds the court's first slot starting at clock (HH:MM in the
// display zone) or at an exact instant.
func (c *Console) matchSlot(court model.Court, when string) (model.Instant, bool) {
	if strings.Contains(when, "T") {
		at, err := model.ParseInstant(when)
		if err != nil {
			return model.Instant{}, false
		}
		slot, ok := court.SlotAt(at)
		return slot.StartTime, ok
	}
	clock, err := time.Parse("15:04", when)
	if err != nil {
		return model.Instant{}, false
	}
	want := clock.Format("15:04")
	for _, slot := range court.Slots {
		if slot.StartTime.Clock(c.loc) == want {
			return slot.StartTime, true
		}
	}
	return model.Instant{}, false
}
