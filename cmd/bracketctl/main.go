// Command bracketctl previews, seeds and simulates double-elimination
// brackets without a server.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/urfave/cli/v2"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bracketctl",
		Usage:     "offline double-elimination bracket tools",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log engine warnings"},
		},
		Commands: []*cli.Command{
			layoutCommand(),
			rosterCommand(),
			seedCommand(),
			simulateCommand(),
		},
	}
}

func logger(c *cli.Context) *slog.Logger {
	level := slog.LevelError
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

// faker is seeded from --seed, or from the clock when it is zero.
func faker(c *cli.Context) *gofakeit.Faker {
	seed := c.Uint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return gofakeit.New(seed)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

func layoutCommand() *cli.Command {
	return &cli.Command{
		Name:      "layout",
		Usage:     "print the bracket geometry for a roster size",
		ArgsUsage: "<participants>",
		Action: func(c *cli.Context) error {
			n, err := strconv.Atoi(c.Args().First())
			if err != nil {
				return errors.New("layout needs a participant count")
			}
			ws, err := bracket.WinnerBracketStructure(n)
			if err != nil {
				return err
			}
			ls, err := bracket.LoserBracketStructure(n)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "participants\t%d\n", n)
			fmt.Fprintf(tw, "bracket size\t%d\n", ws.BracketSize)
			fmt.Fprintf(tw, "byes\t%d\n", ws.ByeCount)
			fmt.Fprintf(tw, "winner rounds\t%d\n", ws.TotalRounds)
			fmt.Fprintf(tw, "loser rounds\t%d\n", ls.TotalRounds)
			fmt.Fprintf(tw, "loser matches\t%s\n", joinInts(ls.MatchesPerRound))
			fmt.Fprintf(tw, "total matches\t%d\n", bracket.TotalMatches(n))
			fmt.Fprintf(tw, "seed order\t%s\n", joinInts(bracket.SeedOrder(ws.BracketSize)))
			if n < bracket.MinParticipants || n > bracket.MaxParticipants {
				fmt.Fprintf(tw, "note\tnot playable, tournaments take %d-%d players\n",
					bracket.MinParticipants, bracket.MaxParticipants)
			}
			return tw.Flush()
		},
	}
}

func rosterCommand() *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "generate a fake rated roster as YAML",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 8, Usage: "number of players"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one"},
			&cli.BoolFlag{Name: "reset", Usage: "enable the grand final reset"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			f := fakeRoster(faker(c), c.Int("count"))
			f.GrandFinalReset = c.Bool("reset")

			out := c.String("out")
			if out == "" {
				return writeRoster(c.App.Writer, f)
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := writeRoster(file, f); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "seed a roster file and show first-round pairings",
		ArgsUsage: "<roster.yaml>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("seed needs a roster file")
			}
			f, err := readRoster(c.Args().First())
			if err != nil {
				return err
			}
			_, seeded, err := f.seeded()
			if err != nil {
				return err
			}
			pairs, err := bracket.Pairings(seeded)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SEED\tID\tNAME\tRATING")
			for _, p := range seeded {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\n", p.Seed, p.ID, p.Name, p.Rating)
			}
			fmt.Fprintln(tw)
			for _, p := range pairs {
				fmt.Fprintf(tw, "%d %s\tvs\t%d %s\n", p[0].Seed, p[0].Name, p[1].Seed, p[1].Name)
			}
			if len(seeded)%2 == 1 {
				mid := seeded[len(seeded)/2]
				fmt.Fprintf(tw, "%d %s\tunpaired\n", mid.Seed, mid.Name)
			}
			return tw.Flush()
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "play a tournament to the end with random upsets",
		ArgsUsage: "[roster.yaml]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 8, Usage: "players to generate when no roster is given"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one"},
			&cli.Float64Flag{Name: "upsets", Value: 0.25, Usage: "probability that the worse seed wins a match"},
			&cli.BoolFlag{Name: "reset", Usage: "enable the grand final reset"},
		},
		Action: func(c *cli.Context) error {
			upsets := c.Float64("upsets")
			if upsets < 0 || upsets > 1 {
				return fmt.Errorf("upsets must be between 0 and 1, got %g", upsets)
			}
			fk := faker(c)

			var f rosterFile
			if c.NArg() > 0 {
				var err error
				if f, err = readRoster(c.Args().First()); err != nil {
					return err
				}
			} else {
				f = fakeRoster(fk, c.Int("count"))
			}
			if c.IsSet("reset") {
				f.GrandFinalReset = c.Bool("reset")
			}

			sim, err := simulate(logger(c), fk, f, upsets)
			if err != nil {
				return err
			}
			return printSimulation(c.App.Writer, sim)
		},
	}
}

func printSimulation(w io.Writer, sim simulation) error {
	names := make(map[bracket.ParticipantID]bracket.Participant, len(sim.Roster))
	for _, p := range sim.Roster {
		names[p.ID] = p
	}
	label := func(id bracket.ParticipantID) string {
		p := names[id]
		return fmt.Sprintf("%s (%d)", p.Name, p.Seed)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tWINNER\tLOSER\tSCORE\t")
	for _, pm := range sim.Played {
		note := ""
		if pm.Upset {
			note = "upset"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%s\n", pm.Match.ID,
			label(pm.Match.Winner), label(pm.Match.Loser), pm.Points.Team1, pm.Points.Team2, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nchampion: %s\n", label(sim.Champion.ID))
	fmt.Fprintf(w, "matches played: %d\n", len(sim.Played))
	return nil
}
