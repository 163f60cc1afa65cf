package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/spf13/cobra"
)

const defaultAddr = "127.0.0.1:7878"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	out    io.Writer
	addr   string
	asJSON bool
}

func (c *cli) client() *client {
	return newClient(c.addr)
}

// render prints v as JSON or through the human formatter
func (c *cli) render(v interface{}, human func(io.Writer)) error {
	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(c.out)
	return nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	addr := os.Getenv("VOLT_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	root := &cobra.Command{
		Use:          "voltctl",
		Short:        "Control a running volt daemon",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&c.addr, "addr", addr, "daemon address (env VOLT_ADDR)")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the current session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var s domain.Session
				if err := c.client().get(cmd.Context(), "/session", &s); err != nil {
					return err
				}
				return c.render(s, func(w io.Writer) { printSession(w, s) })
			},
		},
		&cobra.Command{
			Use:   "play <query>",
			Short: "Search and play the first matching song, queueing the rest",
			Args:  cobra.MinimumNArgs(1),
			RunE:  c.runPlay,
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search the catalog",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := c.search(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return c.render(res, func(w io.Writer) { printSearch(w, res) })
			},
		},
		&cobra.Command{
			Use:   "history",
			Short: "List recent searches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var items []string
				if err := c.client().get(cmd.Context(), "/search/history", &items); err != nil {
					return err
				}
				return c.render(items, func(w io.Writer) {
					for _, item := range items {
						fmt.Fprintln(w, item)
					}
				})
			},
		},
		c.command("toggle", "Play or pause", "/player/toggle"),
		c.command("next", "Skip to the next queue entry", "/player/next"),
		c.command("prev", "Go back to the previous queue entry", "/player/previous"),
		c.command("shuffle", "Shuffle the songs after the current one", "/player/shuffle"),
		c.command("mute", "Mute or unmute", "/player/mute"),
		c.command("retry", "Retry the failed track", "/player/retry"),
		c.command("restart", "Restart the current track", "/player/restart"),
		c.command("close", "Stop playback and clear the session", "/player/close"),
		&cobra.Command{
			Use:   "seek <seconds>",
			Short: "Jump to a position in the current track",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pos, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid position %q", args[0])
				}
				return c.post(cmd, "/player/seek", map[string]float64{"position": pos})
			},
		},
		&cobra.Command{
			Use:   "volume <0-1>",
			Short: "Set the volume",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid volume %q", args[0])
				}
				return c.post(cmd, "/player/volume", map[string]float64{"volume": v})
			},
		},
		&cobra.Command{
			Use:   "playlists",
			Short: "List playlists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var lists []domain.Playlist
				if err := c.client().get(cmd.Context(), "/playlists", &lists); err != nil {
					return err
				}
				return c.render(lists, func(w io.Writer) {
					for _, pl := range lists {
						fmt.Fprintf(w, "%s  %s (%d songs)\n", pl.ID, pl.Name, len(pl.Songs))
					}
				})
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check whether the music backend is reachable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var st domain.HealthStatus
				if err := c.client().post(cmd.Context(), "/health/check", nil, &st); err != nil {
					return err
				}
				return c.render(st, func(w io.Writer) {
					if st.Online != nil && *st.Online {
						fmt.Fprintln(w, "backend online")
					} else {
						fmt.Fprintln(w, "backend offline")
					}
				})
			},
		},
	)
	return root
}

// command builds a subcommand that posts to a player endpoint without a body
func (c *cli) command(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.post(cmd, path, nil)
		},
	}
}

func (c *cli) post(cmd *cobra.Command, path string, body interface{}) error {
	var s domain.Session
	if err := c.client().post(cmd.Context(), path, body, &s); err != nil {
		return err
	}
	return c.render(s, func(w io.Writer) { printSession(w, s) })
}

func (c *cli) search(ctx context.Context, query string) (*domain.SearchResult, error) {
	var res domain.SearchResult
	if err := c.client().get(ctx, "/search?q="+url.QueryEscape(query), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *cli) runPlay(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	res, err := c.search(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(res.Songs) == 0 {
		return fmt.Errorf("no songs found for %q", query)
	}
	return c.post(cmd, "/player/play", map[string]interface{}{
		"song":  res.Songs[0],
		"queue": res.Songs,
		"index": 0,
	})
}

func printSession(w io.Writer, s domain.Session) {
	if s.Track == nil {
		fmt.Fprintln(w, s.Status)
		return
	}
	fmt.Fprintf(w, "%s  %s - %s  %s / %s  vol %d%%\n",
		s.Status, s.Track.Title, s.Track.Artist,
		clock(s.Position), clock(s.Duration), int(s.Volume*100+0.5))
	if len(s.Queue) > 1 {
		fmt.Fprintf(w, "queue %d/%d\n", s.Index+1, len(s.Queue))
	}
	if s.Error != nil {
		fmt.Fprintf(w, "error: %s\n", s.Error.Kind)
	}
}

func printSearch(w io.Writer, res *domain.SearchResult) {
	for i, song := range res.Songs {
		fmt.Fprintf(w, "%2d. %s - %s\n", i+1, song.Title, song.Artist)
	}
	for _, album := range res.Albums {
		fmt.Fprintf(w, "album: %s - %s\n", album.Title, album.Artist)
	}
	for _, artist := range res.Artists {
		fmt.Fprintf(w, "artist: %s\n", artist.Name)
	}
}

// clock formats seconds as m:ss
func clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
