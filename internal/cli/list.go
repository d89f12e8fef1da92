package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/controller"
	"github.com/idilsaglam/tada/internal/filter"
	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

// persistTracker remembers the first failed persist of a command run.
type persistTracker struct {
	mu  sync.Mutex
	err error
}

func (p *persistTracker) observe(ev gateway.PersistEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.Err != nil && p.err == nil {
		p.err = ev.Err
	}
}

func (p *persistTracker) failed() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// mutate loads the list, dispatches one action and waits for the persist.
func mutate(cmd *cobra.Command, flags *rootFlags, build func(controller.State) (model.Action, error), done func(before, after controller.State)) error {
	tracker := &persistTracker{}
	a, err := openApp(cmd.Context(), flags, appOptions{
		logOut:    cmd.ErrOrStderr(),
		gwOptions: []gateway.Option{gateway.WithPersistObserver(tracker.observe)},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	c, before, err := a.load()
	if err != nil {
		return loadError(err)
	}
	action, err := build(before)
	if err != nil {
		return err
	}
	after, err := c.Dispatch(a.ctx, action)
	if err != nil {
		return err
	}
	a.gw.Wait()
	if err := tracker.failed(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	done(before, after)
	return nil
}

func loadError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrMissingIdentity):
		return fmt.Errorf("load: %w (run `todo auth login`)", err)
	case errors.Is(err, gateway.ErrDocumentNotFound):
		return fmt.Errorf("load: %w (run `todo init` to create it)", err)
	}
	return fmt.Errorf("load: %w", err)
}

func parseID(s string) (model.ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, usagef("not a valid id: %s", s)
	}
	return model.ID(n), nil
}

func lookup(st controller.State, id model.ID) (model.Item, error) {
	i := st.List.IndexOf(id)
	if i < 0 {
		return model.Item{}, usagef("no item with id %d (run `todo ls` to see ids)", id)
	}
	return st.List[i], nil
}

func newAddCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a new item (text can be multiple words)",
		Args:  minArgs(1, "todo add <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return usagef("add: empty text")
			}
			return mutate(cmd, flags,
				func(controller.State) (model.Action, error) { return model.Add{Text: text}, nil },
				func(_, after controller.State) {
					ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added #%d", after.List[len(after.List)-1].ID))
				})
		},
	}
}

func newEditCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text...>",
		Short: "Replace the text of an item",
		Args:  minArgs(2, "todo edit <id> <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return usagef("edit: empty text")
			}
			return mutate(cmd, flags,
				func(st controller.State) (model.Action, error) {
					it, err := lookup(st, id)
					if err != nil {
						return nil, err
					}
					it.Text = text
					return model.Update{Item: it}, nil
				},
				func(_, _ controller.State) { ui.OK(cmd.OutOrStdout(), fmt.Sprintf("updated #%d", id)) })
		},
	}
}

func newRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item",
		Args:    exactArgs(1, "todo rm <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return mutate(cmd, flags,
				func(st controller.State) (model.Action, error) {
					it, err := lookup(st, id)
					if err != nil {
						return nil, err
					}
					return model.Remove{Item: it}, nil
				},
				func(_, _ controller.State) { ui.OK(cmd.OutOrStdout(), fmt.Sprintf("removed #%d", id)) })
		},
	}
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var (
		expr   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items",
		Args:  exactArgs(0, "todo ls [--filter expr] [--json]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.Compile(expr)
			if err != nil {
				return usagef("%v", err)
			}
			a, err := openApp(cmd.Context(), flags, appOptions{logOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			_, st, err := a.load()
			if err != nil {
				return loadError(err)
			}
			items, err := f.Apply(st.List)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			lines := []string{ui.Header(len(st.List)), ""}
			lines = append(lines, ui.ItemLines(items)...)
			lines = append(lines, "")
			switch {
			case st.Missing:
				lines = append(lines, ui.Current().Muted.Render("Nothing stored yet. Tip: `todo add \"Buy milk\"`"))
			case f.String() != "":
				lines = append(lines, ui.Current().Muted.Render(fmt.Sprintf("filter: %s (%d of %d)", f, len(items), len(st.List))))
			default:
				lines = append(lines, ui.Current().Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
			}
			ui.Panel(out, lines)
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "filter", "f", "", `expr filter over id and text, e.g. 'text contains "milk"'`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print items as JSON")
	return cmd
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty stored list for the signed-in user",
		Args:  exactArgs(0, "todo init"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags, appOptions{logOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()
			created, err := a.gw.Create(a.ctx, a.userID())
			if err != nil {
				return err
			}
			if !created {
				ui.OK(cmd.OutOrStdout(), "already initialized")
				return nil
			}
			ui.OK(cmd.OutOrStdout(), "initialized")
			return nil
		},
	}
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive list",
		Args:  exactArgs(0, "todo tui"),
		RunE: func(cmd *cobra.Command, args []string) error {
			events := make(chan gateway.PersistEvent, 16)
			notify := func(ev gateway.PersistEvent) {
				select {
				case events <- ev:
				default:
				}
			}
			// logs would tear the alt screen; persist outcomes show in the footer
			a, err := openApp(cmd.Context(), flags, appOptions{
				logOut:    discard{},
				gwOptions: []gateway.Option{gateway.WithPersistObserver(notify)},
			})
			if err != nil {
				return err
			}
			defer a.Close()
			uid := a.userID()
			return tui.Run(a.ctx, a.controller(),
				tui.WithPersistEvents(events),
				tui.WithFetchStatus(func() gateway.Result { return a.gw.Peek(uid) }),
			)
		},
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
