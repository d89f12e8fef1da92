package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
)

// readActions decodes a stream of tagged actions, e.g. one
// {"type":"ADD_TODO","text":"milk"} per line.
func readActions(r io.Reader) ([]model.Action, error) {
	dec := json.NewDecoder(r)
	var actions []model.Action
	for n := 1; ; n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, usagef("apply: action %d: %v", n, err)
		}
		a, err := model.DecodeAction(raw)
		if err != nil {
			return nil, usagef("apply: action %d: %v", n, err)
		}
		actions = append(actions, a)
	}
	if len(actions) == 0 {
		return nil, usagef("apply: no actions on stdin")
	}
	return actions, nil
}

func newApplyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply tagged JSON actions read from stdin",
		Long: `Reads ADD_TODO, UPDATE_TODO and REMOVE_TODO actions from stdin and
applies them in order, e.g.

  echo '{"type":"ADD_TODO","text":"buy milk"}' | todo apply

Nothing is applied if any action fails to decode.`,
		Args: exactArgs(0, "todo apply < actions.json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := readActions(cmd.InOrStdin())
			if err != nil {
				return err
			}

			tracker := &persistTracker{}
			a, err := openApp(cmd.Context(), flags, appOptions{
				logOut:    cmd.ErrOrStderr(),
				gwOptions: []gateway.Option{gateway.WithPersistObserver(tracker.observe)},
			})
			if err != nil {
				return err
			}
			defer a.Close()

			c, st, err := a.load()
			if err != nil {
				return loadError(err)
			}
			for i, action := range actions {
				if st, err = c.Dispatch(a.ctx, action); err != nil {
					return fmt.Errorf("action %d: %w", i+1, err)
				}
			}
			a.gw.Wait()
			if err := tracker.failed(); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("applied %d actions (%d items)", len(actions), len(st.List)))
			return nil
		},
	}
}
