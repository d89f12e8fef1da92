package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/appconfig"
	"github.com/idilsaglam/tada/internal/auth"
	"github.com/idilsaglam/tada/internal/ui"
)

func credentials(flags *rootFlags) (*auth.Store, error) {
	cfg, err := appconfig.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	return auth.NewStore(cfg.Auth.Dir), nil
}

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and inspect the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: todo auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(newAuthLoginCmd(flags))
	cmd.AddCommand(newAuthLogoutCmd(flags))
	cmd.AddCommand(newAuthStatusCmd(flags))
	cmd.AddCommand(newAuthWhoAmICmd(flags))
	return cmd
}

func newAuthLoginCmd(flags *rootFlags) *cobra.Command {
	var (
		userID     string
		tokenStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in (anonymously unless --user is given)",
		Args:  exactArgs(0, "todo auth login [--user id [--token-stdin]]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if userID == "" {
				if tokenStdin {
					return usagef("--token-stdin needs --user")
				}
				ti, err := store.SignInAnonymously()
				if err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
				ui.OK(out, "signed in as "+ti.UserID)
				return nil
			}

			token := ""
			if tokenStdin {
				fmt.Fprint(out, "Paste your token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			ti, err := store.Set(userID, token, tokenExpiry(token))
			if err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			ui.OK(out, "logged in as "+ti.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "sign in as this user id")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read a bearer token from stdin")
	return cmd
}

func newAuthLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored identity",
		Args:  exactArgs(0, "todo auth logout"),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials(flags)
			if err != nil {
				return err
			}
			ti, _ := store.Get()
			if ti != nil && ti.Source == "env" {
				ui.OK(cmd.OutOrStdout(), "identity is provided by "+auth.EnvUser+" (nothing to delete)")
				return nil
			}
			if err := store.Delete(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the identity comes from",
		Args:  exactArgs(0, "todo auth status"),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ti, err := store.Get()
			if err != nil {
				return err
			}
			if _, ok := ti.CurrentUserID(); !ok {
				fmt.Fprintln(out, ui.Current().Muted.Render("not logged in"))
				fmt.Fprintln(out, "Run: todo auth login")
				return nil
			}
			fmt.Fprintf(out, "user: %s\n", ti.UserID)
			fmt.Fprintf(out, "source: %s\n", ti.Source)
			fmt.Fprintf(out, "anonymous: %t\n", ti.Anonymous)
			if ti.ExpiresAt != nil {
				fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "expires: (unknown)")
			}
			fmt.Fprintf(out, "env override: %s / %s\n", auth.EnvUser, auth.EnvToken)
			return nil
		},
	}
}

// whoami decodes a JWT locally (unverified); opaque tokens print basic info.
func newAuthWhoAmICmd(flags *rootFlags) *cobra.Command {
	var showQR bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  exactArgs(0, "todo auth whoami"),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials(flags)
			if err != nil {
				return err
			}
			ti, err := store.Get()
			if err != nil {
				return err
			}
			if _, ok := ti.CurrentUserID(); !ok {
				return usagef("not logged in. Run: todo auth login")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "user:", ti.UserID)
			if showQR {
				// scan on another device, then `todo auth login --user <id>`
				qrterminal.GenerateHalfBlock(ti.UserID, qrterminal.L, out)
			}
			if p, ok := auth.JWTPayload(ti.Token); ok {
				fmt.Fprintln(out, "JWT payload:")
				fmt.Fprintln(out, p)
				return nil
			}
			fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
			fmt.Fprintln(out, "source:", ti.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showQR, "qr", false, "also print the user id as a QR code")
	return cmd
}

// tokenExpiry reads "exp" from a JWT payload.
func tokenExpiry(token string) *time.Time {
	p, ok := auth.JWTPayload(token)
	if !ok {
		return nil
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal([]byte(p), &claims); err != nil || claims.Exp == 0 {
		return nil
	}
	t := time.Unix(claims.Exp, 0)
	return &t
}
