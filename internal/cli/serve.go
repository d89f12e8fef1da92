package cli

import (
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/idilsaglam/tada/internal/appconfig"
	"github.com/idilsaglam/tada/internal/docserver"
	"github.com/idilsaglam/tada/internal/logx"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve user documents over HTTP for the http store backend",
		Args:  exactArgs(0, "todo serve [--addr host:port]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(flags.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := pslog.NewWithOptions(cmd.ErrOrStderr(), logx.Options(cfg.Logging.Level, cfg.Logging.Structured))
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			store, closer, err := openStore(cfg.Server.Backend, cfg, "")
			if err != nil {
				return err
			}
			defer closer()

			logger.Info("serving todo documents", "addr", cfg.Server.Addr, "backend", cfg.Server.Backend)
			return docserver.New(store, logger).Serve(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
