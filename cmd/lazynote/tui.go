package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazynote/internal/config"
	"github.com/Joseda-hg/lazynote/internal/tui"
)

var withWeb bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse notes in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if withWeb {
			a.cfg.Web.Enabled = true
		}
		if err := config.Save(a.configPath, a.cfg); err != nil {
			return err
		}

		if a.cfg.Web.Enabled {
			server := a.httpServer()
			go func() {
				a.logger.Info("web server running", "addr", "http://localhost"+server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("web server stopped", "err", err)
				}
			}()
			defer server.Close()
		}

		return tui.Run(a.notes, a.tags, a.cfg.OwnerID)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	rootCmd.PersistentFlags().BoolVar(&withWeb, "web", false, "also run the web server")
}
