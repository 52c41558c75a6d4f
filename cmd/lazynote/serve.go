package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazynote/internal/web"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON web API and HTML index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		server := a.httpServer()
		a.logger.Info("web server running", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func (a *app) httpServer() *http.Server {
	if port != 0 {
		a.cfg.Web.Port = port
	}
	if a.cfg.Web.Port == 0 {
		a.cfg.Web.Port = 8080
	}
	handler := web.NewServer(a.notes, a.tags, a.projects, a.cfg.OwnerID, a.logger).Handler()
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Web.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "web server port")
}
