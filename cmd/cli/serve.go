package cli

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mailflow/cmd/api"
	"mailflow/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only inspection API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		gin.SetMode(gin.ReleaseMode)
		engine := gin.Default()
		api.SetupRoutes(engine, api.NewHandler(app.users, app.folders, app.workflows))

		server := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      engine,
			ReadTimeout:  cfg.HTTPTimeout,
			WriteTimeout: cfg.HTTPTimeout,
		}
		logger.Info("http server listening", "port", cfg.HTTPPort)
		return server.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port to listen on")
	_ = viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
