package cli

import (
	"github.com/spf13/cobra"

	emailusecase "mailflow/internal/email/usecase"
)

var fetchFolder string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch messages from the configured provider into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		fetcher := emailusecase.NewEmailFetcher(app.client, app.users, app.emails, app.folders, app.sessions)
		return fetcher.Fetch(cmd.Context(), fetchFolder)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFolder, "folder", "", "restrict the fetch to one folder (default: all mail)")
	rootCmd.AddCommand(fetchCmd)
}
