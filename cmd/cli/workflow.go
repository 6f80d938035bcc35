package cli

import (
	"github.com/spf13/cobra"

	workflowusecase "mailflow/internal/workflow/usecase"
)

var workflowFilePath string

var workflowCmd = &cobra.Command{
	Use:   "workflow-processor",
	Short: "Apply a workflow document to the stored emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		processor := workflowusecase.NewWorkflowProcessor(app.client, app.users, app.emails, app.workflows)
		return processor.Process(cmd.Context(), workflowFilePath)
	},
}

func init() {
	workflowCmd.Flags().StringVar(&workflowFilePath, "workflow-file-path", "", "path to the workflow JSON document")
	_ = workflowCmd.MarkFlagRequired("workflow-file-path")
	rootCmd.AddCommand(workflowCmd)
}
