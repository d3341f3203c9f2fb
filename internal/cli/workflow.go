package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDocumentCmd(clientFn, outputFn),
		newWorkflowPlayCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

var workflowHeaders = []string{"ID", "NAME", "ACTIVE", "NODES", "EDGES", "CREATED"}

func workflowRow(wf *WorkflowResponse) []string {
	return []string{
		wf.ID, wf.Name, strconv.FormatBool(wf.IsActive),
		strconv.Itoa(wf.Nodes), strconv.Itoa(wf.Edges), wf.CreatedAt,
	}
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i := range workflows {
				rows[i] = workflowRow(&workflows[i])
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var file string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a JSON or YAML document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			document, err := loadDocumentJSON(file)
			if err != nil {
				return err
			}

			req := CreateWorkflowRequest{Name: name, Document: document}
			if inactive {
				active := false
				req.IsActive = &active
			}

			wf, err := client.CreateWorkflow(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workflow name (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Document file, .json or .yaml (required)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the workflow disabled")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var active string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename or (de)activate a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateWorkflowRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}

			wf, err := client.UpdateWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Workflow updated")
			out.Print(workflowHeaders, [][]string{workflowRow(wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New workflow name")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")

	return cmd
}

func newWorkflowDocumentCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "document ID",
		Short: "Print the workflow document, or replace it with --set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if file == "" {
				document, err := client.GetDocument(args[0])
				if err != nil {
					return err
				}
				out.Raw(document)
				return nil
			}

			document, err := loadDocumentJSON(file)
			if err != nil {
				return err
			}

			summary, err := client.ReplaceDocument(args[0], document)
			if err != nil {
				return err
			}

			out.Success("Document replaced")
			printSummary(out, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "set", "", "Replace the document with this file")

	return cmd
}

func newWorkflowPlayCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "play ID",
		Short: "Execute a stored workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.PlayWorkflow(args[0], PlayRequest{IdempotencyKey: key})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s", exec.ID, exec.Status))
			out.Print(executionHeaders, [][]string{executionRow(exec)}, exec)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "idempotency-key", "", "Return the existing execution for a repeated key")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

// loadDocumentJSON читает документ из файла и возвращает его в JSON.
// YAML конвертируется локально, API принимает один формат.
func loadDocumentJSON(path string) (json.RawMessage, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
