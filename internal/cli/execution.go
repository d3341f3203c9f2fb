package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для просмотра выполнений.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Inspect executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionActionsCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "TRIGGER", "STATUS", "ACTIONS", "ERROR", "DURATION", "CREATED"}

func executionRow(e *ExecutionResponse) []string {
	errText := e.ErrorKind
	if e.ErrorNode != nil {
		errText = fmt.Sprintf("%s@%d", e.ErrorKind, *e.ErrorNode)
	}
	return []string{
		e.ID, e.Trigger, e.Status, strconv.Itoa(e.ActionsDispatched),
		errText, fmt.Sprintf("%dms", e.DurationMs), e.CreatedAt,
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i := range executions {
				rows[i] = executionRow(&executions[i])
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details with visited nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(exec)
				return nil
			}

			out.Table(executionHeaders, [][]string{executionRow(exec)})
			if exec.Error != "" {
				out.Error(exec.Error)
			}
			if len(exec.Steps) > 0 {
				out.Raw(exec.Steps)
			}
			return nil
		},
	}
}

func newExecutionActionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "actions EXECUTION_ID",
		Short: "List actions dispatched by an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			actions, err := client.ListActions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "NODE", "TYPE", "STATUS", "ATTEMPT", "ERROR"}
			rows := make([][]string, len(actions))
			for i, a := range actions {
				rows[i] = []string{
					a.ID, strconv.FormatUint(uint64(a.NodeID), 10), a.ActionType,
					a.Status, strconv.Itoa(a.Attempt), a.Error,
				}
			}

			out.Print(headers, rows, actions)
			return nil
		},
	}
}
