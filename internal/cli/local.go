package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/shaiso/zapflow/internal/action"
	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/telemetry"
)

// NewValidateCmd создаёт команду локальной проверки документа.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a workflow document without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			summary, err := engine.Validate(doc)
			if err != nil {
				return err
			}

			printSummary(out, summaryFromEngine(summary))
			return nil
		},
	}
}

// RunOptions — параметры локального выполнения документа.
type RunOptions struct {
	DryRun     bool
	RelayerURL string
	Recipient  string
	Policy     string
	Workers    int
	Verbose    bool
}

// RunReport — итог локального выполнения.
type RunReport struct {
	Steps             []engine.Step             `json:"steps"`
	ActionsDispatched int                       `json:"actions_dispatched"`
	BranchesSkipped   int                       `json:"branches_skipped"`
	Actions           []domain.ActionSubmission `json:"actions"`
	ErrorKind         string                    `json:"error_kind,omitempty"`
	ErrorNode         *domain.NodeID            `json:"error_node,omitempty"`
	Error             string                    `json:"error,omitempty"`
}

// NewRunCmd создаёт команду локального выполнения документа.
//
// Действия выполняются в процессе: по умолчанию через DryRunExecutor,
// с --relayer-url через swap relayer.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a workflow document locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			report, err := RunLocal(cmd.Context(), doc, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			printReport(out, report)
			if report.Error != "" {
				return fmt.Errorf("execution failed: %s", report.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Log actions instead of sending them")
	cmd.Flags().StringVar(&opts.RelayerURL, "relayer-url", os.Getenv("SWAP_RELAYER_URL"), "Swap relayer endpoint")
	cmd.Flags().StringVar(&opts.Recipient, "recipient", os.Getenv("ACCOUNT_ADDRESS"), "Swap recipient address")
	cmd.Flags().StringVar(&opts.Policy, "policy", "reject", "Mixed numeric arithmetic: reject or coerce_float")
	cmd.Flags().IntVar(&opts.Workers, "workers", 2, "Action dispatcher workers")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every visited node")

	return cmd
}

// RunLocal выполняет документ в процессе и дожидается всех действий.
// Ошибка возвращается только для неверных параметров; ошибка обхода
// попадает в RunReport.
func RunLocal(ctx context.Context, doc domain.Document, opts RunOptions, logW io.Writer) (*RunReport, error) {
	policy, err := engine.ParseMixedPolicy(opts.Policy)
	if err != nil {
		return nil, err
	}

	level := telemetry.ParseLevel("WARN")
	if opts.Verbose {
		level = telemetry.ParseLevel("DEBUG")
	}
	logger := telemetry.NewLogger(logW, level, "text")

	var executor action.Executor = &action.DryRunExecutor{Logger: logger}
	if !opts.DryRun && opts.RelayerURL != "" {
		executor = action.NewSwapExecutor(action.SwapConfig{
			RelayerURL: opts.RelayerURL,
			Recipient:  opts.Recipient,
			Logger:     logger,
		})
	}

	runner := action.NewRunner(action.RunnerConfig{
		Registry: action.NewSwapRegistry(executor),
		Retry:    action.DefaultRetryPolicy(),
		Logger:   logger,
	})

	log := newActionLog()
	dispatcher := action.NewAsyncDispatcher(action.DispatcherConfig{
		Handler: &action.LocalHandler{Runner: runner, Store: log},
		Workers: opts.Workers,
		Logger:  logger,
	})
	dispatcher.Start(ctx)

	eng := engine.New(engine.Options{
		Dispatcher: dispatcher,
		Logger:     logger,
		Arithmetic: policy,
	})

	result, execErr := eng.Execute(ctx, doc)

	// Дожидаемся отправленных действий
	dispatcher.Stop()

	report := &RunReport{Actions: log.list()}
	if result != nil {
		report.Steps = result.Steps
		report.ActionsDispatched = result.ActionsDispatched
		report.BranchesSkipped = result.BranchesSkipped
	}
	if execErr != nil {
		report.Error = execErr.Error()
		report.ErrorKind = engine.KindOf(execErr)
		var e *engine.ExecError
		if errors.As(execErr, &e) {
			report.ErrorNode = e.Node()
		}
	}
	return report, nil
}

// actionLog — хранилище действий в памяти для локального выполнения.
type actionLog struct {
	mu   sync.Mutex
	byID map[string]domain.ActionSubmission
	ids  []string
}

func newActionLog() *actionLog {
	return &actionLog{byID: make(map[string]domain.ActionSubmission)}
}

// Create реализует action.Store.
func (l *actionLog) Create(_ context.Context, sub *domain.ActionSubmission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := sub.ID.String()
	l.ids = append(l.ids, id)
	l.byID[id] = *sub
	return nil
}

// Update реализует action.Updater.
func (l *actionLog) Update(_ context.Context, sub *domain.ActionSubmission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[sub.ID.String()] = *sub
	return nil
}

func (l *actionLog) list() []domain.ActionSubmission {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ActionSubmission, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.byID[id])
	}
	return out
}

// loadDocument читает документ из файла; формат определяется по расширению.
func loadDocument(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return engine.DecodeDocument(data, engine.FormatFromPath(path))
}

func summaryFromEngine(s *engine.Summary) *SummaryResponse {
	resp := &SummaryResponse{
		Nodes:    s.Nodes,
		Edges:    s.Edges,
		Root:     uint32(s.Root),
		Warnings: s.Warnings,
	}
	for _, id := range s.Unreachable {
		resp.Unreachable = append(resp.Unreachable, uint32(id))
	}
	return resp
}

func printSummary(out *Output, s *SummaryResponse) {
	if out.JSONMode() {
		out.JSON(s)
		return
	}

	unreachable := make([]string, len(s.Unreachable))
	for i, id := range s.Unreachable {
		unreachable[i] = strconv.FormatUint(uint64(id), 10)
	}

	out.Table(
		[]string{"NODES", "EDGES", "ROOT", "UNREACHABLE"},
		[][]string{{
			strconv.Itoa(s.Nodes), strconv.Itoa(s.Edges),
			strconv.FormatUint(uint64(s.Root), 10), strings.Join(unreachable, ","),
		}},
	)
	for _, w := range s.Warnings {
		out.Success("warning: " + w)
	}
}

func printReport(out *Output, r *RunReport) {
	if out.JSONMode() {
		out.JSON(r)
		return
	}

	rows := make([][]string, len(r.Steps))
	for i, s := range r.Steps {
		env, _ := json.Marshal(s.Env)
		rows[i] = []string{strconv.FormatUint(uint64(s.NodeID), 10), string(s.Kind), string(env)}
	}
	out.Table([]string{"NODE", "KIND", "ENV"}, rows)

	if len(r.Actions) > 0 {
		actionRow := func(a domain.ActionSubmission) []string {
			return []string{
				strconv.FormatUint(uint64(a.NodeID), 10), string(a.Type), string(a.Status),
				strconv.Itoa(a.Attempt), a.Error,
			}
		}
		actionRows := make([][]string, len(r.Actions))
		for i, a := range r.Actions {
			actionRows[i] = actionRow(a)
		}
		out.Table([]string{"NODE", "TYPE", "STATUS", "ATTEMPT", "ERROR"}, actionRows)
	}

	out.Success(fmt.Sprintf("visited %d nodes, %d actions dispatched, %d branches skipped",
		len(r.Steps), r.ActionsDispatched, r.BranchesSkipped))
}
