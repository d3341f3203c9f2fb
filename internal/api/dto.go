package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name     string          `json:"name"`
	Document domain.Document `json:"document"`
	IsActive *bool           `json:"is_active,omitempty"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
type UpdateWorkflowRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IsActive  bool            `json:"is_active"`
	Nodes     int             `json:"nodes"`
	Edges     int             `json:"edges"`
	Document  domain.Document `json:"document,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
// withDocument — включать ли документ целиком (в списках не включается).
func WorkflowFromDomain(wf domain.Workflow, withDocument bool) WorkflowResponse {
	resp := WorkflowResponse{
		ID:        wf.ID,
		Name:      wf.Name,
		IsActive:  wf.IsActive,
		Nodes:     len(wf.Document),
		Edges:     wf.Document.EdgeCount(),
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
	if withDocument {
		resp.Document = wf.Document
	}
	return resp
}

// Execution DTOs

// PlayRequest — запрос на запуск workflow.
type PlayRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ExecutionResponse — ответ с выполнением.
type ExecutionResponse struct {
	ID                uuid.UUID       `json:"id"`
	WorkflowID        *uuid.UUID      `json:"workflow_id,omitempty"`
	Trigger           string          `json:"trigger"`
	Status            string          `json:"status"`
	ActionsDispatched int             `json:"actions_dispatched"`
	ErrorKind         string          `json:"error_kind,omitempty"`
	ErrorNode         *domain.NodeID  `json:"error_node,omitempty"`
	Error             string          `json:"error,omitempty"`
	IdempotencyKey    string          `json:"idempotency_key,omitempty"`
	Steps             json.RawMessage `json:"steps,omitempty"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
	DurationMs        int64           `json:"duration_ms"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:                e.ID,
		WorkflowID:        e.WorkflowID,
		Trigger:           string(e.Trigger),
		Status:            string(e.Status),
		ActionsDispatched: e.ActionsDispatched,
		ErrorKind:         e.ErrorKind,
		ErrorNode:         e.ErrorNode,
		Error:             e.Error,
		IdempotencyKey:    e.IdempotencyKey,
		Steps:             e.Steps,
		StartedAt:         e.StartedAt,
		FinishedAt:        e.FinishedAt,
		DurationMs:        e.Duration().Milliseconds(),
		CreatedAt:         e.CreatedAt,
	}
}

// ActionResponse — ответ с действием.
type ActionResponse struct {
	ID          uuid.UUID      `json:"id"`
	ExecutionID *uuid.UUID     `json:"execution_id,omitempty"`
	NodeID      domain.NodeID  `json:"node_id"`
	ActionType  string         `json:"action_type"`
	Status      string         `json:"status"`
	Attempt     int            `json:"attempt"`
	Params      map[string]any `json:"params,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ActionFromDomain конвертирует domain.ActionSubmission в ActionResponse.
func ActionFromDomain(a domain.ActionSubmission) ActionResponse {
	return ActionResponse{
		ID:          a.ID,
		ExecutionID: a.ExecutionID,
		NodeID:      a.NodeID,
		ActionType:  string(a.Type),
		Status:      string(a.Status),
		Attempt:     a.Attempt,
		Params:      a.Params,
		Outputs:     a.Outputs,
		Error:       a.Error,
		StartedAt:   a.StartedAt,
		FinishedAt:  a.FinishedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	WorkflowID      uuid.UUID  `json:"workflow_id"`
	Name            string     `json:"name"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	IntervalSec     int        `json:"interval_sec,omitempty"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		WorkflowID:      s.WorkflowID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
