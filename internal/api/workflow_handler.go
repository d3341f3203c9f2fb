package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/repo"
)

const maxDocumentBytes = 1 << 20

// ListWorkflows возвращает список workflows.
// GET /api/v1/workflows?active=...&limit=...&offset=...
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	filter := repo.WorkflowFilter{Page: queryPage(r)}

	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		active := activeStr == "true"
		filter.IsActive = &active
	}

	workflows, err := h.workflows.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf, false)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт workflow с документом.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	if _, err := engine.Validate(req.Document); err != nil {
		InvalidDocument(w, err)
		return
	}

	now := time.Now()
	wf := &domain.Workflow{
		ID:        uuid.New(),
		Name:      req.Name,
		Document:  req.Document,
		IsActive:  req.IsActive == nil || *req.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.workflows.Create(r.Context(), wf); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, WorkflowFromDomain(*wf, true))
}

// GetWorkflow возвращает workflow по ID вместе с документом.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf, true))
}

// UpdateWorkflow обновляет имя и активность workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			BadRequest(w, "name must not be empty")
			return
		}
		wf.Name = *req.Name
	}
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	if err := h.workflows.Update(r.Context(), wf); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	Success(w, WorkflowFromDomain(*wf, false))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	if err := h.workflows.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	NoContent(w)
}

// GetDocument возвращает документ графа без обёртки.
// GET /api/v1/workflows/{id}/document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	JSON(w, http.StatusOK, wf.Document)
}

// ReplaceDocument заменяет документ графа после проверки.
// PUT /api/v1/workflows/{id}/document
//
// Тело — документ в JSON или YAML (Content-Type: application/yaml).
func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	summary, err := engine.Validate(doc)
	if err != nil {
		InvalidDocument(w, err)
		return
	}

	if err := h.workflows.UpdateDocument(r.Context(), id, doc); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	Success(w, summary)
}

// ValidateDocument проверяет документ и возвращает сводку графа.
// POST /api/v1/validate
func (h *Handler) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	summary, err := engine.Validate(doc)
	if err != nil {
		InvalidDocument(w, err)
		return
	}

	Success(w, summary)
}

// readDocument читает документ из тела запроса. При ошибке отвечает сам.
func readDocument(w http.ResponseWriter, r *http.Request) (domain.Document, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return nil, false
	}
	if len(body) > maxDocumentBytes {
		BadRequest(w, fmt.Sprintf("document exceeds %d bytes", maxDocumentBytes))
		return nil, false
	}

	format := engine.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = engine.FormatYAML
	}

	doc, err := engine.DecodeDocument(body, format)
	if err != nil {
		InvalidDocument(w, err)
		return nil, false
	}
	return doc, true
}
