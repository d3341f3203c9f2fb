package action

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(domain.ActionSwapExactETHForTokens); !errors.Is(err, engine.ErrUnsupportedActionType) {
		t.Fatalf("expected ErrUnsupportedActionType, got %v", err)
	}

	r = NewSwapRegistry(&DryRunExecutor{})
	if _, err := r.Get(domain.ActionSwapExactETHForTokens); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if types := r.Types(); len(types) != 1 || types[0] != domain.ActionSwapExactETHForTokens {
		t.Errorf("unexpected types %v", types)
	}
}

func TestNewSubmission(t *testing.T) {
	execID := uuid.New()
	sub := NewSubmission(engine.Action{
		ExecutionID: execID,
		NodeID:      3,
		Type:        domain.ActionSwapExactETHForTokens,
		Params: map[string]engine.Value{
			engine.ParamTokenFromAddress: engine.String("0xA"),
			engine.ParamTokenToAddress:   engine.String("0xB"),
			engine.ParamTokenFromAmount:  engine.Uint(18446744073709551615),
		},
	})

	if sub.Status != domain.ActionStatusQueued || sub.Attempt != 0 {
		t.Errorf("unexpected status %s attempt %d", sub.Status, sub.Attempt)
	}
	if sub.ExecutionID == nil || *sub.ExecutionID != execID {
		t.Errorf("execution id not propagated")
	}
	if sub.Params[engine.ParamTokenFromAmount] != "18446744073709551615" {
		t.Errorf("amount must be stored as exact decimal, got %v", sub.Params[engine.ParamTokenFromAmount])
	}

	adhoc := NewSubmission(engine.Action{NodeID: 1, Type: domain.ActionSwapExactETHForTokens})
	if adhoc.ExecutionID != nil {
		t.Error("nil execution id must stay nil")
	}
}

func TestParseSwapParams(t *testing.T) {
	valid := func(amount any) map[string]any {
		return map[string]any{
			engine.ParamTokenFromAddress: "0xA",
			engine.ParamTokenToAddress:   "0xB",
			engine.ParamTokenFromAmount:  amount,
		}
	}

	tests := []struct {
		name    string
		params  map[string]any
		want    uint64
		wantErr bool
	}{
		{name: "string amount", params: valid("1000"), want: 1000},
		{name: "uint amount", params: valid(uint64(7)), want: 7},
		{name: "json number", params: valid(float64(42)), want: 42},
		{name: "negative", params: valid("-1"), wantErr: true},
		{name: "fraction", params: valid(1.5), wantErr: true},
		{name: "missing amount", params: valid(nil), wantErr: true},
		{name: "missing from", params: map[string]any{engine.ParamTokenToAddress: "0xB", engine.ParamTokenFromAmount: "1"}, wantErr: true},
		{name: "empty to", params: map[string]any{engine.ParamTokenFromAddress: "0xA", engine.ParamTokenToAddress: "", engine.ParamTokenFromAmount: "1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseSwapParams(tt.params)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParams) {
					t.Fatalf("expected ErrInvalidParams, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Amount != tt.want || p.From != "0xA" || p.To != "0xB" {
				t.Errorf("unexpected params %+v", p)
			}
		})
	}
}

func TestDryRunExecutor(t *testing.T) {
	sub := &domain.ActionSubmission{ID: uuid.New(), Params: map[string]any{"k": "v"}}
	res, err := (&DryRunExecutor{}).Execute(context.Background(), sub)
	if err != nil || res.Failed() {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	if res.Outputs["dry_run"] != true {
		t.Errorf("expected dry_run output, got %v", res.Outputs)
	}
}
