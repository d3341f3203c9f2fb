package action

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
)

// NewSubmission создаёт QUEUED-запись для действия, отправленного движком.
//
// Параметры сохраняются строками: сумма — десятичное целое без потери
// точности при записи в jsonb.
func NewSubmission(a engine.Action) *domain.ActionSubmission {
	params := make(map[string]any, len(a.Params))
	for k, v := range a.Params {
		params[k] = v.String()
	}

	sub := &domain.ActionSubmission{
		ID:        uuid.New(),
		NodeID:    a.NodeID,
		Type:      a.Type,
		Params:    params,
		Status:    domain.ActionStatusQueued,
		CreatedAt: time.Now(),
	}
	if a.ExecutionID != uuid.Nil {
		id := a.ExecutionID
		sub.ExecutionID = &id
	}
	return sub
}

// SwapParams — разобранные параметры swap-действия.
type SwapParams struct {
	From   string
	To     string
	Amount uint64
}

// ParseSwapParams извлекает адреса и сумму из параметров действия.
func ParseSwapParams(params map[string]any) (SwapParams, error) {
	var p SwapParams
	var ok bool

	if p.From, ok = params[engine.ParamTokenFromAddress].(string); !ok || p.From == "" {
		return p, fmt.Errorf("%w: %s is required", ErrInvalidParams, engine.ParamTokenFromAddress)
	}
	if p.To, ok = params[engine.ParamTokenToAddress].(string); !ok || p.To == "" {
		return p, fmt.Errorf("%w: %s is required", ErrInvalidParams, engine.ParamTokenToAddress)
	}

	amount, err := parseAmount(params[engine.ParamTokenFromAmount])
	if err != nil {
		return p, err
	}
	p.Amount = amount
	return p, nil
}

func parseAmount(raw any) (uint64, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a non-negative integer", ErrInvalidParams, engine.ParamTokenFromAmount, v)
		}
		return n, nil
	case uint64:
		return v, nil
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) && v < math.MaxUint64 {
			return uint64(v), nil
		}
	case nil:
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParams, engine.ParamTokenFromAmount)
	}
	return 0, fmt.Errorf("%w: %s %v is not a non-negative integer", ErrInvalidParams, engine.ParamTokenFromAmount, raw)
}
