package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
)

// Ключи параметров действия.
const (
	ParamTokenFromAddress = "token_from_address"
	ParamTokenToAddress   = "token_to_address"
	ParamTokenFromAmount  = "token_from_amount"
)

// walker — состояние одного обхода.
type walker struct {
	ctx        context.Context
	dispatcher Dispatcher
	logger     *slog.Logger
	policy     MixedPolicy
	execID     uuid.UUID
	result     *Result
}

// descend обходит рёбра узла в порядке документа.
//
// Для каждого ребра: условие проверяется в окружении родителя,
// ложное условие пропускает ребро, иначе окружение копируется,
// применяется семантика дочернего узла и обход продолжается вглубь.
func (w *walker) descend(n *GraphNode, env *Env) error {
	for _, edge := range n.Children {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		ok, err := EvaluateCondition(edge.Condition, env)
		if err != nil {
			return attachNode(err, edge.Target.ID)
		}
		if !ok {
			w.result.BranchesSkipped++
			w.logger.Debug("branch skipped",
				slog.Uint64("from", uint64(n.ID)),
				slog.Uint64("to", uint64(edge.Target.ID)),
			)
			continue
		}

		child := edge.Target
		childEnv := env.Clone()

		if err := w.apply(child, env, childEnv); err != nil {
			return err
		}
		w.record(child, childEnv)

		if err := w.descend(child, childEnv); err != nil {
			return err
		}
	}
	return nil
}

// apply выполняет семантику узла. Операнды разрешаются в окружении
// родителя, присваивания пишутся в окружение ребёнка.
func (w *walker) apply(n *GraphNode, parent, child *Env) error {
	w.logger.Debug("visit node",
		slog.Uint64("node_id", uint64(n.ID)),
		slog.String("kind", string(n.Kind)),
	)

	switch n.Kind {
	case domain.NodeKindArithmetic:
		return w.applyArithmetic(n, parent, child)
	case domain.NodeKindAction:
		return w.applyAction(n, parent)
	default:
		return nil
	}
}

func (w *walker) applyArithmetic(n *GraphNode, parent, child *Env) error {
	d := n.Data
	if d == nil {
		return nodeError(n.ID, "data", ErrMissingField, "arithmetic node has no data")
	}
	for _, f := range []struct{ name, val string }{
		{"left", d.Left}, {"right", d.Right}, {"operator", d.Operator}, {"result", d.Result},
	} {
		if f.val == "" {
			return nodeError(n.ID, f.name, ErrMissingField, "field is empty")
		}
	}

	left, ok := Resolve(d.Left, parent)
	if !ok {
		return nodeError(n.ID, "left", ErrUnresolvedVariable, "%q", d.Left)
	}
	right, ok := Resolve(d.Right, parent)
	if !ok {
		return nodeError(n.ID, "right", ErrUnresolvedVariable, "%q", d.Right)
	}

	v, err := Compute(left, right, d.Operator, w.policy)
	if err != nil {
		return attachNode(err, n.ID)
	}

	child.Set(d.Result, v)
	w.logger.Debug("arithmetic result",
		slog.Uint64("node_id", uint64(n.ID)),
		slog.String("result", d.Result),
		slog.String("value", v.String()),
	)
	return nil
}

func (w *walker) applyAction(n *GraphNode, parent *Env) error {
	d := n.Data
	if d == nil {
		return nodeError(n.ID, "data", ErrMissingField, "action node has no data")
	}
	if d.ActionType == "" {
		return nodeError(n.ID, "action_type", ErrMissingField, "field is empty")
	}
	if !d.ActionType.IsValid() {
		return nodeError(n.ID, "action_type", ErrUnsupportedActionType, "%q", d.ActionType)
	}

	from, err := resolveAddress(n.ID, ParamTokenFromAddress, d.TokenFromAddress, parent)
	if err != nil {
		return err
	}
	to, err := resolveAddress(n.ID, ParamTokenToAddress, d.TokenToAddress, parent)
	if err != nil {
		return err
	}
	amount, err := resolveAmount(n.ID, d.TokenFromAmount, parent)
	if err != nil {
		return err
	}

	a := Action{
		ExecutionID: w.execID,
		NodeID:      n.ID,
		Type:        d.ActionType,
		Params: map[string]Value{
			ParamTokenFromAddress: from,
			ParamTokenToAddress:   to,
			ParamTokenFromAmount:  amount,
		},
	}
	w.dispatcher.Submit(a)
	w.result.ActionsDispatched++

	w.logger.Debug("action dispatched",
		slog.Uint64("node_id", uint64(n.ID)),
		slog.String("action_type", string(d.ActionType)),
		slog.String("amount", amount.String()),
	)
	return nil
}

// resolveAddress разрешает адрес токена. Литерал берётся как есть,
// ссылка "$name" — из окружения.
func resolveAddress(id domain.NodeID, field, token string, env *Env) (Value, error) {
	if token == "" {
		return Value{}, nodeError(id, field, ErrMissingField, "field is empty")
	}
	if token[0] != '$' {
		return String(token), nil
	}
	v, ok := env.Get(token)
	if !ok {
		return Value{}, nodeError(id, field, ErrUnresolvedVariable, "%q", token)
	}
	return String(v.String()), nil
}

// resolveAmount разрешает сумму: неотрицательное целое.
func resolveAmount(id domain.NodeID, token string, env *Env) (Value, error) {
	if token == "" {
		return Value{}, nodeError(id, ParamTokenFromAmount, ErrMissingField, "field is empty")
	}
	v, ok := Resolve(token, env)
	if !ok {
		return Value{}, nodeError(id, ParamTokenFromAmount, ErrUnresolvedVariable, "%q", token)
	}
	switch v.Kind() {
	case KindUint:
		return v, nil
	case KindInt:
		if i, _ := v.AsInt(); i >= 0 {
			return Uint(uint64(i)), nil
		}
	}
	return Value{}, nodeError(id, ParamTokenFromAmount, ErrTypeMismatch, "amount must be a non-negative integer, got %s %q", v.Kind(), v.String())
}

func (w *walker) record(n *GraphNode, env *Env) {
	w.result.Steps = append(w.result.Steps, Step{
		NodeID: n.ID,
		Kind:   n.Kind,
		Env:    env.Clone(),
	})
}

// attachNode привязывает ошибку движка к узлу, если она ещё не привязана.
func attachNode(err error, id domain.NodeID) error {
	var ee *ExecError
	if errors.As(err, &ee) && !ee.HasNode {
		ee.NodeID = id
		ee.HasNode = true
	}
	return err
}
