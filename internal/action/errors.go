package action

import "errors"

// Ошибки исполнения действий.
var (
	// ErrInvalidParams — параметры действия неполные или некорректные.
	ErrInvalidParams = errors.New("invalid action params")

	// ErrRelayerRequest — запрос к relayer не выполнен (сеть, DNS, таймаут).
	ErrRelayerRequest = errors.New("relayer request failed")

	// ErrRelayerUnavailable — circuit breaker relayer'а разомкнут.
	ErrRelayerUnavailable = errors.New("relayer unavailable")

	// ErrDispatcherStopped — диспетчер остановлен, действие не принято.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// errRelayerServer — ответ relayer'а 5xx. Считается отказом для breaker'а,
// но наружу возвращается как логическая ошибка с outputs.
var errRelayerServer = errors.New("relayer server error")
