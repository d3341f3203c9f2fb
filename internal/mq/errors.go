package mq

import "errors"

var (
	// ErrNoChannel — канал недоступен (соединение восстанавливается).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrClosed — соединение закрыто вызовом Close.
	ErrClosed = errors.New("amqp connection closed")

	// ErrNotConfirmed — брокер не подтвердил публикацию (nack).
	ErrNotConfirmed = errors.New("publish not confirmed by broker")
)
