// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с переподключением и publisher confirms
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений с ack/nack и DLQ
//
// Типы сообщений:
//   - action.ready — действие сохранено в БД и ждёт воркера
//
// Exchanges:
//   - zapflow.actions — события действий
//   - zapflow.dlq     — dead letter queue
package mq
