// Package mq предоставляет транспорты для получения сообщений из брокеров.
//
// Структура:
//   - transport.go — интерфейсы Transport, Publisher и тип Delivery
//   - reconnect.go — бесконечное переподключение с фиксированной паузой
//   - factory.go   — построение транспорта по конфигурации очереди
//   - amqp.go      — RabbitMQ (durable direct exchange, ручной ack, prefetch 1)
//   - beanstalk.go — beanstalkd (reserve с таймаутом, delete как ack)
//   - redis.go     — Redis pub/sub
//   - nats.go      — NATS с queue group
//   - postgres.go  — PostgreSQL LISTEN/NOTIFY
//
// Каждый транспорт принадлежит ровно одному воркеру и не рассчитан
// на конкурентное использование.
//
// Receive возвращает (nil, nil), если за timeout сообщений не пришло.
// Любая другая ошибка Receive или Ack означает, что соединение потеряно
// и его нужно переустановить через Connect.
package mq
