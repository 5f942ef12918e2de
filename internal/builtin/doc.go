// Package builtin содержит задачи, доступные без дополнительного кода.
//
// Задачи:
//   - http  — HTTP-запрос по полям сообщения (method, url, headers, body, timeout_sec)
//   - delay — ожидание duration_sec секунд
//   - log   — запись полей сообщения в лог
//
// Register добавляет их в task.Registry под этими именами.
package builtin
