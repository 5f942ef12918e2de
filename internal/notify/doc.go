// Package notify доставляет отчёты о задачах, исчерпавших все попытки.
//
// Sink — ограниченная FIFO-очередь (Capacity отчётов) с одним фоновым
// потребителем. Enqueue блокирует вызывающий воркер, пока в очереди нет
// места: при длительной серии ошибок воркеры останавливаются, а отчёты не
// теряются и память не растёт. Следствие для эксплуатации: воркер,
// заблокированный в Enqueue, не читает и не подтверждает сообщения, поэтому
// prefetch и таймауты подтверждения брокера надо выбирать с учётом того,
// что доставка одного отчёта может занимать секунды.
//
// Ошибки доставки только логируются: отчёт не повторяется и не сохраняется.
package notify
