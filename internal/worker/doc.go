// Package worker получает сообщения из очередей и выполняет задачи.
//
// # Обзор
//
// Pool запускает по одному Loop на каждый воркер каждой очереди
// (workers × queues горутин). У каждого Loop свой транспорт; соединения
// между воркерами не разделяются.
//
//	pool := worker.NewPool(worker.PoolConfig{
//	    Queues:     cfg.Queues,
//	    Dispatcher: dispatcher,
//	    Observer:   observer,
//	    Logger:     logger,
//	})
//
//	if err := pool.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Stop()
//
// # Loop
//
// Состояния: Connecting → Listening → Dispatching → Acknowledging → Listening.
// Ошибка Receive или Ack возвращает Loop в Connecting; подключение
// повторяется бесконечно с паузой 5 секунд. Loop останавливается только
// отменой контекста.
//
// # Dispatcher
//
// Выполнение задачи синхронно, на горутине воркера:
//
//  1. Parse сообщения; нечитаемое сообщение отбрасывается без метрик
//  2. Resolve + Invoke до retries+1 раз, без пауз между попытками
//  3. После последней неудачи отчёт уходит в notify.Sink (если задан);
//     при заполненной очереди отчётов воркер ждёт
//  4. Одна запись в metrics.Recorder на сообщение, успех или нет
//
// Сообщение подтверждается после dispatch в любом случае, включая
// нечитаемые сообщения и исчерпанные повторы.
package worker
