// Package scheduler пишет в лог периодические отчёты по метрикам задач.
//
// Структура:
//   - cron.go     — парсинг cron-выражений и вычисление следующего времени
//   - reporter.go — Reporter: снимок метрик на каждом тике расписания
//
// Использование:
//
//	rep, err := scheduler.NewReporter(scheduler.ReporterConfig{
//	    Cron:    "*/5 * * * *",
//	    Source:  recorder,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//	go rep.Run(ctx)
//
// Отчёт содержит итоги с момента старта и приращения с прошлого отчёта.
package scheduler
