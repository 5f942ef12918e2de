// Package task описывает сообщения с задачами и реестр их обработчиков.
//
// Сообщение — JSON-объект с обязательным полем "task" (имя обработчика
// в реестре) и необязательным "retries" (число повторов, по умолчанию 0).
// Остальные поля передаются обработчику как есть.
//
// Обработчики регистрируются явно при старте процесса:
//
//	reg := task.NewRegistry()
//	reg.Register("send_email", func(ctx context.Context, msg *task.Message) error {
//	    return mailer.Send(ctx, msg.String("to", ""))
//	})
//
// Реестр кэширует только успешные разрешения имени, поэтому обработчик,
// добавленный позже (через Register или LookupFunc), подхватится без
// перезапуска.
package task
