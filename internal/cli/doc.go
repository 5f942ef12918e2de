// Package cli реализует команды octobot.
//
// # Обзор
//
// Клиентские команды (stats, tasks, notifications, workers) читают
// HTTP API интроспекции запущенного воркера. Команда publish ставит
// задачу в очередь напрямую через транспорт из конфигурации.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API интроспекции. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:1228")
//	snap, err := client.Introspect()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: octobot stats --json | jq .
//
// ## Commands
//
// Каждая команда создаётся фабричной функцией (NewStatsCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
