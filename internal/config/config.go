// Package config загружает конфигурацию Octobot из YAML-файла.
//
// Конфигурация читается один раз при старте и дальше не меняется.
// Скалярные секции (log, metrics, email, hooks, report) переопределяются
// переменными окружения с префиксом OCTOBOT_, например
// OCTOBOT_METRICS_PORT=9000 или OCTOBOT_EMAIL_ENABLED=true, даже если
// секции нет в файле. Список queues задаётся только в файле.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPath — путь к конфигурации, если не указан явно.
const DefaultPath = "/usr/local/octobot/octobot.yml"

// Протоколы очередей.
const (
	ProtocolAMQP      = "amqp"
	ProtocolBeanstalk = "beanstalk"
	ProtocolRedis     = "redis"
	ProtocolNATS      = "nats"
	ProtocolPostgres  = "postgres"
)

// Значения по умолчанию.
const (
	DefaultWorkers     = 1
	DefaultPriority    = 5
	DefaultMetricsPort = 1228
	DefaultHost        = "localhost"
	DefaultVhost       = "/"
)

var defaultPorts = map[string]int{
	ProtocolAMQP:      5672,
	ProtocolBeanstalk: 11300,
	ProtocolRedis:     6379,
	ProtocolNATS:      4222,
	ProtocolPostgres:  5432,
}

// envDefaults — ключи, доступные для переопределения через окружение.
// AutomaticEnv видит только ключи, известные viper, поэтому каждый
// скалярный ключ получает значение по умолчанию.
var envDefaults = map[string]any{
	"log.level":      "INFO",
	"log.format":     "json",
	"metrics.port":   DefaultMetricsPort,
	"email.enabled":  false,
	"email.from":     "",
	"email.to":       "",
	"email.server":   "",
	"email.port":     0,
	"email.username": "",
	"email.password": "",
	"email.ssl":      false,
	"email.auth":     false,
	"hooks.startup":  "",
	"hooks.shutdown": "",
	"report.cron":    "",
}

// Config — корневая конфигурация процесса.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Queues  []QueueConfig `mapstructure:"queues"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Email   EmailConfig   `mapstructure:"email"`
	Hooks   HooksConfig   `mapstructure:"hooks"`
	Report  ReportConfig  `mapstructure:"report"`
}

// LogConfig — настройки логирования.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueueConfig — одна очередь, которую слушают воркеры.
type QueueConfig struct {
	Protocol string `mapstructure:"protocol"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Vhost    string `mapstructure:"vhost"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Workers  int    `mapstructure:"workers"`
	Priority int    `mapstructure:"priority"`
}

// Addr возвращает host:port очереди.
func (q QueueConfig) Addr() string {
	return fmt.Sprintf("%s:%d", q.Host, q.Port)
}

// String не выводит пароль.
func (q QueueConfig) String() string {
	return fmt.Sprintf("%s/%s@%s", q.Protocol, q.Name, q.Addr())
}

// MetricsConfig — настройки introspection endpoint.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// EmailConfig — настройки email-уведомлений об ошибках.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      bool   `mapstructure:"ssl"`
	Auth     bool   `mapstructure:"auth"`
}

// Addr возвращает адрес SMTP-сервера.
func (e EmailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", e.Server, e.Port)
}

// HooksConfig — имена задач, вызываемых при старте и остановке.
type HooksConfig struct {
	Startup  string `mapstructure:"startup"`
	Shutdown string `mapstructure:"shutdown"`
}

// ReportConfig — периодический отчёт по метрикам в лог.
type ReportConfig struct {
	Cron string `mapstructure:"cron"`
}

// Load читает конфигурацию из path.
//
// Отсутствующий файл не считается ошибкой: Octobot продолжает запуск
// со значениями по умолчанию (found=false). Битый YAML — ошибка.
func Load(path string) (cfg *Config, found bool, err error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("OCTOBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range envDefaults {
		v.SetDefault(key, value)
	}

	found = true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, false, fmt.Errorf("read config %s: %w", path, err)
		}
		found = false
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, found, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, found, nil
}

// ApplyDefaults заполняет незаданные поля очередей.
func (c *Config) ApplyDefaults() {
	if c.Metrics.Port < 1 {
		c.Metrics.Port = DefaultMetricsPort
	}

	for i := range c.Queues {
		q := &c.Queues[i]
		q.Protocol = strings.ToLower(strings.TrimSpace(q.Protocol))
		if q.Host == "" {
			q.Host = DefaultHost
		}
		if q.Port == 0 {
			q.Port = defaultPorts[q.Protocol]
		}
		if q.Vhost == "" && q.Protocol == ProtocolAMQP {
			q.Vhost = DefaultVhost
		}
		if q.Workers == 0 {
			q.Workers = DefaultWorkers
		}
		if q.Priority == 0 {
			q.Priority = DefaultPriority
		}
	}
}

// Validate проверяет конфигурацию перед запуском воркеров.
func (c *Config) Validate() error {
	if len(c.Queues) == 0 {
		return ErrNoQueues
	}

	for i, q := range c.Queues {
		if _, ok := defaultPorts[q.Protocol]; !ok {
			return fmt.Errorf("%w: queue #%d: %q", ErrInvalidProtocol, i+1, q.Protocol)
		}
		if q.Name == "" {
			return fmt.Errorf("%w: queue #%d: name is required", ErrInvalidQueue, i+1)
		}
		if q.Workers < 1 {
			return fmt.Errorf("%w: queue %s: workers must be >= 1", ErrInvalidQueue, q.Name)
		}
		if q.Priority < 1 || q.Priority > 10 {
			return fmt.Errorf("%w: queue %s: priority must be in 1..10", ErrInvalidQueue, q.Name)
		}
	}

	if c.Email.Enabled {
		if err := c.Email.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (e EmailConfig) validate() error {
	if e.From == "" || e.To == "" || e.Server == "" || e.Port == 0 {
		return fmt.Errorf("%w: from, to, server and port are required", ErrInvalidEmail)
	}
	if e.Auth && (e.Username == "" || e.Password == "") {
		return fmt.Errorf("%w: username and password are required with auth", ErrInvalidEmail)
	}
	return nil
}

// Queue ищет очередь по имени.
func (c *Config) Queue(name string) (QueueConfig, bool) {
	for _, q := range c.Queues {
		if q.Name == name {
			return q, true
		}
	}
	return QueueConfig{}, false
}
