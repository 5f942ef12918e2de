package mq

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/Octobot/internal/config"
)

// New создаёт транспорт для очереди cfg. Соединение не открывается.
func New(cfg config.QueueConfig, logger *slog.Logger) (Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("protocol", cfg.Protocol, "queue", cfg.Name)

	switch cfg.Protocol {
	case config.ProtocolAMQP:
		return NewAMQP(cfg, logger), nil
	case config.ProtocolBeanstalk:
		return NewBeanstalk(cfg, logger), nil
	case config.ProtocolRedis:
		return NewRedis(cfg, logger), nil
	case config.ProtocolNATS:
		return NewNATS(cfg, logger), nil
	case config.ProtocolPostgres:
		return NewPostgres(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, cfg.Protocol)
	}
}
