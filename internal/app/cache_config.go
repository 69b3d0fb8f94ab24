package app

import (
	"strings"

	"github.com/charlesng35/innkeep/internal/cache"
	"github.com/charlesng35/innkeep/internal/database"
	"github.com/charlesng35/innkeep/internal/events"
	"github.com/charlesng35/innkeep/internal/services"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// DatabaseConnConfig converts DatabaseConfig into database.Open parameters.
func (c DatabaseConfig) DatabaseConnConfig() database.Config {
	return database.Config{
		Driver:          strings.TrimSpace(c.Driver),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		Host:            strings.TrimSpace(c.Host),
		Port:            c.Port,
		User:            strings.TrimSpace(c.User),
		Password:        c.Password,
		Name:            strings.TrimSpace(c.Name),
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogQueries:      c.LogQueries,
	}
}

// AMQPPublisherConfig converts the broker settings for events.NewAMQPPublisher.
func (c EventsConfig) AMQPPublisherConfig() events.AMQPConfig {
	return events.AMQPConfig{
		URL:      strings.TrimSpace(c.AMQP.URL),
		Exchange: strings.TrimSpace(c.AMQP.Exchange),
		Queue:    strings.TrimSpace(c.AMQP.Queue),
	}
}

// SuperadminAccount converts the bootstrap settings for services.Bootstrap.
func (c BootstrapConfig) SuperadminAccount() services.SuperadminAccount {
	return services.SuperadminAccount{
		Username: strings.TrimSpace(c.Username),
		Email:    strings.TrimSpace(c.Email),
		Password: c.Password,
	}
}
