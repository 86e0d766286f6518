package backend

import (
	"errors"
	"fmt"
	"strings"

	"maks/internal/config"
)

// FromAppConfig picks the data tier settings out of the process config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Kind:         Kind(strings.ToLower(appConfig.DataBackend)),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if !c.Kind.valid() {
		return fmt.Errorf("unknown data backend %q (want one of %s)", c.Kind, strings.Join(Kinds(), ", "))
	}
	if c.Kind == KindSQLite && c.SQLiteDBPath == "" {
		return errors.New("sqlite backend needs SQLITE_DB_PATH")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP_EXCHANGE and AMQP_QUEUE are required when AMQP_URL is set")
	}
	return nil
}
