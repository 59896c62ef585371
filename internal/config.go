// Package internal holds the process-level configuration shared by the
// server entry point.
package internal

import "time"

type Config struct {
	Host                 string        `env:"HOST"`
	Port                 int           `env:"PORT,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	TypingTTL            time.Duration `env:"TYPING_TTL"`
	TypingSweepInterval  time.Duration `env:"TYPING_SWEEP_INTERVAL"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	JWTSecret            string        `env:"JWT_SECRET"`
}
