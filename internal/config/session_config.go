package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionTTL returns how long a browser session lives. It tracks the
// backend refresh-token lifetime: once the refresh token is dead the
// session record is useless anyway.
func (Session) GetSessionTTL() time.Duration {
	ttl, err := time.ParseDuration(GetEnv(sessionTTLVar, "168h"))
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return ttl
}

// GetRedisAddr returns the Redis address for shared session storage.
// Empty means sessions are kept in process memory.
func (Session) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (Session) GetRedisPassword() string {
	return GetEnv(redisPwdVar, "")
}

func (Session) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv(redisDBVar, "0"))
	if err != nil {
		return 0
	}
	return db
}
