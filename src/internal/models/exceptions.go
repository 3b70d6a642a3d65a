package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrSessionConflict     = errors.New("session already exists")
	ErrSessionInvalidState = errors.New("session is not in valid state")
	ErrSessionCreating     = errors.New("error creating session")
	ErrSessionUpdating     = errors.New("error updating session")
)

var (
	ErrTokenMissing     = errors.New("token is missing")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownRole      = errors.New("unknown role")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
	ErrUserNotFound       = errors.New("user not found")
)

var (
	ErrCodeRateLimited = errors.New("code requested too frequently")
	ErrCodePublish     = errors.New("error publishing code message")
)
