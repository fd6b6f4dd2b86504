// Package redisstore 提供基于 Redis 的会话存储、自由对话历史以及会话事件发布。
// 每个会话或对话占用独立的 key，过期由 Redis TTL 负责。
package redisstore
