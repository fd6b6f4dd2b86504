// Package sqlstore 基于 database/sql 实现会话、社区场景与报告归档的持久化，
// 同一套语句同时运行在 MySQL（go-sql-driver/mysql）与内嵌 SQLite（modernc.org/sqlite）之上。
// 表结构由 deploy/migrations 中的迁移文件维护。
package sqlstore
