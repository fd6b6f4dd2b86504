// Package report 定义会话结束报告、报告归档以及 session.ended 事件的发布。
// 归档与事件发布都是尽力而为的旁路操作，失败只记录日志，不影响结束会话本身。
package report
