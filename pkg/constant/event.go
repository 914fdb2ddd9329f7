/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-10-09 18:07:37
 * @LastEditTime: 2025-10-19 17:10:03
 * @LastEditors: 安知鱼
 */
package constant

import "github.com/anzhiyu-c/anheyu-drop/internal/pkg/event"

// EventTopic 事件主题类型
type EventTopic = event.Topic

// 导出事件主题常量，供外部使用
const (
	EventShareCreated EventTopic = event.ShareCreated
	EventShareDeleted EventTopic = event.ShareDeleted
	EventShareExpired EventTopic = event.ShareExpired
)
