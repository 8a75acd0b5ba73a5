/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package events reports lifecycle events of orchestration runs to a message bus.
// events 包将编排运行的生命周期事件上报到消息总线。
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of lifecycle event
// EventType 是生命周期事件的类型
type EventType string

const (
	EventOperationStarted  EventType = "operation.started"
	EventServerStarted     EventType = "server.started"
	EventServerStopped     EventType = "server.stopped"
	EventDeployFailed      EventType = "deploy.failed"
	EventOperationFinished EventType = "operation.finished"
)

// Event is one lifecycle event of an orchestration run
// Event 是一次编排运行中的生命周期事件
type Event struct {
	ID        string            `json:"id"`
	RunID     string            `json:"run_id"`
	Type      EventType         `json:"type"`
	Target    string            `json:"target"`
	Operation string            `json:"operation"`
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewEvent creates an event with a fresh id and the current time
// NewEvent 创建带有新 ID 和当前时间的事件
func NewEvent(runID string, eventType EventType, target, operation string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		RunID:     runID,
		Type:      eventType,
		Target:    target,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

// Subject returns the NATS subject "<prefix>.<target>.<type>". Characters that
// are not allowed inside a subject token are replaced in the target name.
// Subject 返回 NATS 主题 "<prefix>.<target>.<type>"，目标名中不允许出现在主题片段中的字符会被替换。
func Subject(prefix string, e *Event) string {
	return prefix + "." + subjectToken(e.Target) + "." + string(e.Type)
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "\t", "_", "*", "_", ">", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}
