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

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jbossctl/jbossctl/internal/logger"
	"github.com/nats-io/nats.go"
)

// DefaultFlushTimeout bounds the wait for the server acknowledgement
const DefaultFlushTimeout = 5 * time.Second

// ErrNotConnected is returned when publishing on a closed connection
var ErrNotConnected = errors.New("events: nats not connected")

// Publisher publishes events to NATS
// Publisher 将事件发布到 NATS
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// NewPublisher connects to the NATS server at url
// NewPublisher 连接到 url 指定的 NATS 服务器
func NewPublisher(url, prefix string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("jbossctl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WarnF(context.Background(), "[Events] nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.InfoF(context.Background(), "[Events] nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	return &Publisher{nc: nc, prefix: prefix}, nil
}

// Encode returns the subject and JSON payload of an event
// Encode 返回事件的主题和 JSON 负载
func Encode(prefix string, e *Event) (string, []byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("events: encode %s: %w", e.Type, err)
	}
	return Subject(prefix, e), payload, nil
}

// Publish sends a batch of events and waits for the server to acknowledge the flush.
// It has the ReportFunc signature.
// Publish 发送一批事件并等待服务器确认刷新，签名与 ReportFunc 一致。
func (p *Publisher) Publish(ctx context.Context, batch []*Event) error {
	if p.nc == nil || p.nc.IsClosed() {
		return ErrNotConnected
	}
	for _, e := range batch {
		subject, payload, err := Encode(p.prefix, e)
		if err != nil {
			return err
		}
		if err := p.nc.Publish(subject, payload); err != nil {
			return fmt.Errorf("events: publish %s: %w", subject, err)
		}
	}

	// FlushWithContext requires a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFlushTimeout)
		defer cancel()
	}
	return p.nc.FlushWithContext(ctx)
}

// Close drains and closes the connection
// Close 排空并关闭连接
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}
