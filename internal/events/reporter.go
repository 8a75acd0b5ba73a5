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
	"sync"
	"time"

	"github.com/jbossctl/jbossctl/internal/logger"
)

// DefaultCacheSize is the default size of the event cache
// DefaultCacheSize 是事件缓存的默认大小
const DefaultCacheSize = 1000

// DefaultBatchSize is the default batch size for event reporting
// DefaultBatchSize 是事件上报的默认批量大小
const DefaultBatchSize = 50

// ReportFunc delivers a batch of events
// ReportFunc 投递一批事件
type ReportFunc func(ctx context.Context, events []*Event) error

// Reporter caches events and reports them in batches. A failed batch stays in
// the cache for the next flush.
// Reporter 缓存事件并批量上报，失败的批次保留在缓存中等待下次刷新。
type Reporter struct {
	mu         sync.Mutex
	cache      []*Event
	cacheSize  int
	batchSize  int
	reportFunc ReportFunc

	flushInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewReporter creates a reporter; a non-positive batch size uses DefaultBatchSize
// NewReporter 创建上报器；非正批量大小使用 DefaultBatchSize
func NewReporter(reportFunc ReportFunc, batchSize int) *Reporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Reporter{
		cache:         make([]*Event, 0, batchSize),
		cacheSize:     DefaultCacheSize,
		batchSize:     batchSize,
		reportFunc:    reportFunc,
		flushInterval: 5 * time.Second,
		stopCh:        make(chan struct{}),
	}
}

// SetCacheSize sets the maximum cache size
// SetCacheSize 设置最大缓存大小
func (r *Reporter) SetCacheSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.cacheSize = size
	}
}

// Start starts the periodic flush goroutine
// Start 启动定期刷新 goroutine
func (r *Reporter) Start(interval time.Duration) {
	if interval > 0 {
		r.flushInterval = interval
	}
	r.wg.Add(1)
	go r.flushLoop()
}

// Close stops the flush loop and makes a final flush
// Close 停止刷新循环并执行最后一次刷新
func (r *Reporter) Close(ctx context.Context) {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.Flush(ctx)
}

func (r *Reporter) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Flush(context.Background())
		}
	}
}

// Report adds an event to the cache and flushes once a batch is full. The oldest
// event is dropped when the cache is full.
// Report 将事件加入缓存，满一批时刷新；缓存已满时丢弃最旧的事件。
func (r *Reporter) Report(ctx context.Context, e *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.cache) >= r.cacheSize {
		r.cache = r.cache[1:]
	}
	r.cache = append(r.cache, e)
	logger.DebugF(ctx, "[EventReporter] event cached: type=%s, target=%s, run=%s", e.Type, e.Target, e.RunID)

	if len(r.cache) >= r.batchSize {
		r.flushLocked(ctx)
	}
}

// Flush reports all cached events
// Flush 上报所有缓存的事件
func (r *Reporter) Flush(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked(ctx)
}

// flushLocked must be called with the lock held
func (r *Reporter) flushLocked(ctx context.Context) {
	if len(r.cache) == 0 || r.reportFunc == nil {
		return
	}

	for len(r.cache) > 0 {
		end := min(r.batchSize, len(r.cache))
		if err := r.reportFunc(ctx, r.cache[:end]); err != nil {
			logger.WarnF(ctx, "[EventReporter] failed to report %d events, keeping them cached: %v", end, err)
			return
		}
		r.cache = r.cache[end:]
		logger.DebugF(ctx, "[EventReporter] reported %d events, %d remaining", end, len(r.cache))
	}
}

// Pending returns the number of cached events
// Pending 返回缓存的事件数量
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
