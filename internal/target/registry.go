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

package target

import (
	"fmt"
	"sync/atomic"
)

// Snapshot is an immutable, ordered view of the registered targets
// Snapshot 是已注册目标的不可变有序视图
type Snapshot struct {
	targets []Descriptor
	index   map[string]int
}

// List returns the targets in configuration order
// List 按配置顺序返回目标
func (s *Snapshot) List() []Descriptor {
	if s == nil {
		return nil
	}
	out := make([]Descriptor, len(s.targets))
	copy(out, s.targets)
	return out
}

// Find looks a target up by name
// Find 按名称查找目标
func (s *Snapshot) Find(name string) (Descriptor, bool) {
	if s == nil {
		return Descriptor{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return s.targets[i], true
}

// Len returns the number of targets
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.targets)
}

// NewSnapshot builds a snapshot, rejecting zero descriptors and duplicate names
// NewSnapshot 构建快照，拒绝未初始化的描述符和重复名称
func NewSnapshot(descs []Descriptor) (*Snapshot, error) {
	s := &Snapshot{
		targets: make([]Descriptor, 0, len(descs)),
		index:   make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		if d.IsZero() {
			return nil, fmt.Errorf("%w: descriptor was not constructed", ErrInvalidKind)
		}
		if _, dup := s.index[d.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, d.name)
		}
		s.index[d.name] = len(s.targets)
		s.targets = append(s.targets, d)
	}
	return s, nil
}

// Registry holds the current snapshot. Replace swaps the whole snapshot, so a run
// that already took a snapshot never observes a later change.
// Registry 保存当前快照。Replace 整体替换快照，已获取快照的运行不会看到之后的变更。
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry holding descs
// NewRegistry 创建包含 descs 的注册表
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(descs); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace validates descs and publishes them as the new snapshot
// Replace 校验 descs 并发布为新快照
func (r *Registry) Replace(descs []Descriptor) error {
	snap, err := NewSnapshot(descs)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// Snapshot returns the current snapshot (never nil)
// Snapshot 返回当前快照（不为 nil）
func (r *Registry) Snapshot() *Snapshot {
	if s := r.current.Load(); s != nil {
		return s
	}
	return &Snapshot{index: map[string]int{}}
}
