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

package deploy

import (
	"fmt"
	"strings"
)

// ModuleKind is the deployable unit type derived from a module file name
// ModuleKind 是根据模块文件名推断的部署单元类型
type ModuleKind int

const (
	KindUnknown ModuleKind = iota
	KindEAR
	KindEJB
	KindWAR
)

// File name suffixes, matched case-sensitively
// 文件名后缀，大小写敏感
const (
	SuffixEAR = ".ear"
	SuffixEJB = "-ejb.jar"
	SuffixWAR = ".war"
)

func (k ModuleKind) String() string {
	switch k {
	case KindEAR:
		return "ear"
	case KindEJB:
		return "ejb"
	case KindWAR:
		return "war"
	default:
		return "unknown"
	}
}

// ModuleSpec identifies one module to check
// ModuleSpec 标识一个待检查的模块
type ModuleSpec struct {
	// ID is the module name as configured, e.g. "shop.war"
	// ID 是配置中的模块名，例如 "shop.war"
	ID   string
	Kind ModuleKind
}

// ParseModule classifies a module name by suffix. "-ejb.jar" wins over the others.
// ParseModule 按后缀对模块名分类，"-ejb.jar" 优先。
func ParseModule(id string) ModuleSpec {
	kind := KindUnknown
	switch {
	case strings.HasSuffix(id, SuffixEJB):
		kind = KindEJB
	case strings.HasSuffix(id, SuffixEAR):
		kind = KindEAR
	case strings.HasSuffix(id, SuffixWAR):
		kind = KindWAR
	}
	return ModuleSpec{ID: id, Kind: kind}
}

// ParseModules classifies a list of module names, dropping blank entries
// ParseModules 对模块名列表分类，忽略空白项
func ParseModules(ids []string) []ModuleSpec {
	specs := make([]ModuleSpec, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		specs = append(specs, ParseModule(id))
	}
	return specs
}

// Supported reports whether the module kind can be checked
func (m ModuleSpec) Supported() bool {
	return m.Kind != KindUnknown
}

// WebContext returns the web context of a WAR module, e.g. "shop" for "shop.war"
// WebContext 返回 WAR 模块的 Web 上下文，例如 "shop.war" 对应 "shop"
func (m ModuleSpec) WebContext() string {
	return strings.TrimSuffix(m.ID, SuffixWAR)
}

// ObjectName returns the management object name holding the module state. For a
// WAR it is a query pattern that must match exactly one object.
// ObjectName 返回保存模块状态的管理对象名；对于 WAR 是一个必须恰好匹配一个对象的查询模式。
func (m ModuleSpec) ObjectName() string {
	switch m.Kind {
	case KindEAR:
		return fmt.Sprintf("jboss.j2ee:service=EARDeployment,url='%s'", m.ID)
	case KindEJB:
		return fmt.Sprintf("jboss.j2ee:module=%s,service=EjbModule", m.ID)
	case KindWAR:
		return fmt.Sprintf("jboss.web.deployment:war=/%s,*", m.WebContext())
	default:
		return ""
	}
}

func (m ModuleSpec) String() string {
	return fmt.Sprintf("%s (%s)", m.ID, m.Kind)
}
