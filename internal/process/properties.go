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

package process

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// DefinitionPrefix is prepended to every key=value pair passed to the start command
// DefinitionPrefix 是传给启动命令的每个 key=value 的前缀
const DefinitionPrefix = "-D"

// ExpandEnv substitutes ${VAR} and $VAR references whose name is present in env.
// Everything else, including unknown names, $$, $1 and an unterminated ${, is
// copied byte for byte.
// ExpandEnv 仅替换 env 中存在的 ${VAR} 和 $VAR 引用，其余内容（包括未知变量、$$、$1 和未闭合的 ${）逐字节保留。
func ExpandEnv(s string, env map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		name, width := scanVarRef(s[i+1:])
		if width == 0 {
			b.WriteByte('$')
			i++
			continue
		}
		if v, ok := env[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : i+1+width])
		}
		i += 1 + width
	}
	return b.String()
}

// scanVarRef reads the reference after a '$' and returns its name and the number
// of bytes it spans; width 0 means there is no reference.
func scanVarRef(s string) (name string, width int) {
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 || !isVarName(s[1:end]) {
			return "", 0
		}
		return s[1:end], end + 1
	}
	n := 0
	for n < len(s) && isVarByte(s[n], n == 0) {
		n++
	}
	return s[:n], n
}

func isVarName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isVarByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isVarByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}

// ParseProperties turns a free-form "k=v k2='v 2'" string into -Dk=v definitions,
// preserving order. A blank string yields no definitions.
// ParseProperties 将自由格式的 "k=v k2='v 2'" 字符串转换为 -Dk=v 定义并保持顺序，空白字符串不产生定义。
func ParseProperties(properties string, env map[string]string) ([]string, error) {
	if strings.TrimSpace(properties) == "" {
		return nil, nil
	}

	line := ExpandEnv(properties, env)
	p := shellwords.NewParser()
	tokens, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProperties, err)
	}
	// The tokenizer stops at unquoted shell operators. / 分词器会在未加引号的 shell 运算符处停止。
	if p.Position >= 0 {
		return nil, fmt.Errorf("%w: unquoted shell operator at position %d", ErrInvalidProperties, p.Position)
	}

	defs := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		key, value, hasValue := strings.Cut(tok, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: empty key in %q", ErrInvalidProperties, tok)
		}
		if !hasValue {
			defs = append(defs, DefinitionPrefix+key)
			continue
		}
		defs = append(defs, DefinitionPrefix+key+"="+value)
	}
	return defs, nil
}
