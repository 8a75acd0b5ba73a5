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

package jmxtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"jboss.web.deployment:war=/shop,*", "jboss.web.deployment:war=/shop,id=1", true},
		{"jboss.web.deployment:war=/shop,*", "jboss.web.deployment:war=/shop2,id=1", false},
		{"jboss.web.deployment:war=/shop,*", "jboss.web:war=/shop,id=1", false},
		{"jboss.system:type=Server", "jboss.system:type=Server", true},
		{"jboss.system:type=Server", "jboss.system:type=Server,extra=1", false},
		{"jboss.*:type=Server", "jboss.system:type=Server", true},
		{"jboss.j2ee:module=*,*", "jboss.j2ee:module=a-ejb.jar,service=EjbModule", true},
		{"no-colon", "jboss.system:type=Server", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.name), "%s vs %s", tt.pattern, tt.name)
	}
}
