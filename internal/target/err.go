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

import "errors"

// Error definitions for target descriptors and the registry.
var (
	// ErrNameEmpty indicates the target name is empty.
	ErrNameEmpty = errors.New("target: name cannot be empty")
	// ErrAddressEmpty indicates the management address is empty.
	ErrAddressEmpty = errors.New("target: address cannot be empty")
	// ErrInvalidPort indicates the management port is not above 1024.
	ErrInvalidPort = errors.New("target: management port must be greater than 1024")
	// ErrInvalidTimeout indicates a non-positive readiness timeout.
	ErrInvalidTimeout = errors.New("target: timeout must be positive")
	// ErrInstallDirEmpty indicates a local target without an install directory.
	ErrInstallDirEmpty = errors.New("target: local target requires an install directory")
	// ErrInvalidInstallDir indicates the install directory does not look like a server home.
	ErrInvalidInstallDir = errors.New("target: install directory is not a valid server home")
	// ErrCommandEmpty indicates a remote target without start or stop commands.
	ErrCommandEmpty = errors.New("target: remote target requires start and stop commands")
	// ErrInvalidKind indicates an unknown target kind.
	ErrInvalidKind = errors.New("target: invalid kind")
	// ErrDuplicateName indicates two targets share the same name.
	ErrDuplicateName = errors.New("target: duplicate target name")
	// ErrNotFound indicates the requested target is not registered.
	ErrNotFound = errors.New("target: target not found")
)
