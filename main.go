// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/sangamhq/placedir/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
