// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stacklok/toolhive-bridge/cmd/thv-bridge/app"
	"github.com/stacklok/toolhive-bridge/pkg/errors"
	"github.com/stacklok/toolhive-bridge/pkg/logger"
)

func main() {
	logger.Initialize()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("Error executing command: %v", err)
		if errors.IsConfig(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
