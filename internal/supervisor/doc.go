// Basketrules - Market Basket Association Rule Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrules

/*
Package supervisor runs long-lived services under a suture v4 tree.

The tree is only used when scheduled retraining is enabled:

	RootSupervisor ("basketrules")
	└── TrainingSupervisor ("training-layer")
	    └── RetrainService

A service that returns an error is restarted with suture's backoff. A
service that returns because its context was canceled is not.

Supervisor events are written through log/slog with sutureslog. The slog
logger is normally logging.NewSlogLogger so events share the zerolog
output of the rest of the application.
*/
package supervisor
