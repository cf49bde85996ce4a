// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "time"

// CommitStatus is a GitHub commit status.
type CommitStatus struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"` // "error", "failure", "pending", "success"
	TargetURL   string    `json:"target_url"`
	Description string    `json:"description"`
	Context     string    `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
}
