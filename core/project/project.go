// Package project exposes the parts of a project the engine reads.
// Projects are owned by the group formation & approval workflows.
package project

import (
	"context"
	"time"
)

const Entity = "project"

type Project struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	ApprovedAt *time.Time `json:"approved_at"` // UTC; nil until the proposal is approved
	CreatedAt  time.Time  `json:"created_at"`
}

func (p Project) IsApproved() bool { return p.ApprovedAt != nil }

type Repository interface {
	// GetProject fails with a *core.NotFoundError for an unknown ID.
	GetProject(ctx context.Context, id string) (Project, error)
	// SaveProject creates or updates a project (used by the approval workflow's sync & tests).
	SaveProject(ctx context.Context, p Project) (Project, error)
}
