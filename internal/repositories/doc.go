// Package repositories provides the persistence layer for projects and task
// chains over SQLite.
//
// TaskRepository is the task record store: it loads the minimal chain
// neighborhood an operation needs and applies guarded edit sets inside the
// caller's transaction, turning stale-pointer guards into conflict errors.
// ProjectRepository handles project and collaborator rows and implements
// models.AccessChecker.
package repositories
