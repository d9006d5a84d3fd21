// Package models defines domain entities and collaborator interfaces for the
// task outline engine.
//
// The central types are:
//   - [Task] : one row of a project's outline; ordering is encoded by the
//     Next pointer chain, hierarchy by the Level depth
//   - [Project] : the owning container; FirstTask references the chain head
//
// Interfaces consumed from external collaborators:
//   - [AccessChecker] : project membership checks executed by the access
//     filter before any mutating invocation is dispatched
//
// Identity of a task is always the pair (ProjectID, ID); numeric ids are
// reused freely across projects.
package models
