package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/calebmds/taskchain/internal/models"
)

var _ list.Item = projectItem{}

// projectItem wraps [models.Project] to implement [list.Item].
type projectItem struct {
	project models.Project
}

func (i projectItem) FilterValue() string { return i.project.Name }
func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string {
	if i.project.FirstTask == nil {
		return "empty outline"
	}
	return fmt.Sprintf("owned by %s", i.project.OwnerID)
}
