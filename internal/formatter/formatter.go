// package formatter provides functions to export a project outline to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/calebmds/taskchain/internal/models"
)

// OutlineExport bundles a project with its tasks in chain order.
type OutlineExport struct {
	Project models.Project
	Tasks   []models.Task
}

// ExportToCSV converts an OutlineExport to CSV format with columns: ID, Value, Level, Completed
func ExportToCSV(export *OutlineExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Value", "Level", "Completed"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range export.Tasks {
		record := []string{
			strconv.FormatInt(task.ID, 10),
			task.Value,
			strconv.Itoa(task.Level),
			strconv.FormatBool(task.Completed),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an OutlineExport to a Markdown task list, nesting
// by indentation level with GitHub-style checkboxes.
func ExportToMarkdown(export *OutlineExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Project.Name))
	buf.WriteString(fmt.Sprintf("**Tasks**: %d\n\n", len(export.Tasks)))

	for _, task := range export.Tasks {
		marker := "[ ]"
		if task.Completed {
			marker = "[x]"
		}
		indent := strings.Repeat("  ", task.Level)
		buf.WriteString(fmt.Sprintf("%s- %s %s\n", indent, marker, task.Value))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an OutlineExport to plain text format
func ExportToText(export *OutlineExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Project: %s\n", export.Project.Name))
	buf.WriteString(fmt.Sprintf("Tasks: %d\n\n", len(export.Tasks)))

	for _, task := range export.Tasks {
		status := " "
		if task.Completed {
			status = "x"
		}
		indent := strings.Repeat("    ", task.Level)
		buf.WriteString(fmt.Sprintf("%s[%s] %s\n", indent, status, task.Value))
	}

	return buf.Bytes(), nil
}

// WriteCSVExport exports an outline to a CSV file.
//
// Defaults to {project.ID}_tasks.csv as the filename.
func WriteCSVExport(export *OutlineExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%d_tasks.csv", export.Project.ID)
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// WriteMarkdownExport exports an outline to a Markdown file.
//
// Defaults to {project.ID}_outline.md as the filename.
func WriteMarkdownExport(export *OutlineExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%d_outline.md", export.Project.ID)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports an outline to plain text format.
//
// Defaults to {project.ID}_outline.txt as the filename.
func WriteTextExport(export *OutlineExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%d_outline.txt", export.Project.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
