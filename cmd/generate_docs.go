package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moldin/gcp-budget-agent/internal/config"
	"github.com/moldin/gcp-budget-agent/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, so the reference always matches the tool definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := toolsReference()
			if err != nil {
				return err
			}
			if outputFile == "" {
				fmt.Fprint(cmd.OutOrStdout(), markdown)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// toolsReference registers every tool on a throwaway server and renders
// the markdown reference. Credentials are never read.
func toolsReference() (string, error) {
	sc, err := server.NewServerContext(context.Background(), config.Default(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv, err := newMCPServer(sc)
	if err != nil {
		return "", err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	return generateToolsMarkdown(tools), nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools available when running budget-agent as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)

	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Response Formats\n\n")
	sb.WriteString("Search tools accept `format`:\n\n")
	sb.WriteString("- `summary` (default): a header line, then `- Subject:` and `  Body:` per email\n")
	sb.WriteString("- `snippet`: like summary with Gmail's snippet instead of the body\n")
	sb.WriteString("- `structured`: `{\"emails\": [{\"subject\", \"from\", \"to\", \"body\", \"date\"}]}`\n")
	sb.WriteString("- `display`: one Date/From/To/Subject/Body block per email\n\n")
	sb.WriteString("An empty search returns `No emails found matching the query.`; matches that could not be fetched return `Found email references, but could not retrieve details. Check logs.`\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		fmt.Fprintf(&sb, "## %s\n\n", category)

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	switch {
	case strings.HasPrefix(name, "search_"), strings.Contains(name, "_search_"), strings.HasSuffix(name, "_query"):
		return "Search Tools"
	case strings.HasPrefix(name, "gmail_"):
		return "Message Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)

	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				fmt.Fprintf(&sb, "%s parameter", getPropertyType(propMap))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
