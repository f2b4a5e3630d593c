// Package main provides the flowdeck CLI for inspecting the catalog and
// linting flow documents offline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
	"github.com/flowdeckhq/flowdeck/pkg/models"
)

func main() {
	command := &cli.Command{
		Name:                  "flowdeck",
		Usage:                 "Inspect the node catalog and lint flow files",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			validateCommand(),
			catalogCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Lint a flow JSON file",
		ArgsUsage: "<flow.json>",
		Action: func(_ context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one flow file argument")
			}

			return validateFlowFile(command.Args().First())
		},
	}
}

// validateFlowFile normalizes and lints one flow document. Findings are
// advisory; the command only fails on unreadable input.
func validateFlowFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read flow file: %w", err)
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return fmt.Errorf("decode flow file: %w", err)
	}

	flow.Normalize()

	cat := catalog.New()
	findings := 0

	for _, node := range flow.Nodes {
		for _, finding := range lintNode(cat, node) {
			findings++

			fmt.Printf("  %s (%s): %s\n", node.ID, node.Type, finding)
		}
	}

	for _, edge := range flow.Edges {
		for _, finding := range lintEdge(&flow, edge) {
			findings++

			fmt.Printf("  edge %s: %s\n", edge.ID, finding)
		}
	}

	if findings == 0 {
		fmt.Printf("%s: ok (%d nodes, %d edges)\n", path, len(flow.Nodes), len(flow.Edges))
	} else {
		fmt.Printf("%s: %d finding(s)\n", path, findings)
	}

	return nil
}

func lintNode(cat *catalog.Catalog, node *models.Node) []string {
	var findings []string

	if !slices.Contains(models.NodeTypes(), node.Type) {
		findings = append(findings, "unknown node type, rendered with the fallback definition")
	}

	definition := cat.LookupNode(node.Type)
	if definition.Validate != nil && !definition.Validate(node) {
		findings = append(findings, "incomplete configuration")
	}

	switch node.Type {
	case models.NodeTypeIf:
		config := models.CoerceIfConfig(node.Config)
		for _, condition := range config.Conditions {
			operators := models.OperatorsFor(condition.Type)
			known := slices.ContainsFunc(operators, func(op models.ConditionOperator) bool {
				return op.Label == condition.Operator
			})

			if !known {
				findings = append(findings, fmt.Sprintf("condition %s uses unknown operator %q", condition.ID, condition.Operator))
			}
		}
	case models.NodeTypeScheduleTrigger:
		expression, _ := node.Config["cron"].(string)
		state := models.ParseScheduleExpression(expression)

		if state.NextRun(time.Now()).IsZero() {
			findings = append(findings, fmt.Sprintf("schedule %q never fires", expression))
		}
	}

	return findings
}

func lintEdge(flow *models.Flow, edge *models.Edge) []string {
	var findings []string

	for _, handle := range []string{edge.SourceHandle, edge.TargetHandle} {
		nodeID, _, ok := models.ParseHandle(handle)
		if !ok {
			findings = append(findings, fmt.Sprintf("malformed handle reference %q", handle))

			continue
		}

		if flow.NodeByID(nodeID) == nil {
			findings = append(findings, fmt.Sprintf("handle %q references a missing node", handle))
		}
	}

	return findings
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"c"},
		Usage:   "List catalog entries",
		Commands: []*cli.Command{
			{
				Name:  "nodes",
				Usage: "List node types",
				Action: func(_ context.Context, _ *cli.Command) error {
					for _, definition := range catalog.New().NodeDefinitions() {
						fmt.Printf("%-18s %-10s %s\n", definition.Type, definition.Category, definition.Description)
					}

					return nil
				},
			},
			{
				Name:  "apps",
				Usage: "List apps and their actions",
				Action: func(_ context.Context, _ *cli.Command) error {
					cat := catalog.New()

					for _, app := range cat.Apps() {
						fmt.Printf("%s (%s)\n", app.Label, app.Key)

						for _, action := range cat.ListActions(app.Key) {
							marker := " "
							if action.Disabled {
								marker = "x"
							}

							fmt.Printf("  [%s] %-28s %s\n", marker, action.Key, action.Label)
						}
					}

					return nil
				},
			},
			{
				Name:  "tools",
				Usage: "List agent tools",
				Action: func(_ context.Context, _ *cli.Command) error {
					for _, tool := range catalog.New().Tools() {
						fmt.Printf("%-28s %s\n", tool.Key, tool.Label)
					}

					return nil
				},
			},
		},
	}
}
