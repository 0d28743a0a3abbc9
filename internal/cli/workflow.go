package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowActivateCmd(clientFn, outputFn),
		newWorkflowDeactivateCmd(clientFn, outputFn),
		newWorkflowValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ACTIVE", "CREATED"}
			rows := make([][]string, len(workflows))
			for i, w := range workflows {
				rows[i] = []string{w.ID, w.Name, strconv.FormatBool(w.IsActive), formatTime(w.CreatedAt)}
			}

			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a graph file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			doc, err := readGraphFile(file)
			if err != nil {
				return err
			}

			wf, err := client.CreateWorkflow(doc)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "CREATED"},
				[][]string{{wf.ID, wf.Name, strconv.FormatBool(wf.IsActive), formatTime(wf.CreatedAt)}},
				wf,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to workflow JSON file with name, nodes and edges (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "CREATED", "UPDATED"},
				[][]string{{wf.ID, wf.Name, strconv.FormatBool(wf.IsActive), formatTime(wf.CreatedAt), formatTime(wf.UpdatedAt)}},
				wf,
			)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateWorkflowRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("file") {
				doc, err := readGraphFile(file)
				if err != nil {
					return err
				}
				var graph struct {
					Nodes    json.RawMessage `json:"nodes"`
					Edges    json.RawMessage `json:"edges"`
					Settings json.RawMessage `json:"settings"`
				}
				if err := json.Unmarshal(doc, &graph); err != nil {
					return fmt.Errorf("failed to parse workflow file: %w", err)
				}
				req.Nodes = graph.Nodes
				req.Edges = graph.Edges
				req.Settings = graph.Settings
			}

			wf, err := client.UpdateWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Workflow updated")
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "UPDATED"},
				[][]string{{wf.ID, wf.Name, strconv.FormatBool(wf.IsActive), formatTime(wf.UpdatedAt)}},
				wf,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New workflow name")
	cmd.Flags().StringVar(&file, "file", "", "Path to workflow JSON file with new nodes and edges")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Activate a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.SetWorkflowActive(args[0], true); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow activated: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.SetWorkflowActive(args[0], false); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deactivated: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow graph without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			doc, err := readGraphFile(file)
			if err != nil {
				return err
			}

			result, err := client.ValidateWorkflow(doc)
			if err != nil {
				return err
			}

			if !result.Valid {
				out.Error(result.Error)
				return fmt.Errorf("graph is invalid")
			}

			out.Success("Graph is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to workflow JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// readGraphFile читает и проверяет JSON-файл с графом workflow.
func readGraphFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("workflow file is not valid JSON")
	}
	return json.RawMessage(data), nil
}
