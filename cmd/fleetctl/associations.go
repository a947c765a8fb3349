package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var driverAssocCmd = &cobra.Command{
	Use:   "driver-associations",
	Short: "Manage driver-account associations (history-preserving)",
}

var vehicleAssocCmd = &cobra.Command{
	Use:   "vehicle-associations",
	Short: "Manage vehicle-account associations (single row per pair)",
}

var (
	assocType      string
	assocInactive  bool
	assocGroupID   string
	assocFilter    string
	assocActiveStr string
	assocSearch    string
)

func init() {
	for _, kind := range []struct {
		parent   *cobra.Command
		resource string // "driver" or "vehicle"
	}{
		{driverAssocCmd, "driver"},
		{vehicleAssocCmd, "vehicle"},
	} {
		parent := kind.parent
		resource := kind.resource
		endpoint := apiPrefix + "/" + resource + "-associations"

		addCmd := &cobra.Command{
			Use:   "add <" + resource + "-id>",
			Short: "Create or refresh the association between a " + resource + " and the account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssocAdd(endpoint, resource, args[0])
			},
		}
		addCmd.Flags().StringVar(&assocType, "type", "", "Assignment type: FLEET, AGGREGATED, THIRD_PARTY, OUTSOURCED or LEASED (required)")
		addCmd.Flags().BoolVar(&assocInactive, "inactive", false, "Create the association in the inactive state")
		if resource == "vehicle" {
			addCmd.Flags().StringVar(&assocGroupID, "group", "", "Vehicle group id owned by the account")
		}
		_ = addCmd.MarkFlagRequired("type")

		listCmd := &cobra.Command{
			Use:   "list",
			Short: "List the account's " + resource + " associations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssocList(endpoint, resource)
			},
		}
		listCmd.Flags().StringVar(&assocFilter, resource+"-id", "", "Filter by "+resource+" id")
		listCmd.Flags().StringVar(&assocActiveStr, "active", "", "Filter by active state (true or false)")
		listCmd.Flags().StringVar(&assocSearch, "search", "", "Free-text search over the joined "+resource+" fields")

		getCmd := &cobra.Command{
			Use:   "get <association-id>",
			Short: "Get one association",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssocGet(endpoint, args[0])
			},
		}

		deactivateCmd := &cobra.Command{
			Use:   "deactivate <association-id>",
			Short: "Retire an active association (keeps the row, stamps the end date)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssocDeactivate(endpoint, args[0])
			},
		}

		parent.AddCommand(addCmd, listCmd, getCmd, deactivateCmd)

		if resource == "vehicle" {
			removeCmd := &cobra.Command{
				Use:   "remove <association-id>",
				Short: "Remove a non-fleet association row",
				Args:  cobra.ExactArgs(1),
				RunE: func(cmd *cobra.Command, args []string) error {
					return runAssocRemove(endpoint, args[0])
				},
			}
			parent.AddCommand(removeCmd)
		}
	}
}

type assocItem struct {
	ID             string `json:"id"`
	ResourceID     string `json:"resourceId"`
	AccountID      string `json:"accountId"`
	AssignmentType string `json:"assignmentType"`
	Active         bool   `json:"active"`
	StartedAt      string `json:"startedAt"`
	EndedAt        string `json:"endedAt"`
	Driver         *struct {
		FullName string `json:"fullName"`
	} `json:"driver"`
	Vehicle *struct {
		Plate string `json:"plate"`
	} `json:"vehicle"`
	Group *struct {
		Name string `json:"name"`
	} `json:"group"`
}

func (a assocItem) resourceLabel() string {
	if a.Driver != nil {
		return a.Driver.FullName
	}
	if a.Vehicle != nil {
		return a.Vehicle.Plate
	}
	return a.ResourceID
}

func runAssocAdd(endpoint, resource, resourceID string) error {
	client := newClient()

	body := map[string]any{
		resource + "Id":   resourceID,
		"assignmentType":  assocType,
		"active":          !assocInactive,
	}
	if assocGroupID != "" {
		body["groupId"] = assocGroupID
	}

	var assoc assocItem
	if err := client.postJSON(endpoint, body, &assoc); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(assoc)
	}
	fmt.Printf("Association %s: %s %s (active=%t)\n",
		assoc.ID, assoc.AssignmentType, assoc.resourceLabel(), assoc.Active)
	return nil
}

func runAssocList(endpoint, resource string) error {
	client := newClient()

	params := url.Values{}
	if assocFilter != "" {
		params.Set(resource+"Id", assocFilter)
	}
	if assocActiveStr != "" {
		params.Set("active", assocActiveStr)
	}
	if assocSearch != "" {
		params.Set("search", assocSearch)
	}
	path := endpoint
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Data  []assocItem `json:"data"`
		Total int64       `json:"total"`
	}
	if err := client.getJSON(path, &resp); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(resp)
	}

	rows := make([][]string, len(resp.Data))
	for i, a := range resp.Data {
		ended := a.EndedAt
		if ended == "" {
			ended = "-"
		}
		rows[i] = []string{
			a.ID,
			truncate(a.resourceLabel(), 30),
			a.AssignmentType,
			fmt.Sprintf("%t", a.Active),
			a.StartedAt,
			ended,
		}
	}
	printTable([]string{"ID", "Resource", "Type", "Active", "Started", "Ended"}, rows)
	fmt.Printf("\nTotal: %d\n", resp.Total)
	return nil
}

func runAssocGet(endpoint, id string) error {
	client := newClient()

	var assoc assocItem
	if err := client.getJSON(endpoint+"/"+id, &assoc); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(assoc)
	}
	ended := assoc.EndedAt
	if ended == "" {
		ended = "-"
	}
	group := "-"
	if assoc.Group != nil {
		group = assoc.Group.Name
	}
	printTable([]string{"Field", "Value"}, [][]string{
		{"ID", assoc.ID},
		{"Resource", assoc.resourceLabel()},
		{"Account", assoc.AccountID},
		{"Type", assoc.AssignmentType},
		{"Active", fmt.Sprintf("%t", assoc.Active)},
		{"Group", group},
		{"Started", assoc.StartedAt},
		{"Ended", ended},
	})
	return nil
}

func runAssocDeactivate(endpoint, id string) error {
	client := newClient()

	var assoc assocItem
	if err := client.postJSON(endpoint+"/"+id+"/deactivate", map[string]any{}, &assoc); err != nil {
		return err
	}
	fmt.Printf("Association %s deactivated (ended %s)\n", assoc.ID, assoc.EndedAt)
	return nil
}

func runAssocRemove(endpoint, id string) error {
	client := newClient()
	if err := client.delete(endpoint + "/" + id); err != nil {
		return err
	}
	fmt.Printf("Association %s removed\n", id)
	return nil
}
