package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "Manage globally registered drivers",
}

var driversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drivers",
	RunE:  runDriversList,
}

var driversGetCmd = &cobra.Command{
	Use:   "get <driver-id>",
	Short: "Get one driver",
	Args:  cobra.ExactArgs(1),
	RunE:  runDriversGet,
}

var driversCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a driver",
	RunE:  runDriversCreate,
}

var driversDeleteCmd = &cobra.Command{
	Use:   "delete <driver-id>",
	Short: "Delete a driver (requires the fleet owner account; cascades to associations)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDriversDelete,
}

var (
	driverFullName    string
	driverCPF         string
	driverCNHNumber   string
	driverCNHCategory string
	driverPhone       string
	driverSearch      string
)

func init() {
	driversCreateCmd.Flags().StringVar(&driverFullName, "full-name", "", "Driver full name (required)")
	driversCreateCmd.Flags().StringVar(&driverCPF, "cpf", "", "Driver CPF (required)")
	driversCreateCmd.Flags().StringVar(&driverCNHNumber, "cnh-number", "", "Driver license number (required)")
	driversCreateCmd.Flags().StringVar(&driverCNHCategory, "cnh-category", "", "Driver license category")
	driversCreateCmd.Flags().StringVar(&driverPhone, "phone", "", "Contact phone")
	_ = driversCreateCmd.MarkFlagRequired("full-name")
	_ = driversCreateCmd.MarkFlagRequired("cpf")
	_ = driversCreateCmd.MarkFlagRequired("cnh-number")

	driversListCmd.Flags().StringVar(&driverSearch, "search", "", "Free-text search over name, CPF and CNH number")

	driversCmd.AddCommand(driversListCmd)
	driversCmd.AddCommand(driversGetCmd)
	driversCmd.AddCommand(driversCreateCmd)
	driversCmd.AddCommand(driversDeleteCmd)
}

type driverItem struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	CPF         string `json:"cpf"`
	CNHNumber   string `json:"cnhNumber"`
	CNHCategory string `json:"cnhCategory"`
	Phone       string `json:"phone"`
	CreatedAt   string `json:"createdAt"`
}

func runDriversList(cmd *cobra.Command, args []string) error {
	client := newClient()

	path := apiPrefix + "/drivers"
	if driverSearch != "" {
		path += "?search=" + driverSearch
	}

	var resp struct {
		Data  []driverItem `json:"data"`
		Total int64        `json:"total"`
	}
	if err := client.getJSON(path, &resp); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(resp)
	}

	rows := make([][]string, len(resp.Data))
	for i, d := range resp.Data {
		rows[i] = []string{d.ID, truncate(d.FullName, 40), d.CPF, d.CNHNumber, d.CNHCategory}
	}
	printTable([]string{"ID", "Name", "CPF", "CNH", "Category"}, rows)
	fmt.Printf("\nTotal: %d\n", resp.Total)
	return nil
}

func runDriversGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var driver driverItem
	if err := client.getJSON(apiPrefix+"/drivers/"+args[0], &driver); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(driver)
	}
	printTable([]string{"Field", "Value"}, [][]string{
		{"ID", driver.ID},
		{"Name", driver.FullName},
		{"CPF", driver.CPF},
		{"CNH", driver.CNHNumber},
		{"Category", driver.CNHCategory},
		{"Phone", driver.Phone},
		{"Created", driver.CreatedAt},
	})
	return nil
}

func runDriversCreate(cmd *cobra.Command, args []string) error {
	client := newClient()

	body := map[string]string{
		"fullName":    driverFullName,
		"cpf":         driverCPF,
		"cnhNumber":   driverCNHNumber,
		"cnhCategory": driverCNHCategory,
		"phone":       driverPhone,
	}
	var driver driverItem
	if err := client.postJSON(apiPrefix+"/drivers", body, &driver); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(driver)
	}
	fmt.Printf("Driver %s registered (id: %s)\n", driver.FullName, driver.ID)
	return nil
}

func runDriversDelete(cmd *cobra.Command, args []string) error {
	client := newClient()
	if err := client.delete(apiPrefix + "/drivers/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Driver %s deleted\n", args[0])
	return nil
}
