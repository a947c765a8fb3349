package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Manage globally registered vehicles",
}

var vehiclesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vehicles",
	RunE:  runVehiclesList,
}

var vehiclesGetCmd = &cobra.Command{
	Use:   "get <vehicle-id>",
	Short: "Get one vehicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runVehiclesGet,
}

var vehiclesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a vehicle",
	RunE:  runVehiclesCreate,
}

var vehiclesUpdateCmd = &cobra.Command{
	Use:   "update <vehicle-id>",
	Short: "Update a vehicle's physical data (requires the fleet owner account when one exists)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVehiclesUpdate,
}

var vehiclesDeleteCmd = &cobra.Command{
	Use:   "delete <vehicle-id>",
	Short: "Delete a vehicle (requires the fleet owner account; cascades to associations)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVehiclesDelete,
}

var (
	vehiclePlate  string
	vehicleBrand  string
	vehicleModel  string
	vehicleYear   int
	vehicleColor  string
	vehicleSearch string
)

func init() {
	vehiclesCreateCmd.Flags().StringVar(&vehiclePlate, "plate", "", "License plate (required)")
	vehiclesCreateCmd.Flags().StringVar(&vehicleBrand, "brand", "", "Brand")
	vehiclesCreateCmd.Flags().StringVar(&vehicleModel, "model", "", "Model")
	vehiclesCreateCmd.Flags().IntVar(&vehicleYear, "year", 0, "Model year")
	vehiclesCreateCmd.Flags().StringVar(&vehicleColor, "color", "", "Color")
	_ = vehiclesCreateCmd.MarkFlagRequired("plate")

	vehiclesUpdateCmd.Flags().StringVar(&vehicleBrand, "brand", "", "Brand")
	vehiclesUpdateCmd.Flags().StringVar(&vehicleModel, "model", "", "Model")
	vehiclesUpdateCmd.Flags().IntVar(&vehicleYear, "year", 0, "Model year")
	vehiclesUpdateCmd.Flags().StringVar(&vehicleColor, "color", "", "Color")

	vehiclesListCmd.Flags().StringVar(&vehicleSearch, "search", "", "Free-text search over plate, brand and model")

	vehiclesCmd.AddCommand(vehiclesListCmd)
	vehiclesCmd.AddCommand(vehiclesGetCmd)
	vehiclesCmd.AddCommand(vehiclesCreateCmd)
	vehiclesCmd.AddCommand(vehiclesUpdateCmd)
	vehiclesCmd.AddCommand(vehiclesDeleteCmd)
}

type vehicleItem struct {
	ID        string `json:"id"`
	Plate     string `json:"plate"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	Color     string `json:"color"`
	CreatedAt string `json:"createdAt"`
}

func runVehiclesList(cmd *cobra.Command, args []string) error {
	client := newClient()

	path := apiPrefix + "/vehicles"
	if vehicleSearch != "" {
		path += "?search=" + vehicleSearch
	}

	var resp struct {
		Data  []vehicleItem `json:"data"`
		Total int64         `json:"total"`
	}
	if err := client.getJSON(path, &resp); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(resp)
	}

	rows := make([][]string, len(resp.Data))
	for i, v := range resp.Data {
		year := ""
		if v.Year != 0 {
			year = strconv.Itoa(v.Year)
		}
		rows[i] = []string{v.ID, v.Plate, v.Brand, v.Model, year}
	}
	printTable([]string{"ID", "Plate", "Brand", "Model", "Year"}, rows)
	fmt.Printf("\nTotal: %d\n", resp.Total)
	return nil
}

func runVehiclesGet(cmd *cobra.Command, args []string) error {
	client := newClient()

	var vehicle vehicleItem
	if err := client.getJSON(apiPrefix+"/vehicles/"+args[0], &vehicle); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(vehicle)
	}
	printTable([]string{"Field", "Value"}, [][]string{
		{"ID", vehicle.ID},
		{"Plate", vehicle.Plate},
		{"Brand", vehicle.Brand},
		{"Model", vehicle.Model},
		{"Year", strconv.Itoa(vehicle.Year)},
		{"Color", vehicle.Color},
		{"Created", vehicle.CreatedAt},
	})
	return nil
}

func runVehiclesCreate(cmd *cobra.Command, args []string) error {
	client := newClient()

	body := map[string]any{
		"plate": vehiclePlate,
		"brand": vehicleBrand,
		"model": vehicleModel,
		"year":  vehicleYear,
		"color": vehicleColor,
	}
	var vehicle vehicleItem
	if err := client.postJSON(apiPrefix+"/vehicles", body, &vehicle); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(vehicle)
	}
	fmt.Printf("Vehicle %s registered (id: %s)\n", vehicle.Plate, vehicle.ID)
	return nil
}

func runVehiclesUpdate(cmd *cobra.Command, args []string) error {
	client := newClient()

	body := map[string]any{}
	if vehicleBrand != "" {
		body["brand"] = vehicleBrand
	}
	if vehicleModel != "" {
		body["model"] = vehicleModel
	}
	if vehicleYear != 0 {
		body["year"] = vehicleYear
	}
	if vehicleColor != "" {
		body["color"] = vehicleColor
	}

	var vehicle vehicleItem
	if err := client.patchJSON(apiPrefix+"/vehicles/"+args[0], body, &vehicle); err != nil {
		return err
	}

	if outputFmt != "table" {
		return printOutput(vehicle)
	}
	fmt.Printf("Vehicle %s updated\n", vehicle.Plate)
	return nil
}

func runVehiclesDelete(cmd *cobra.Command, args []string) error {
	client := newClient()
	if err := client.delete(apiPrefix + "/vehicles/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("Vehicle %s deleted\n", args[0])
	return nil
}
