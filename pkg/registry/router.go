package registry

import (
	"github.com/go-chi/chi/v5"
)

// Routers bundles the sub-routers for the registry entities. Vehicle and
// driver routers take the ownership guard for physical edits and deletion.
type Routers struct {
	Accounts chi.Router
	Drivers  chi.Router
	Vehicles chi.Router
	Groups   chi.Router
}

// NewRouters builds the registry sub-routers.
func NewRouters(
	accounts *AccountStore,
	drivers *DriverStore,
	vehicles *VehicleStore,
	groups *GroupStore,
	driverGuard ResourceGuard,
	vehicleGuard ResourceGuard,
) Routers {
	accountsR := chi.NewRouter()
	accountsR.Get("/", ListAccountsHandler(accounts))
	accountsR.Post("/", CreateAccountHandler(accounts))
	accountsR.Get("/{accountId}", GetAccountHandler(accounts))
	accountsR.Patch("/{accountId}", UpdateAccountHandler(accounts))
	accountsR.Delete("/{accountId}", DeleteAccountHandler(accounts))

	driversR := chi.NewRouter()
	driversR.Get("/", ListDriversHandler(drivers))
	driversR.Post("/", CreateDriverHandler(drivers))
	driversR.Get("/{driverId}", GetDriverHandler(drivers))
	driversR.Patch("/{driverId}", UpdateDriverHandler(drivers))
	driversR.Delete("/{driverId}", DeleteDriverHandler(driverGuard))

	vehiclesR := chi.NewRouter()
	vehiclesR.Get("/", ListVehiclesHandler(vehicles))
	vehiclesR.Post("/", CreateVehicleHandler(vehicles))
	vehiclesR.Get("/{vehicleId}", GetVehicleHandler(vehicles))
	vehiclesR.Patch("/{vehicleId}", UpdateVehicleHandler(vehicles, vehicleGuard))
	vehiclesR.Delete("/{vehicleId}", DeleteVehicleHandler(vehicleGuard))

	groupsR := chi.NewRouter()
	groupsR.Get("/", ListGroupsHandler(groups))
	groupsR.Post("/", CreateGroupHandler(groups))
	groupsR.Get("/{groupId}", GetGroupHandler(groups))
	groupsR.Patch("/{groupId}", UpdateGroupHandler(groups))
	groupsR.Delete("/{groupId}", DeleteGroupHandler(groups))

	return Routers{
		Accounts: accountsR,
		Drivers:  driversR,
		Vehicles: vehiclesR,
		Groups:   groupsR,
	}
}
