package association

import (
	"time"

	"github.com/fleetops/fleet-registry/pkg/registry"
)

// assocResponse is the API representation of an association with its joined
// entities.
type assocResponse struct {
	ID             string           `json:"id"`
	ResourceKind   string           `json:"resourceKind"`
	ResourceID     string           `json:"resourceId"`
	AccountID      string           `json:"accountId"`
	AssignmentType string           `json:"assignmentType"`
	Active         bool             `json:"active"`
	GroupID        *string          `json:"groupId,omitempty"`
	StartedAt      string           `json:"startedAt"`
	EndedAt        string           `json:"endedAt,omitempty"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
	Driver         *driverView      `json:"driver,omitempty"`
	Vehicle        *vehicleView     `json:"vehicle,omitempty"`
	Account        *accountView     `json:"account,omitempty"`
	Group          *groupView       `json:"group,omitempty"`
}

type driverView struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	CPF         string `json:"cpf"`
	CNHNumber   string `json:"cnhNumber"`
	CNHCategory string `json:"cnhCategory,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type vehicleView struct {
	ID    string `json:"id"`
	Plate string `json:"plate"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Color string `json:"color,omitempty"`
}

type accountView struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	Document    string `json:"document"`
}

type groupView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func assocToResponse(a *Association) assocResponse {
	resp := assocResponse{
		ID:             a.ID,
		ResourceKind:   string(a.ResourceKind),
		ResourceID:     a.ResourceID,
		AccountID:      a.AccountID,
		AssignmentType: string(a.AssignmentType),
		Active:         a.Active,
		GroupID:        a.GroupID,
		StartedAt:      formatTime(a.StartedAt),
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
	if a.EndedAt != nil {
		resp.EndedAt = formatTime(*a.EndedAt)
	}
	if a.Driver != nil {
		resp.Driver = newDriverView(a.Driver)
	}
	if a.Vehicle != nil {
		resp.Vehicle = newVehicleView(a.Vehicle)
	}
	if a.Account != nil {
		resp.Account = &accountView{
			ID:          a.Account.ID,
			CompanyName: a.Account.CompanyName,
			Document:    a.Account.Document,
		}
	}
	if a.Group != nil {
		resp.Group = &groupView{ID: a.Group.ID, Name: a.Group.Name}
	}
	return resp
}

func newDriverView(d *registry.Driver) *driverView {
	return &driverView{
		ID:          d.ID,
		FullName:    d.FullName,
		CPF:         d.CPF,
		CNHNumber:   d.CNHNumber,
		CNHCategory: d.CNHCategory,
		Phone:       d.Phone,
	}
}

func newVehicleView(v *registry.Vehicle) *vehicleView {
	return &vehicleView{
		ID:    v.ID,
		Plate: v.Plate,
		Brand: v.Brand,
		Model: v.Model,
		Year:  v.Year,
		Color: v.Color,
	}
}
