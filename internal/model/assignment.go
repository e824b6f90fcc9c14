package model

// Phase records which step of the allocation produced an assignment.
type Phase string

// Allocation phases.
const (
	PhaseRule     Phase = "rule"
	PhaseResidual Phase = "residual"
)

// Assignment links one building to one rule name.
type Assignment struct {
	BuildingID string `json:"building_id"`
	Rule       string `json:"type"`
	Phase      Phase  `json:"phase"`
	CellID     string `json:"cell_id"`
}
