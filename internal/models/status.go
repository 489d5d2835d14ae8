package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// InterventionStatus is the workflow state of an intervention. Go code uses the
// English names below; the dashboard and the shared database schema use the
// French wire values, translated in MarshalJSON/UnmarshalJSON and Value/Scan.
type InterventionStatus string

const (
	StatusPlanned       InterventionStatus = "PLANNED"
	StatusAwaitingParts InterventionStatus = "AWAITING_PARTS"
	StatusInProgress    InterventionStatus = "IN_PROGRESS"
	StatusPaused        InterventionStatus = "PAUSED"
	StatusCompleted     InterventionStatus = "COMPLETED"
	StatusCancelled     InterventionStatus = "CANCELLED"
	StatusFailed        InterventionStatus = "FAILED"
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []InterventionStatus{
	StatusPlanned,
	StatusAwaitingParts,
	StatusInProgress,
	StatusPaused,
	StatusCompleted,
	StatusCancelled,
	StatusFailed,
}

var statusToWire = map[InterventionStatus]string{
	StatusPlanned:       "PLANIFIEE",
	StatusAwaitingParts: "EN_ATTENTE_PDR",
	StatusInProgress:    "EN_COURS",
	StatusPaused:        "EN_PAUSE",
	StatusCompleted:     "TERMINEE",
	StatusCancelled:     "ANNULEE",
	StatusFailed:        "ECHEC",
}

var wireToStatus = func() map[string]InterventionStatus {
	m := make(map[string]InterventionStatus, len(statusToWire))
	for s, w := range statusToWire {
		m[w] = s
	}
	return m
}()

// ParseWireStatus converts a wire value such as "EN_COURS" to its status.
func ParseWireStatus(wire string) (InterventionStatus, error) {
	s, ok := wireToStatus[wire]
	if !ok {
		return "", fmt.Errorf("unknown intervention status %q", wire)
	}
	return s, nil
}

// Wire returns the French wire value, or the raw string for unknown statuses.
func (s InterventionStatus) Wire() string {
	if w, ok := statusToWire[s]; ok {
		return w
	}
	return string(s)
}

func (s InterventionStatus) Valid() bool {
	_, ok := statusToWire[s]
	return ok
}

func (s InterventionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Wire())
}

func (s *InterventionStatus) UnmarshalJSON(data []byte) error {
	var wire string
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	parsed, err := ParseWireStatus(wire)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the wire value so rows stay readable by the rest of the application.
func (s InterventionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid intervention status %q", string(s))
	}
	return s.Wire(), nil
}

func (s *InterventionStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = StatusPlanned
		return nil
	default:
		return fmt.Errorf("cannot scan %T into InterventionStatus", value)
	}
	parsed, err := ParseWireStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
