package store

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"hillshield/internal/model"
)

// RaiseAlert appends a fully-formed SOS alert. Priority and assessment were
// assigned by the triage collaborator before the alert reaches the store
// and are never recomputed here.
func (s *Store) RaiseAlert(alert model.SOSAlert, nowMillis int64) (model.SOSAlert, error) {
	alert.ID = fmt.Sprintf("%013d-%s", nowMillis, uuid.NewString()[:8])
	alert.Timestamp = nowMillis
	alert.Status = model.AlertActive

	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []model.SOSAlert
	if _, _, err := s.get(keyAlerts, &alerts); err != nil {
		return model.SOSAlert{}, err
	}
	if _, err := s.commit(keyAlerts, append([]model.SOSAlert{alert}, alerts...), nowMillis); err != nil {
		return model.SOSAlert{}, err
	}
	return alert, nil
}

// ListAlerts returns alerts newest first.
func (s *Store) ListAlerts() ([]model.SOSAlert, error) {
	var alerts []model.SOSAlert
	if _, _, err := s.get(keyAlerts, &alerts); err != nil {
		return nil, err
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Timestamp != alerts[j].Timestamp {
			return alerts[i].Timestamp > alerts[j].Timestamp
		}
		return alerts[i].ID > alerts[j].ID
	})
	return alerts, nil
}

// ResolveAlert closes an active alert as resolved or a false alarm.
// Closing an already-closed alert is a no-op returning its current state.
func (s *Store) ResolveAlert(id string, status model.AlertStatus, nowMillis int64) (model.SOSAlert, error) {
	if status != model.AlertResolved && status != model.AlertFalseAlarm {
		return model.SOSAlert{}, fmt.Errorf("store: invalid alert status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []model.SOSAlert
	_, found, err := s.get(keyAlerts, &alerts)
	if err != nil {
		return model.SOSAlert{}, err
	}
	if !found {
		return model.SOSAlert{}, ErrNotFound
	}

	for i := range alerts {
		if alerts[i].ID != id {
			continue
		}
		if alerts[i].Status != model.AlertActive {
			return alerts[i], nil
		}
		alerts[i].Status = status
		alerts[i].ResolvedAt = nowMillis
		if _, err := s.commit(keyAlerts, alerts, nowMillis); err != nil {
			return model.SOSAlert{}, err
		}
		return alerts[i], nil
	}
	return model.SOSAlert{}, ErrNotFound
}
