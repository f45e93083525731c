package contracts

import (
	"errors"
	"sort"
	"time"
)

// WindowSpec selects how the training/observation cutoff is computed.
// Exactly one of Cutoff or HorizonDays must be set.
type WindowSpec struct {
	Cutoff      *time.Time `json:"cutoff,omitempty"`       // 고정 cutoff 날짜
	HorizonDays int        `json:"horizon_days,omitempty"` // max(InvoiceDate) - N일
}

// Validate checks that exactly one cutoff rule is set
func (w WindowSpec) Validate() error {
	switch {
	case w.Cutoff != nil && w.HorizonDays != 0:
		return errors.New("window: cutoff and horizon_days are mutually exclusive")
	case w.Cutoff == nil && w.HorizonDays <= 0:
		return errors.New("window: either cutoff or a positive horizon_days is required")
	}
	return nil
}

// Window records the computed boundary of a run
// ⭐ SSOT: S1 → S2 학습/관측 구간 경계
type Window struct {
	Cutoff          time.Time `json:"cutoff"`
	ObservationEnd  time.Time `json:"observation_end"`
	HorizonDays     int       `json:"horizon_days,omitempty"`
	TrainingRows    int       `json:"training_rows"`
	ObservationRows int       `json:"observation_rows"`
}

// Split holds the two disjoint row subsets produced by the temporal splitter
type Split struct {
	Window      Window            `json:"window"`
	Training    *TransactionTable `json:"-"`
	Observation *TransactionTable `json:"-"`
}

// LabelBase is the base population: one row per training-window customer
// ⭐ SSOT: 행 수는 여기서 고정되고 이후 단계는 열만 추가
type LabelBase struct {
	CustomerIDs []string       `json:"customer_ids"` // CompareCustomerIDs 순서
	Churn       map[string]int `json:"churn"`        // 1 = 관측 구간 미구매
}

// NewLabelBase builds a base table from training IDs and the observation set
func NewLabelBase(training map[string]struct{}, observation map[string]struct{}) *LabelBase {
	ids := make([]string, 0, len(training))
	for id := range training {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return CompareCustomerIDs(ids[i], ids[j]) < 0
	})

	churn := make(map[string]int, len(ids))
	for _, id := range ids {
		if _, returned := observation[id]; returned {
			churn[id] = 0
		} else {
			churn[id] = 1
		}
	}

	return &LabelBase{CustomerIDs: ids, Churn: churn}
}

// Count returns the base population size
func (b *LabelBase) Count() int {
	return len(b.CustomerIDs)
}

// Churned returns the number of customers labelled 1
func (b *LabelBase) Churned() int {
	n := 0
	for _, id := range b.CustomerIDs {
		n += b.Churn[id]
	}
	return n
}

// ChurnRate returns churned / population (0 for an empty base)
func (b *LabelBase) ChurnRate() float64 {
	if len(b.CustomerIDs) == 0 {
		return 0.0
	}
	return float64(b.Churned()) / float64(len(b.CustomerIDs))
}

// Contains reports whether id belongs to the base population
func (b *LabelBase) Contains(id string) bool {
	_, ok := b.Churn[id]
	return ok
}
