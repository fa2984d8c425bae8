package dummydb

import (
	"context"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
)

type engagementRepository struct {
	db *engagementTables
}

var _ engagement.Repository = (*engagementRepository)(nil) // interface compliance check

func NewEngagementRepository(db *DB) *engagementRepository {
	return &engagementRepository{db: db.engagement}
}

func (repo *engagementRepository) QueryWeights(_ context.Context, courseID int64, _ ...core.DBExecutor) ([]engagement.IndicatorWeight, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	weights := make([]engagement.IndicatorWeight, 0)
	for _, w := range repo.db.weights {
		if w.CourseID == courseID {
			row := *w
			row.ConfigData = copyBytes(w.ConfigData)
			weights = append(weights, row)
		}
	}
	return weights, nil
}

func (repo *engagementRepository) UpsertWeight(_ context.Context, w engagement.IndicatorWeight, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.weights {
		if row.CourseID == w.CourseID && row.Indicator == w.Indicator {
			row.Weight = w.Weight
			if w.ConfigData != nil {
				row.ConfigData = copyBytes(w.ConfigData)
			}
			return nil
		}
	}
	w.ConfigData = copyBytes(w.ConfigData)
	repo.db.weights = append(repo.db.weights, &w)
	return nil
}

func (repo *engagementRepository) QueryGenericSettings(_ context.Context, courseID int64, names []string, _ ...core.DBExecutor) ([]engagement.GenericSetting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	settings := make([]engagement.GenericSetting, 0, len(names))
	for _, s := range repo.db.generic {
		if s.CourseID == courseID && wanted[s.Name] {
			settings = append(settings, *s)
		}
	}
	return settings, nil
}

func (repo *engagementRepository) UpsertGenericSetting(_ context.Context, s engagement.GenericSetting, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.generic {
		if row.CourseID == s.CourseID && row.Name == s.Name {
			row.Value = s.Value
			return nil
		}
	}
	repo.db.generic = append(repo.db.generic, &s)
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
