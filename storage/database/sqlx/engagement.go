package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
)

const (
	queryWeights = `SELECT course_id, indicator, weight, config_data FROM engagement_weight
WHERE course_id = $1 ORDER BY id`

	upsertWeight = `INSERT INTO engagement_weight (course_id, indicator, weight, config_data) VALUES ($1, $2, $3, $4)
ON CONFLICT (course_id, indicator) DO UPDATE SET weight = EXCLUDED.weight,
config_data = COALESCE(EXCLUDED.config_data, engagement_weight.config_data)`

	queryGenericSettings = `SELECT course_id, name, value FROM engagement_generic
WHERE course_id = $1 AND name = ANY($2) ORDER BY id`

	upsertGenericSetting = `INSERT INTO engagement_generic (course_id, name, value) VALUES ($1, $2, $3)
ON CONFLICT (course_id, name) DO UPDATE SET value = EXCLUDED.value`
)

type (
	engagementRepository struct {
		repo
	}

	weightRow struct {
		CourseID   int64      `db:"course_id"`
		Indicator  string     `db:"indicator"`
		Weight     float64    `db:"weight"`
		ConfigData null.Bytes `db:"config_data"`
	}
)

var _ engagement.Repository = (*engagementRepository)(nil) // interface compliance check

func NewEngagementRepository(exec core.DBExecutor) *engagementRepository {
	return &engagementRepository{repo{exec: exec}}
}

func (r engagementRepository) QueryWeights(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]engagement.IndicatorWeight, error) {
	var rows []weightRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, queryWeights, courseID); err != nil {
		return nil, core.NewStoreError(err, "querying weights")
	}

	weights := make([]engagement.IndicatorWeight, 0, len(rows))
	for _, row := range rows {
		w := engagement.IndicatorWeight{CourseID: row.CourseID, Indicator: row.Indicator, Weight: row.Weight}
		if row.ConfigData.Valid {
			w.ConfigData = row.ConfigData.Bytes
		}
		weights = append(weights, w)
	}
	return weights, nil
}

func (r engagementRepository) UpsertWeight(ctx context.Context, w engagement.IndicatorWeight, exec ...core.DBExecutor) error {
	configData := null.NewBytes(w.ConfigData, w.ConfigData != nil)
	if _, err := r.getExec(exec).ExecContext(ctx, upsertWeight, w.CourseID, w.Indicator, w.Weight, configData); err != nil {
		return core.NewStoreError(err, "upserting weight")
	}
	return nil
}

func (r engagementRepository) QueryGenericSettings(ctx context.Context, courseID int64, names []string, exec ...core.DBExecutor) ([]engagement.GenericSetting, error) {
	settings := make([]engagement.GenericSetting, 0, len(names))
	if len(names) == 0 {
		return settings, nil
	}
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &settings, queryGenericSettings, courseID, pq.Array(names)); err != nil {
		return nil, core.NewStoreError(err, "querying generic settings")
	}
	return settings, nil
}

func (r engagementRepository) UpsertGenericSetting(ctx context.Context, s engagement.GenericSetting, exec ...core.DBExecutor) error {
	if _, err := r.getExec(exec).ExecContext(ctx, upsertGenericSetting, s.CourseID, s.Name, s.Value); err != nil {
		return core.NewStoreError(err, "upserting generic setting")
	}
	return nil
}
